package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/campuscrave/campuscrave-client/internal/notifications"
	"github.com/campuscrave/campuscrave-client/pkg/api"
	"github.com/campuscrave/campuscrave-client/pkg/enums"
	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
	"github.com/campuscrave/campuscrave-client/pkg/metrics"
)

// Pickup code entry stays open for a bounded number of attempts before the
// dashboard resets it.
const maxPickupAttempts = 3

// QueueBackend is the slice of the backend client the vendor dashboard uses.
type QueueBackend interface {
	ListLiveOrders(ctx context.Context, stallName string) ([]api.Order, error)
	UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus) (*api.Order, error)
	VerifyPickup(ctx context.Context, id int64, code string) (*api.Order, error)
}

// QueueWatcherParams configure a vendor live-queue watcher.
type QueueWatcherParams struct {
	StallName string
	Backend   QueueBackend
	Feed      *notifications.Feed
	Alerter   notifications.Alerter
	Metrics   *metrics.PollerMetrics
	Poller    PollerParams
	Now       func() time.Time
}

// QueueWatcher maintains the stall's live-order view. Each tick fetches the
// authoritative queue, diffs it against the previous tick, pushes one
// notification per newly-arrived order and chimes at most once.
type QueueWatcher struct {
	stallName string
	backend   QueueBackend
	feed      *notifications.Feed
	alerter   notifications.Alerter
	metrics   *metrics.PollerMetrics
	poller    *Poller
	now       func() time.Time

	mu             sync.Mutex
	snapshot       QueueSnapshot
	inFlight       map[int64]bool
	pickupAttempts map[int64]int
}

// NewQueueWatcher builds the watcher and its polling loop.
func NewQueueWatcher(params QueueWatcherParams) (*QueueWatcher, error) {
	if params.StallName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stall name is required")
	}
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backend client is required")
	}
	if params.Feed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification feed is required")
	}
	alerter := params.Alerter
	if alerter == nil {
		alerter = notifications.NoopAlerter{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	w := &QueueWatcher{
		stallName:      params.StallName,
		backend:        params.Backend,
		feed:           params.Feed,
		alerter:        alerter,
		metrics:        params.Metrics,
		now:            now,
		inFlight:       map[int64]bool{},
		pickupAttempts: map[int64]int{},
	}
	pollerParams := params.Poller
	if pollerParams.Name == "" {
		pollerParams.Name = "queue"
	}
	pollerParams.Metrics = params.Metrics
	pollerParams.Tick = w.tick
	poller, err := NewPoller(pollerParams)
	if err != nil {
		return nil, err
	}
	w.poller = poller
	return w, nil
}

// Start begins polling; the first fetch is immediate.
func (w *QueueWatcher) Start(ctx context.Context) error {
	return w.poller.Start(ctx)
}

// Stop halts polling. Idempotent; late fetch results are discarded.
func (w *QueueWatcher) Stop() {
	w.poller.Stop()
}

// Orders returns a copy of the current live queue.
func (w *QueueWatcher) Orders() []api.Order {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]api.Order, len(w.snapshot.Orders))
	copy(out, w.snapshot.Orders)
	return out
}

// Loaded reports whether at least one fetch has succeeded.
func (w *QueueWatcher) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot.Loaded
}

// RequestTransition asks the backend to move the order to the target status.
// At most one mutating request per order is in flight at a time. On success
// the local record is replaced wholesale with the backend's authoritative
// copy (terminal orders leave the live set); on failure local state is
// unchanged and the error surfaces to the caller.
func (w *QueueWatcher) RequestTransition(ctx context.Context, orderID int64, target enums.OrderStatus) (*api.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	release, err := w.acquire(orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := w.backend.UpdateStatus(ctx, orderID, target)
	if err != nil {
		return nil, err
	}
	w.applyAuthoritative(order)
	return order, nil
}

// Advance moves the order one step along the lifecycle path.
func (w *QueueWatcher) Advance(ctx context.Context, orderID int64) (*api.Order, error) {
	current, ok := w.find(orderID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not in live queue")
	}
	next, ok := current.Status.Next()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot advance further")
	}
	return w.RequestTransition(ctx, orderID, next)
}

// Reject declines a pending order.
func (w *QueueWatcher) Reject(ctx context.Context, orderID int64) (*api.Order, error) {
	return w.RequestTransition(ctx, orderID, enums.OrderStatusRejected)
}

// VerifyPickup submits the student's handoff code. Success removes the order
// from the live set immediately, without waiting for the next poll, and
// resets code-entry state. Failure surfaces the backend's reason and keeps
// the entry open until the attempt budget is exhausted.
func (w *QueueWatcher) VerifyPickup(ctx context.Context, orderID int64, code string) error {
	release, err := w.acquire(orderID)
	if err != nil {
		return err
	}
	defer release()

	order, err := w.backend.VerifyPickup(ctx, orderID, code)
	if err != nil {
		w.mu.Lock()
		w.pickupAttempts[orderID]++
		if w.pickupAttempts[orderID] >= maxPickupAttempts {
			delete(w.pickupAttempts, orderID)
			w.mu.Unlock()
			return pkgerrors.Wrap(pkgerrors.CodeRejected, err, "pickup attempts exhausted")
		}
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	delete(w.pickupAttempts, orderID)
	w.mu.Unlock()
	w.applyAuthoritative(order)
	return nil
}

// RemainingPickupAttempts reports how many code entries are left before the
// dashboard clears the entry UI.
func (w *QueueWatcher) RemainingPickupAttempts(orderID int64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maxPickupAttempts - w.pickupAttempts[orderID]
}

func (w *QueueWatcher) tick(ctx context.Context) error {
	orders, err := w.backend.ListLiveOrders(ctx, w.stallName)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		// Keep the previous queue; the poller retries with backoff.
		return err
	}

	w.mu.Lock()
	prev := w.snapshot
	render, entries, chime := ReconcileQueue(prev, QueueSnapshot{Orders: orders}, w.now())
	w.snapshot = render
	w.mu.Unlock()

	if len(entries) > 0 {
		w.feed.Push(entries...)
		w.metrics.AddNotifications(w.poller.name, len(entries))
	}
	if chime {
		w.alerter.Alert()
	}
	return nil
}

// applyAuthoritative replaces one order in the snapshot with the backend's
// record, dropping it from the live set when terminal.
func (w *QueueWatcher) applyAuthoritative(order *api.Order) {
	if order == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	orders := w.snapshot.Orders[:0]
	replaced := false
	for _, existing := range w.snapshot.Orders {
		if existing.ID != order.ID {
			orders = append(orders, existing)
			continue
		}
		replaced = true
		if !order.Status.IsTerminal() {
			orders = append(orders, *order)
		}
	}
	if !replaced && !order.Status.IsTerminal() {
		orders = append(orders, *order)
	}
	w.snapshot.Orders = orders
}

func (w *QueueWatcher) find(orderID int64) (api.Order, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, order := range w.snapshot.Orders {
		if order.ID == orderID {
			return order, true
		}
	}
	return api.Order{}, false
}

// acquire marks the order as having a mutating request in flight.
func (w *QueueWatcher) acquire(orderID int64) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[orderID] {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a request for this order is already in flight")
	}
	w.inFlight[orderID] = true
	return func() {
		w.mu.Lock()
		delete(w.inFlight, orderID)
		w.mu.Unlock()
	}, nil
}
