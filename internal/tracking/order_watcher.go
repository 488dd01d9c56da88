package tracking

import (
	"context"
	"sync"

	"github.com/campuscrave/campuscrave-client/pkg/api"
	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
)

// OrderBackend is the slice of the backend client the student tracker uses.
type OrderBackend interface {
	GetOrder(ctx context.Context, id int64) (*api.Order, error)
	RateOrder(ctx context.Context, id int64, rating int, review string) (*api.Order, error)
}

// OrderWatcherParams configure a single-order watcher.
type OrderWatcherParams struct {
	OrderID int64
	Backend OrderBackend
	Poller  PollerParams
	// OnUpdate fires after each applied fetch whose status differs from the
	// previous render state.
	OnUpdate func(order *api.Order)
}

// OrderWatcher tracks one order until it reaches a terminal status. The
// rendered state is always replaced wholesale with the backend's record,
// never merged field by field.
type OrderWatcher struct {
	orderID  int64
	backend  OrderBackend
	poller   *Poller
	onUpdate func(order *api.Order)

	mu       sync.Mutex
	order    *api.Order
	loaded   bool
	notFound bool

	terminalOnce sync.Once
	terminal     chan struct{}
}

// NewOrderWatcher builds the watcher and its polling loop.
func NewOrderWatcher(params OrderWatcherParams) (*OrderWatcher, error) {
	if params.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backend client is required")
	}
	w := &OrderWatcher{
		orderID:  params.OrderID,
		backend:  params.Backend,
		onUpdate: params.OnUpdate,
		terminal: make(chan struct{}),
	}
	pollerParams := params.Poller
	if pollerParams.Name == "" {
		pollerParams.Name = "order"
	}
	pollerParams.Tick = w.tick
	poller, err := NewPoller(pollerParams)
	if err != nil {
		return nil, err
	}
	w.poller = poller
	return w, nil
}

// Start begins polling; the first fetch is immediate.
func (w *OrderWatcher) Start(ctx context.Context) error {
	return w.poller.Start(ctx)
}

// Stop halts polling. Idempotent.
func (w *OrderWatcher) Stop() {
	w.poller.Stop()
}

// Terminal is closed once the order reaches COMPLETED or REJECTED.
func (w *OrderWatcher) Terminal() <-chan struct{} {
	return w.terminal
}

// Snapshot returns the last rendered order (nil before the first successful
// fetch) and whether the order is considered missing.
func (w *OrderWatcher) Snapshot() (*api.Order, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.order == nil {
		return nil, w.notFound
	}
	copied := *w.order
	return &copied, w.notFound
}

// SubmitRating posts a rating and review for a completed order and replaces
// local state with the backend's updated record. Failure leaves state
// untouched.
func (w *OrderWatcher) SubmitRating(ctx context.Context, rating int, review string) error {
	order, err := w.backend.RateOrder(ctx, w.orderID, rating, review)
	if err != nil {
		return err
	}
	w.apply(order)
	return nil
}

func (w *OrderWatcher) tick(ctx context.Context) error {
	order, err := w.backend.GetOrder(ctx, w.orderID)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		w.mu.Lock()
		firstAttempt := !w.loaded
		if firstAttempt {
			// A failed first lookup renders "order not found"; later
			// failures keep the last known state and retry.
			w.loaded = true
			w.notFound = true
		}
		w.mu.Unlock()
		if firstAttempt && pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}
	w.apply(order)
	return nil
}

func (w *OrderWatcher) apply(order *api.Order) {
	w.mu.Lock()
	changed := w.order == nil || w.order.Status != order.Status
	w.order = order
	w.loaded = true
	w.notFound = false
	w.mu.Unlock()
	if changed && w.onUpdate != nil {
		w.onUpdate(order)
	}
	if order.Status.IsTerminal() {
		w.terminalOnce.Do(func() { close(w.terminal) })
	}
}
