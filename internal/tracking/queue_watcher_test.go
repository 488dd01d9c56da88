package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campuscrave/campuscrave-client/internal/notifications"
	"github.com/campuscrave/campuscrave-client/pkg/api"
	"github.com/campuscrave/campuscrave-client/pkg/enums"
	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueueBackend struct {
	mu       sync.Mutex
	listFn   func(ctx context.Context, stallName string) ([]api.Order, error)
	updateFn func(ctx context.Context, id int64, status enums.OrderStatus) (*api.Order, error)
	verifyFn func(ctx context.Context, id int64, code string) (*api.Order, error)
}

func (f *fakeQueueBackend) ListLiveOrders(ctx context.Context, stallName string) ([]api.Order, error) {
	f.mu.Lock()
	fn := f.listFn
	f.mu.Unlock()
	return fn(ctx, stallName)
}

func (f *fakeQueueBackend) UpdateStatus(ctx context.Context, id int64, status enums.OrderStatus) (*api.Order, error) {
	return f.updateFn(ctx, id, status)
}

func (f *fakeQueueBackend) VerifyPickup(ctx context.Context, id int64, code string) (*api.Order, error) {
	return f.verifyFn(ctx, id, code)
}

func (f *fakeQueueBackend) setList(fn func(ctx context.Context, stallName string) ([]api.Order, error)) {
	f.mu.Lock()
	f.listFn = fn
	f.mu.Unlock()
}

type countingAlerter struct {
	mu    sync.Mutex
	count int
}

func (c *countingAlerter) Alert() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingAlerter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func liveOrders(ids ...int64) []api.Order {
	out := make([]api.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, api.Order{ID: id, Status: "PENDING"})
	}
	return out
}

func newQueueWatcher(t *testing.T, backend *fakeQueueBackend) (*QueueWatcher, *notifications.Feed, *countingAlerter) {
	t.Helper()
	feed := notifications.NewFeed()
	alerter := &countingAlerter{}
	watcher, err := NewQueueWatcher(QueueWatcherParams{
		StallName: "Chai Point",
		Backend:   backend,
		Feed:      feed,
		Alerter:   alerter,
		Poller: PollerParams{
			Interval: time.Hour,
			Logger:   testLogger(),
		},
	})
	require.NoError(t, err)
	return watcher, feed, alerter
}

func TestQueueWatcherFirstTickIsQuiet(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(_ context.Context, stallName string) ([]api.Order, error) {
		assert.Equal(t, "Chai Point", stallName)
		return liveOrders(1, 2, 3), nil
	})
	watcher, feed, alerter := newQueueWatcher(t, backend)

	require.NoError(t, watcher.tick(context.Background()))
	assert.True(t, watcher.Loaded())
	assert.Len(t, watcher.Orders(), 3)
	assert.Empty(t, feed.List())
	assert.Zero(t, alerter.Count())
}

func TestQueueWatcherNotifiesNewArrivals(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return liveOrders(1), nil
	})
	watcher, feed, alerter := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return liveOrders(1, 2, 3), nil
	})
	require.NoError(t, watcher.tick(ctx))

	assert.Len(t, feed.List(), 2, "one notification per new order")
	assert.Equal(t, 2, feed.Unread())
	assert.Equal(t, 1, alerter.Count(), "one chime per tick regardless of arrivals")

	// Unchanged queue: nothing new.
	require.NoError(t, watcher.tick(ctx))
	assert.Len(t, feed.List(), 2)
	assert.Equal(t, 1, alerter.Count())
}

func TestQueueWatcherFetchFailureKeepsQueue(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return liveOrders(1, 2), nil
	})
	watcher, feed, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "backend down")
	})
	err := watcher.tick(ctx)
	require.Error(t, err)
	assert.Len(t, watcher.Orders(), 2, "previous queue survives a failed fetch")
	assert.Empty(t, feed.List())
}

func TestRequestTransitionReplacesRecord(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return liveOrders(1, 2), nil
	})
	backend.updateFn = func(_ context.Context, id int64, status enums.OrderStatus) (*api.Order, error) {
		return &api.Order{ID: id, Status: status}, nil
	}
	watcher, _, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	order, err := watcher.RequestTransition(ctx, 1, enums.OrderStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, order.Status)

	for _, live := range watcher.Orders() {
		if live.ID == 1 {
			assert.Equal(t, enums.OrderStatusAccepted, live.Status)
		}
	}
	assert.Len(t, watcher.Orders(), 2)
}

func TestRequestTransitionTerminalLeavesLiveSet(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return liveOrders(1, 2), nil
	})
	backend.updateFn = func(_ context.Context, id int64, status enums.OrderStatus) (*api.Order, error) {
		return &api.Order{ID: id, Status: status}, nil
	}
	watcher, _, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	_, err := watcher.Reject(ctx, 2)
	require.NoError(t, err)

	live := watcher.Orders()
	require.Len(t, live, 1)
	assert.Equal(t, int64(1), live[0].ID)
}

func TestRequestTransitionFailureLeavesState(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return liveOrders(1), nil
	})
	backend.updateFn = func(context.Context, int64, enums.OrderStatus) (*api.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "already accepted")
	}
	watcher, _, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	_, err := watcher.RequestTransition(ctx, 1, enums.OrderStatusAccepted)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.OrderStatusPending, watcher.Orders()[0].Status)
}

func TestAdvanceFollowsLifecyclePath(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return []api.Order{{ID: 1, Status: enums.OrderStatusCooking}}, nil
	})
	var requested enums.OrderStatus
	backend.updateFn = func(_ context.Context, id int64, status enums.OrderStatus) (*api.Order, error) {
		requested = status
		return &api.Order{ID: id, Status: status}, nil
	}
	watcher, _, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	_, err := watcher.Advance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReady, requested)

	_, err = watcher.Advance(ctx, 404)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestInFlightRequestsAreSerializedPerOrder(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return liveOrders(1), nil
	})
	entered := make(chan struct{})
	proceed := make(chan struct{})
	var enteredOnce sync.Once
	backend.updateFn = func(_ context.Context, id int64, status enums.OrderStatus) (*api.Order, error) {
		enteredOnce.Do(func() { close(entered) })
		<-proceed
		return &api.Order{ID: id, Status: status}, nil
	}
	watcher, _, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := watcher.RequestTransition(ctx, 1, enums.OrderStatusAccepted)
		done <- err
	}()
	<-entered

	// The first request is still in flight, so a second one is refused.
	_, err := watcher.RequestTransition(ctx, 1, enums.OrderStatusRejected)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	close(proceed)
	require.NoError(t, <-done)

	// After release the order accepts requests again.
	_, err = watcher.RequestTransition(ctx, 1, enums.OrderStatusCooking)
	require.NoError(t, err)
}

func TestVerifyPickupSuccessRemovesOrder(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return []api.Order{{ID: 1, Status: enums.OrderStatusReady}, {ID: 2, Status: enums.OrderStatusPending}}, nil
	})
	backend.verifyFn = func(_ context.Context, id int64, code string) (*api.Order, error) {
		assert.Equal(t, "1234", code)
		return &api.Order{ID: id, Status: enums.OrderStatusCompleted}, nil
	}
	watcher, _, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	require.NoError(t, watcher.VerifyPickup(ctx, 1, "1234"))

	live := watcher.Orders()
	require.Len(t, live, 1, "completed order leaves the live set without waiting for the next poll")
	assert.Equal(t, int64(2), live[0].ID)
	assert.Equal(t, maxPickupAttempts, watcher.RemainingPickupAttempts(1))
}

func TestVerifyPickupExhaustsAttempts(t *testing.T) {
	backend := &fakeQueueBackend{}
	backend.setList(func(context.Context, string) ([]api.Order, error) {
		return []api.Order{{ID: 1, Status: enums.OrderStatusReady}}, nil
	})
	backend.verifyFn = func(context.Context, int64, string) (*api.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeRejected, "wrong code")
	}
	watcher, _, _ := newQueueWatcher(t, backend)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	require.Error(t, watcher.VerifyPickup(ctx, 1, "0000"))
	assert.Equal(t, maxPickupAttempts-1, watcher.RemainingPickupAttempts(1))

	require.Error(t, watcher.VerifyPickup(ctx, 1, "0001"))
	assert.Equal(t, maxPickupAttempts-2, watcher.RemainingPickupAttempts(1))

	err := watcher.VerifyPickup(ctx, 1, "0002")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRejected))
	assert.Contains(t, err.Error(), "exhausted")

	// Attempt counter resets after exhaustion.
	assert.Equal(t, maxPickupAttempts, watcher.RemainingPickupAttempts(1))
	assert.Len(t, watcher.Orders(), 1, "order stays in the queue after failed pickup")
}

func TestNewQueueWatcherValidation(t *testing.T) {
	feed := notifications.NewFeed()
	backend := &fakeQueueBackend{}

	_, err := NewQueueWatcher(QueueWatcherParams{Backend: backend, Feed: feed})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = NewQueueWatcher(QueueWatcherParams{StallName: "Chai Point", Feed: feed})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = NewQueueWatcher(QueueWatcherParams{StallName: "Chai Point", Backend: backend})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
