package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/campuscrave/campuscrave-client/pkg/api"
	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderBackend struct {
	getFn  func(ctx context.Context, id int64) (*api.Order, error)
	rateFn func(ctx context.Context, id int64, rating int, review string) (*api.Order, error)
}

func (f *fakeOrderBackend) GetOrder(ctx context.Context, id int64) (*api.Order, error) {
	return f.getFn(ctx, id)
}

func (f *fakeOrderBackend) RateOrder(ctx context.Context, id int64, rating int, review string) (*api.Order, error) {
	return f.rateFn(ctx, id, rating, review)
}

func newOrderWatcher(t *testing.T, backend OrderBackend, onUpdate func(*api.Order)) *OrderWatcher {
	t.Helper()
	watcher, err := NewOrderWatcher(OrderWatcherParams{
		OrderID:  7,
		Backend:  backend,
		OnUpdate: onUpdate,
		Poller: PollerParams{
			Interval: time.Hour,
			Logger:   testLogger(),
		},
	})
	require.NoError(t, err)
	return watcher
}

func TestOrderWatcherAppliesFetchedState(t *testing.T) {
	backend := &fakeOrderBackend{
		getFn: func(context.Context, int64) (*api.Order, error) {
			return &api.Order{ID: 7, Status: "PENDING"}, nil
		},
	}
	var updates []string
	watcher := newOrderWatcher(t, backend, func(order *api.Order) {
		updates = append(updates, order.Status.String())
	})

	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	order, notFound := watcher.Snapshot()
	require.NotNil(t, order)
	assert.False(t, notFound)
	assert.Equal(t, []string{"PENDING"}, updates, "first applied fetch counts as a change")

	// Same status again: state replaced, no callback.
	require.NoError(t, watcher.tick(ctx))
	assert.Equal(t, []string{"PENDING"}, updates)

	backend.getFn = func(context.Context, int64) (*api.Order, error) {
		return &api.Order{ID: 7, Status: "COOKING"}, nil
	}
	require.NoError(t, watcher.tick(ctx))
	assert.Equal(t, []string{"PENDING", "COOKING"}, updates)
}

func TestOrderWatcherFirstFetchNotFound(t *testing.T) {
	backend := &fakeOrderBackend{
		getFn: func(context.Context, int64) (*api.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such order")
		},
	}
	watcher := newOrderWatcher(t, backend, nil)

	// A missing order on first lookup is a rendered state, not a retry loop.
	require.NoError(t, watcher.tick(context.Background()))
	order, notFound := watcher.Snapshot()
	assert.Nil(t, order)
	assert.True(t, notFound)
}

func TestOrderWatcherLaterFailureKeepsState(t *testing.T) {
	backend := &fakeOrderBackend{
		getFn: func(context.Context, int64) (*api.Order, error) {
			return &api.Order{ID: 7, Status: "ACCEPTED"}, nil
		},
	}
	watcher := newOrderWatcher(t, backend, nil)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	backend.getFn = func(context.Context, int64) (*api.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "backend down")
	}
	err := watcher.tick(ctx)
	require.Error(t, err, "transient failure must surface so the loop backs off")

	order, notFound := watcher.Snapshot()
	require.NotNil(t, order)
	assert.False(t, notFound)
	assert.Equal(t, "ACCEPTED", order.Status.String())
}

func TestOrderWatcherTerminalClosesOnce(t *testing.T) {
	backend := &fakeOrderBackend{
		getFn: func(context.Context, int64) (*api.Order, error) {
			return &api.Order{ID: 7, Status: "COMPLETED"}, nil
		},
	}
	watcher := newOrderWatcher(t, backend, nil)
	ctx := context.Background()

	require.NoError(t, watcher.tick(ctx))
	select {
	case <-watcher.Terminal():
	default:
		t.Fatal("terminal channel must close on COMPLETED")
	}

	// A repeat terminal fetch must not panic on a double close.
	require.NoError(t, watcher.tick(ctx))
}

func TestOrderWatcherCanceledFetchIsDiscarded(t *testing.T) {
	backend := &fakeOrderBackend{
		getFn: func(context.Context, int64) (*api.Order, error) {
			return &api.Order{ID: 7, Status: "READY"}, nil
		},
	}
	watcher := newOrderWatcher(t, backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := watcher.tick(ctx)
	require.Error(t, err)

	order, _ := watcher.Snapshot()
	assert.Nil(t, order, "a fetch that completes after cancellation must not render")
}

func TestSubmitRatingReplacesState(t *testing.T) {
	rated := 5
	backend := &fakeOrderBackend{
		getFn: func(context.Context, int64) (*api.Order, error) {
			return &api.Order{ID: 7, Status: "COMPLETED"}, nil
		},
		rateFn: func(_ context.Context, id int64, rating int, review string) (*api.Order, error) {
			assert.Equal(t, int64(7), id)
			assert.Equal(t, 5, rating)
			assert.Equal(t, "great dosa", review)
			return &api.Order{ID: 7, Status: "COMPLETED", Rating: &rated, Review: review}, nil
		},
	}
	watcher := newOrderWatcher(t, backend, nil)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	require.NoError(t, watcher.SubmitRating(ctx, 5, "great dosa"))
	order, _ := watcher.Snapshot()
	require.NotNil(t, order)
	require.NotNil(t, order.Rating)
	assert.Equal(t, 5, *order.Rating)
	assert.Equal(t, "great dosa", order.Review)
}

func TestSubmitRatingFailureLeavesState(t *testing.T) {
	backend := &fakeOrderBackend{
		getFn: func(context.Context, int64) (*api.Order, error) {
			return &api.Order{ID: 7, Status: "COMPLETED"}, nil
		},
		rateFn: func(context.Context, int64, int, string) (*api.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "already rated")
		},
	}
	watcher := newOrderWatcher(t, backend, nil)
	ctx := context.Background()
	require.NoError(t, watcher.tick(ctx))

	err := watcher.SubmitRating(ctx, 4, "meh")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	order, _ := watcher.Snapshot()
	require.NotNil(t, order)
	assert.Nil(t, order.Rating)
}

func TestNewOrderWatcherValidation(t *testing.T) {
	_, err := NewOrderWatcher(OrderWatcherParams{Backend: &fakeOrderBackend{}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = NewOrderWatcher(OrderWatcherParams{OrderID: 1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
