package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/campuscrave/campuscrave-client/internal/cart"
	"github.com/campuscrave/campuscrave-client/internal/checkout"
	"github.com/campuscrave/campuscrave-client/internal/tracking"
	"github.com/campuscrave/campuscrave-client/pkg/api"
	"github.com/campuscrave/campuscrave-client/pkg/config"
	"github.com/campuscrave/campuscrave-client/pkg/enums"
	"github.com/campuscrave/campuscrave-client/pkg/logger"
	pkgredis "github.com/campuscrave/campuscrave-client/pkg/redis"
	"github.com/campuscrave/campuscrave-client/pkg/storage"
	"github.com/campuscrave/campuscrave-client/pkg/storage/file"
	"github.com/campuscrave/campuscrave-client/pkg/storage/redisstore"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "order-tracker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "order-tracker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backend := api.NewClient(
		api.WithBaseURL(cfg.Backend.BaseURL),
		api.WithTimeout(cfg.Backend.HTTPTimeout),
	)

	orderID := cfg.Tracker.OrderID
	if cfg.Tracker.PlaceOrder {
		placed, err := placeOrder(ctx, cfg, backend)
		if err != nil {
			logg.Error(ctx, "checkout failed; cart left intact", err)
			os.Exit(1)
		}
		orderID = placed.ID
		logg.Info(logg.WithOrderID(ctx, fmt.Sprint(orderID)), "order placed")
	}
	if orderID <= 0 {
		logg.Error(ctx, "no order to track", fmt.Errorf("set CRAVE_ORDER_ID or CRAVE_PLACE_ORDER"))
		os.Exit(1)
	}

	ctx = logg.WithOrderID(ctx, fmt.Sprint(orderID))
	watcher, err := tracking.NewOrderWatcher(tracking.OrderWatcherParams{
		OrderID: orderID,
		Backend: backend,
		Poller: tracking.PollerParams{
			Name:       "order",
			Interval:   cfg.Poller.OrderInterval,
			MaxBackoff: cfg.Poller.MaxBackoff,
			Logger:     logg,
		},
		OnUpdate: func(order *api.Order) {
			updateCtx := logg.WithField(ctx, "status", order.Status.String())
			if order.Status == enums.OrderStatusReady && order.PickupCode != "" {
				updateCtx = logg.WithField(updateCtx, "pickup_code", order.PickupCode)
			}
			logg.Info(updateCtx, "order status changed")
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create order watcher", err)
		os.Exit(1)
	}

	if err := watcher.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start order watcher", err)
		os.Exit(1)
	}
	defer watcher.Stop()

	logg.Info(ctx, "tracking order")
	select {
	case <-watcher.Terminal():
		order, _ := watcher.Snapshot()
		if order != nil {
			logg.Info(logg.WithField(ctx, "status", order.Status.String()), "order reached terminal status")
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down")
	}
}

// placeOrder checks out the persisted cart for the configured student.
func placeOrder(ctx context.Context, cfg *config.Config, backend *api.Client) (order *api.Order, err error) {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	cartSvc, err := cart.NewService(ctx, cart.ServiceParams{Storage: store})
	if err != nil {
		return nil, err
	}
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Cart:    cartSvc,
		Backend: backend,
	})
	if err != nil {
		return nil, err
	}
	return checkoutSvc.PlaceOrder(ctx, cfg.Tracker.StudentID)
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		client, err := pkgredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client), nil
	default:
		return file.New(cfg.Storage.DataDir)
	}
}
