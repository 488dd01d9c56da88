// Package tracking reconciles local view state against the backend's
// authoritative order state on a fixed cadence.
package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/campuscrave/campuscrave-client/pkg/logger"
	"github.com/campuscrave/campuscrave-client/pkg/metrics"
	"github.com/cenkalti/backoff/v5"
	pkgerrors "github.com/campuscrave/campuscrave-client/pkg/errors"
)

// TickFunc performs one fetch-and-reconcile cycle. Implementations must not
// apply fetched state once ctx is canceled.
type TickFunc func(ctx context.Context) error

// PollerParams configure a polling loop.
type PollerParams struct {
	Name       string
	Interval   time.Duration
	MaxBackoff time.Duration
	Tick       TickFunc
	Logger     *logger.Logger
	Metrics    *metrics.PollerMetrics
}

// Poller runs a tick function on a fixed interval. The first tick fires
// immediately. Ticks run sequentially on one goroutine, so a slow fetch
// delays the next tick instead of overlapping it. Failed ticks keep the
// previous state and back off exponentially until the next success.
type Poller struct {
	name       string
	interval   time.Duration
	maxBackoff time.Duration
	tick       TickFunc
	logg       *logger.Logger
	metrics    *metrics.PollerMetrics

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewPoller validates params and builds a poller.
func NewPoller(params PollerParams) (*Poller, error) {
	if params.Tick == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tick function is required")
	}
	if params.Interval <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "poll interval must be positive")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	maxBackoff := params.MaxBackoff
	if maxBackoff < params.Interval {
		maxBackoff = 10 * params.Interval
	}
	name := params.Name
	if name == "" {
		name = "poller"
	}
	return &Poller{
		name:       name,
		interval:   params.Interval,
		maxBackoff: maxBackoff,
		tick:       params.Tick,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Start launches the loop. Starting an already-running poller is an error;
// restarting after Stop is allowed.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "poller already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true
	go p.run(runCtx, p.done)
	return nil
}

// Stop cancels any scheduled tick and waits for the loop to exit. An
// in-flight fetch is aborted through context cancellation and its result
// discarded. Stop is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.started = false
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Done reports loop completion, for callers that stop via parent context.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.interval
	policy.MaxInterval = p.maxBackoff
	policy.Reset()

	ctx = p.logg.WithField(ctx, "watcher", p.name)
	wait := time.Duration(0) // first tick is immediate
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logg.Info(ctx, "poller stopped")
			return
		case <-timer.C:
		}

		start := time.Now()
		err := p.tick(ctx)
		p.metrics.ObserveDuration(p.name, time.Since(start))

		if ctx.Err() != nil {
			p.logg.Info(ctx, "poller stopped")
			return
		}

		if err != nil {
			p.metrics.IncFailure(p.name)
			wait = policy.NextBackOff()
			p.logg.Error(p.logg.WithField(ctx, "retry_in", wait.String()), "poll tick failed", err)
		} else {
			p.metrics.IncSuccess(p.name)
			policy.Reset()
			wait = p.interval
		}
		timer.Reset(wait)
	}
}
