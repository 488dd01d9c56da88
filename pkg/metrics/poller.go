package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records tick outcomes for the status watchers.
type PollerMetrics struct {
	duration      *prometheus.HistogramVec
	success       *prometheus.CounterVec
	failure       *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewPollerMetrics registers the watcher metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_tick_duration_seconds",
		Help:    "Duration of status poll ticks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"watcher"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_tick_success",
		Help: "Successful status poll ticks.",
	}, []string{"watcher"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_tick_failure",
		Help: "Failed status poll ticks.",
	}, []string{"watcher"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_notifications_emitted",
		Help: "Notifications produced by queue reconciliation.",
	}, []string{"watcher"})
	reg.MustRegister(duration, success, failure, notifications)
	return &PollerMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		notifications: notifications,
	}
}

// ObserveDuration records the duration of one tick for the named watcher.
func (p *PollerMetrics) ObserveDuration(watcher string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(watcher)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named watcher.
func (p *PollerMetrics) IncSuccess(watcher string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(watcher)).Inc()
}

// IncFailure increments the failure counter for the named watcher.
func (p *PollerMetrics) IncFailure(watcher string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(watcher)).Inc()
}

// AddNotifications counts notifications emitted on a tick.
func (p *PollerMetrics) AddNotifications(watcher string, count int) {
	if p == nil || p.notifications == nil || count <= 0 {
		return
	}
	p.notifications.WithLabelValues(normalizeLabel(watcher)).Add(float64(count))
}

func normalizeLabel(watcher string) string {
	if watcher == "" {
		return "unknown"
	}
	return watcher
}
