// Package metrics exports recovery events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scienceol/recovery/internal/recovery"
)

const namespace = "recovery"

// Notifier counts the events passing through it before handing them to the
// next notifier.
type Notifier struct {
	next recovery.Notifier

	events    *prometheus.CounterVec
	delay     prometheus.Histogram
	cycle     *prometheus.HistogramVec
	attempt   prometheus.Gauge
	inBackoff prometheus.Gauge
}

// New registers the collectors on reg and wraps next, which may be nil.
func New(next recovery.Notifier, reg prometheus.Registerer) (*Notifier, error) {
	n := &Notifier{
		next: next,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Recovery events emitted, by event name",
		}, []string{"event"}),
		delay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduled_delay_seconds",
			Help:      "Backoff delay chosen for each round",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms ~ 82s
		}),
		cycle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of finished recovery cycles, by outcome",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		}, []string{"outcome"}),
		attempt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attempt",
			Help:      "Attempt number of the current cycle, 0 when idle",
		}),
		inBackoff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_backoff",
			Help:      "1 while a backoff delay is pending",
		}),
	}

	for _, c := range []prometheus.Collector{n.events, n.delay, n.cycle, n.attempt, n.inBackoff} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *Notifier) Emit(event string, payload ...any) {
	n.events.WithLabelValues(event).Inc()

	for _, p := range payload {
		a, ok := p.(recovery.Attempt)
		if !ok {
			continue
		}
		switch event {
		case recovery.EventScheduled:
			n.delay.Observe(a.Scheduled.Seconds())
			n.attempt.Set(float64(a.Number))
			n.inBackoff.Set(1)
		case recovery.EventAttempt:
			n.inBackoff.Set(0)
		case recovery.EventSuccess:
			n.cycle.WithLabelValues("success").Observe(a.Elapsed.Seconds())
			n.attempt.Set(0)
			n.inBackoff.Set(0)
		case recovery.EventPermanentFailure:
			// An exhausted cycle stays current until it is reset.
			n.cycle.WithLabelValues("exhausted").Observe(a.Elapsed.Seconds())
			n.attempt.Set(float64(a.Number))
			n.inBackoff.Set(0)
		}
	}

	if n.next != nil {
		n.next.Emit(event, payload...)
	}
}
