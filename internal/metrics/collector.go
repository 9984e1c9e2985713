// Package metrics collects Prometheus metrics for the evaluation channel and
// browser sessions. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the foxcap metric families.
type Collector struct {
	evalTotal       *prometheus.CounterVec
	evalDuration    prometheus.Histogram
	connectAttempts *prometheus.CounterVec

	waitDuration prometheus.Histogram
	waitTimeouts prometheus.Counter
	redirectHops prometheus.Counter

	elementsResolved *prometheus.CounterVec
	checkerRuns      *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the metric families with reg under namespace.
// If reg is nil the default registerer is used.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.evalTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_requests_total",
			Help:      "Script evaluations sent to the host, by outcome",
		},
		[]string{"outcome"},
	)
	c.evalDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eval_duration_seconds",
			Help:      "Round-trip time of script evaluations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)
	c.connectAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Connection attempts to the host, by outcome",
		},
		[]string{"outcome"},
	)
	c.waitDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "navigation_wait_seconds",
			Help:      "Time spent waiting for navigations to settle",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
	c.waitTimeouts = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_timeouts_total",
			Help:      "Navigation waits that exceeded the load ceiling",
		},
	)
	c.redirectHops = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meta_refresh_hops_total",
			Help:      "Client-side meta refresh redirects followed",
		},
	)
	c.elementsResolved = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elements_resolved_total",
			Help:      "Element handles produced by the resolver, by kind",
		},
		[]string{"kind"},
	)
	c.checkerRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_checker_runs_total",
			Help:      "Error checker invocations, by outcome",
		},
		[]string{"outcome"},
	)

	return c
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordEval records one evaluation round trip.
func (c *Collector) RecordEval(d time.Duration, err error) {
	if c == nil {
		return
	}
	c.evalTotal.WithLabelValues(outcome(err)).Inc()
	c.evalDuration.Observe(d.Seconds())
}

// RecordConnectAttempt records one connection attempt.
func (c *Collector) RecordConnectAttempt(err error) {
	if c == nil {
		return
	}
	c.connectAttempts.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		c.logger.Debug("connect attempt failed", zap.Error(err))
	}
}

// RecordWait records a completed or failed navigation wait.
func (c *Collector) RecordWait(d time.Duration, timedOut bool) {
	if c == nil {
		return
	}
	c.waitDuration.Observe(d.Seconds())
	if timedOut {
		c.waitTimeouts.Inc()
	}
}

// RecordRedirectHop records one followed meta refresh.
func (c *Collector) RecordRedirectHop() {
	if c == nil {
		return
	}
	c.redirectHops.Inc()
}

// RecordElement records one resolved element of the given kind.
func (c *Collector) RecordElement(kind string) {
	if c == nil {
		return
	}
	c.elementsResolved.WithLabelValues(kind).Inc()
}

// RecordChecker records one error checker invocation.
func (c *Collector) RecordChecker(err error) {
	if c == nil {
		return
	}
	c.checkerRuns.WithLabelValues(outcome(err)).Inc()
}
