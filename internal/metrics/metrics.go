// Package metrics exposes prometheus collectors for the request pipeline and
// the preference write path. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "course_selector_client"

// Metrics groups the collectors used by the api, auth and debounce packages.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	QueuedWaiters   prometheus.Counter
	Schedules       prometheus.Counter
	Flushes         *prometheus.CounterVec
	FlushedFields   prometheus.Histogram
}

// New creates the collectors and registers them on reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "requests_total", Help: "Outbound API requests by method and status code."},
			[]string{"method", "code"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "token_refreshes_total", Help: "Token refresh attempts by result."},
			[]string{"result"},
		),
		RefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "token_refresh_duration_seconds", Help: "Duration of token refresh calls.", Buckets: prometheus.DefBuckets},
		),
		QueuedWaiters: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "refresh_waiters_total", Help: "Requests parked behind an in-flight refresh."},
		),
		Schedules: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "debounce_schedules_total", Help: "Partial updates handed to the merging debouncer."},
		),
		Flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "debounce_flushes_total", Help: "Merged flushes by result."},
			[]string{"result"},
		),
		FlushedFields: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "debounce_flush_fields", Help: "Number of fields carried per flush.", Buckets: prometheus.LinearBuckets(1, 2, 8)},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Refreshes, m.RefreshDuration, m.QueuedWaiters, m.Schedules, m.Flushes, m.FlushedFields)
	}
	return m
}

func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(method, code).Inc()
}

func (m *Metrics) ObserveRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(d.Seconds())
}

func (m *Metrics) WaiterQueued() {
	if m == nil {
		return
	}
	m.QueuedWaiters.Inc()
}

func (m *Metrics) Scheduled() {
	if m == nil {
		return
	}
	m.Schedules.Inc()
}

func (m *Metrics) ObserveFlush(fields int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Flushes.WithLabelValues(result).Inc()
	m.FlushedFields.Observe(float64(fields))
}
