// Package observability declares the Prometheus metrics the engine and API
// emit. Everything registers against the default registry via promauto; the
// /metrics endpoint is gated by configuration.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Accrual Metrics ────────────────────────────────────────────────────────

// AccrualTicks counts scheduler ticks processed by the live accrual loop.
var AccrualTicks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ponto",
	Subsystem: "accrual",
	Name:      "ticks_total",
	Help:      "Total live accrual scheduler ticks processed.",
})

// WorkedSeconds mirrors the current day's total worked seconds.
var WorkedSeconds = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ponto",
	Subsystem: "accrual",
	Name:      "worked_seconds",
	Help:      "Total worked seconds accumulated for the current day.",
})

// ActiveTickets reports whether a ticket timer is currently running (0 or 1).
var ActiveTickets = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ponto",
	Subsystem: "accrual",
	Name:      "active_tickets",
	Help:      "Number of ticket timers currently running.",
})

// ─── Workday Metrics ────────────────────────────────────────────────────────

// ClockEventsAppended counts persisted clock markings by kind.
var ClockEventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ponto",
	Subsystem: "workday",
	Name:      "clock_events_total",
	Help:      "Total clock events appended, by kind.",
}, []string{"kind"})

// ─── Store Metrics ──────────────────────────────────────────────────────────

// StoreErrors counts failed store operations observed by the engine.
var StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ponto",
	Subsystem: "store",
	Name:      "errors_total",
	Help:      "Total store operations that returned an error.",
})

// ─── API Metrics ────────────────────────────────────────────────────────────

// HTTPRequestDuration tracks handler latency by route and status class.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ponto",
	Subsystem: "api",
	Name:      "request_duration_seconds",
	Help:      "HTTP request duration by route and status class.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"route", "status"})

// SSEClients tracks currently connected update-stream subscribers.
var SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ponto",
	Subsystem: "api",
	Name:      "sse_clients",
	Help:      "Currently connected update-stream subscribers.",
})
