package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

type Metrics struct {
	registry            *prometheus.Registry
	operations          *prometheus.CounterVec
	notificationsFailed prometheus.Counter
	seatsReserved       prometheus.Counter
	seatsReleased       prometheus.Counter
}

// New registers the airline collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airline_operations_total",
			Help: "Engine operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		notificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airline_notifications_failed_total",
			Help: "Flight-created notifications that could not be published.",
		}),
		seatsReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airline_seats_reserved_total",
			Help: "Seats taken by successful reservations.",
		}),
		seatsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airline_seats_released_total",
			Help: "Seats returned by canceled reservations.",
		}),
	}
	m.registry.MustRegister(
		m.operations,
		m.notificationsFailed,
		m.seatsReserved,
		m.seatsReleased,
		collectors.NewGoCollector(),
	)
	return m
}

// The recording methods are nil-safe so callers can run without metrics.

func (m *Metrics) Operation(name, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.notificationsFailed.Inc()
}

func (m *Metrics) SeatsReserved(n int) {
	if m == nil {
		return
	}
	m.seatsReserved.Add(float64(n))
}

func (m *Metrics) SeatsReleased(n int) {
	if m == nil {
		return
	}
	m.seatsReleased.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
