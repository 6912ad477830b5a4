// Package metrics holds the prometheus collectors of the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors on a private registry
type Metrics struct {
	Events         *prometheus.CounterVec
	EventFailures  *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec
	Panics         prometheus.Counter
	Transitions    *prometheus.CounterVec
	Orders         *prometheus.CounterVec
	OrderAmount    prometheus.Counter
	TokenRefreshes *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizza_bot_events_total",
				Help: "Inbound events by kind",
			},
			[]string{"kind"},
		),
		EventFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizza_bot_event_failures_total",
				Help: "Inbound events whose handling failed, by kind",
			},
			[]string{"kind"},
		),
		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizza_bot_events_dropped_total",
				Help: "Inbound events dropped because their worker queue was full, by kind",
			},
			[]string{"kind"},
		),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pizza_bot_panics_total",
			Help: "Recovered panics in event handling",
		}),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizza_bot_transitions_total",
				Help: "Conversation state transitions",
			},
			[]string{"from", "to"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizza_bot_orders_total",
				Help: "Completed orders by delivery method",
			},
			[]string{"method"},
		),
		OrderAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pizza_bot_order_amount_rub_total",
			Help: "Sum of completed orders, in rubles",
		}),
		TokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizza_bot_token_refreshes_total",
				Help: "Access token refresh attempts by result",
			},
			[]string{"result"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Events,
		m.EventFailures,
		m.EventsDropped,
		m.Panics,
		m.Transitions,
		m.Orders,
		m.OrderAmount,
		m.TokenRefreshes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTransition counts a state change
func (m *Metrics) ObserveTransition(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

// ObserveOrder counts a completed order
func (m *Metrics) ObserveOrder(method string, sum int) {
	m.Orders.WithLabelValues(method).Inc()
	m.OrderAmount.Add(float64(sum))
}

// ObserveTokenRefresh counts a refresh attempt
func (m *Metrics) ObserveTokenRefresh(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
