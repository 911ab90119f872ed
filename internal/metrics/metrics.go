// Package metrics exposes the server's prometheus instruments.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Connections prometheus.Gauge
	Ticks       prometheus.Counter
	Messages    *prometheus.CounterVec // by tag
	Violations  *prometheus.CounterVec // by reason
	Dropped     prometheus.Counter
	Rounds      *prometheus.CounterVec // by outcome
}

// New builds the instruments and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liars",
			Name:      "connections",
			Help:      "Open client connections.",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liars",
			Name:      "ticks_total",
			Help:      "Server ticks run.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liars",
			Name:      "messages_total",
			Help:      "Client messages decoded, by tag.",
		}, []string{"tag"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liars",
			Name:      "violations_total",
			Help:      "Connections closed for a protocol violation, by reason.",
		}, []string{"reason"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liars",
			Name:      "slow_clients_dropped_total",
			Help:      "Connections dropped because their outbox was full.",
		}),
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liars",
			Name:      "rounds_total",
			Help:      "Finished rounds, by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Connections, m.Ticks, m.Messages, m.Violations, m.Dropped, m.Rounds)
	}
	return m
}
