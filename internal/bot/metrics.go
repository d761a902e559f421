package bot

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts dispatch activity. A nil *Metrics records nothing.
type Metrics struct {
	events    *prometheus.CounterVec
	sends     *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

// NewMetrics creates the dispatch counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wamenu_events_total",
			Help: "Inbound events handled by the dispatch engine.",
		}, []string{"event"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wamenu_sends_total",
			Help: "Outbound sends by message kind and outcome.",
		}, []string{"kind", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wamenu_fallbacks_total",
			Help: "Degraded replies by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.events, m.sends, m.fallbacks)
	return m
}

func (m *Metrics) event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

func (m *Metrics) send(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sends.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) fallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}
