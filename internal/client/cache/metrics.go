package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache activity. A nil *Metrics records nothing.
type Metrics struct {
	mutations *prometheus.CounterVec
	events    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	pending   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "donorlink",
			Subsystem: "cache",
			Name:      "mutations_total",
			Help:      "Settled optimistic mutations by outcome.",
		}, []string{"collection", "op", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "donorlink",
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Pushed change events by result.",
		}, []string{"collection", "kind", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "donorlink",
			Subsystem: "cache",
			Name:      "refreshes_total",
			Help:      "View refreshes by outcome.",
		}, []string{"collection", "outcome"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "donorlink",
			Subsystem: "cache",
			Name:      "pending_mutations",
			Help:      "Mutations awaiting confirmation.",
		}, []string{"collection"}),
	}
	if reg != nil {
		reg.MustRegister(m.mutations, m.events, m.refreshes, m.pending)
	}
	return m
}

func (m *Metrics) mutation(collection string, op Op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(collection, string(op), outcome).Inc()
}

func (m *Metrics) event(collection, kind, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(collection, kind, result).Inc()
}

func (m *Metrics) refresh(collection, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(collection, outcome).Inc()
}

func (m *Metrics) setPending(collection string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(collection).Set(float64(n))
}
