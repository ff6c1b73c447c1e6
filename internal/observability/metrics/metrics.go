package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the guardrail pipeline
// and conversation turn processing.
type ConversationMetrics struct {
	turnsTotal         *prometheus.CounterVec
	gateTriggeredTotal *prometheus.CounterVec
	classifierFailures *prometheus.CounterVec
	leadStageTotal     *prometheus.CounterVec
	turnLatency        *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inmobilia",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total conversation turns processed",
		}, []string{"route", "status"}),
		gateTriggeredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inmobilia",
			Subsystem: "guardrails",
			Name:      "gate_triggered_total",
			Help:      "Total guardrail gate triggers",
		}, []string{"gate", "source"}),
		classifierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inmobilia",
			Subsystem: "guardrails",
			Name:      "classifier_failures_total",
			Help:      "Total classifier calls that failed open",
		}, []string{"gate"}),
		leadStageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inmobilia",
			Subsystem: "leads",
			Name:      "stage_total",
			Help:      "Total lead registrations by stage",
		}, []string{"stage", "status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inmobilia",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of conversation turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.gateTriggeredTotal, m.classifierFailures, m.leadStageTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(route, status string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(route, status).Inc()
}

// ObserveGateTriggered records a gate block. Source is "pattern" when the
// regex fast path fired and "classifier" when the LLM decided.
func (m *ConversationMetrics) ObserveGateTriggered(gate, source string) {
	if m == nil {
		return
	}
	m.gateTriggeredTotal.WithLabelValues(gate, source).Inc()
}

func (m *ConversationMetrics) ObserveClassifierFailure(gate string) {
	if m == nil {
		return
	}
	m.classifierFailures.WithLabelValues(gate).Inc()
}

func (m *ConversationMetrics) ObserveLeadStage(stage, status string) {
	if m == nil {
		return
	}
	m.leadStageTotal.WithLabelValues(stage, status).Inc()
}

func (m *ConversationMetrics) ObserveTurnLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(route).Observe(seconds)
}
