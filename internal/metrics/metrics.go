package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMCallDuration tracks the latency of chat and embedding calls
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "controlroom_llm_call_duration_seconds",
			Help: "Duration of LLM API calls in seconds",
			Buckets: []float64{
				0.1,  // 100ms
				0.25, // 250ms
				0.5,  // 500ms
				1.0,  // 1s
				2.5,  // 2.5s
				5.0,  // 5s
				10.0, // 10s
				30.0, // 30s
				60.0, // 1m
			},
		},
		[]string{"kind", "status"}, // chat|json|embed, success|failure
	)

	LeadsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_leads_scored_total",
			Help: "Scored leads by score source",
		},
		[]string{"source"},
	)

	TemplatesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_templates_generated_total",
			Help: "Generated review templates by table and outcome",
		},
		[]string{"table", "outcome"}, // created|refreshed|skipped|fallback
	)

	ReviewDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_review_decisions_total",
			Help: "Review decisions by table and result",
		},
		[]string{"table", "result"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_messages_sent_total",
			Help: "Sender attempts by table and status",
		},
		[]string{"table", "status"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlroom_outbox_events_total",
			Help: "Outbox relay results by event type",
		},
		[]string{"event_type", "status"},
	)
)

// RecordLLMCall records the duration of one LLM request
func RecordLLMCall(kind string, err error, duration float64) {
	LLMCallDuration.WithLabelValues(kind, statusLabel(err)).Observe(duration)
}

func RecordLeadScored(source string) {
	LeadsScored.WithLabelValues(source).Inc()
}

func RecordTemplate(table, outcome string) {
	TemplatesGenerated.WithLabelValues(table, outcome).Inc()
}

// RecordDecision counts a decide call; result is the new status or the
// error class that rejected it.
func RecordDecision(table, result string) {
	ReviewDecisions.WithLabelValues(table, result).Inc()
}

func RecordSend(table string, err error) {
	MessagesSent.WithLabelValues(table, statusLabel(err)).Inc()
}

func RecordOutbox(eventType string, err error) {
	OutboxPublished.WithLabelValues(eventType, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
