package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook events by type and handling outcome",
		},
		[]string{"event", "outcome"},
	)

	webhookSignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Webhook requests rejected for a missing or invalid signature",
		},
	)

	webhookReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_replays_total",
			Help: "Webhook events redelivered after already being processed",
		},
	)

	reconciliationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_runs_total",
			Help: "Reconciliation attempts by outcome",
		},
		[]string{"outcome"},
	)

	jobRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_retries_total",
			Help: "Background job retry attempts",
		},
		[]string{"type"},
	)

	jobDeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_dead_letters_total",
			Help: "Background jobs abandoned after exhausting their retry budget",
		},
		[]string{"type"},
	)
)

// Webhook handling outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeReplayed  = "replayed"
	OutcomeUnknown   = "unknown"
	OutcomeIgnored   = "ignored"
	OutcomeError     = "error"
)

func TrackWebhookEvent(event, outcome string) {
	webhookEvents.WithLabelValues(event, outcome).Inc()
}

func TrackSignatureFailure() {
	webhookSignatureFailures.Inc()
}

func TrackWebhookReplay() {
	webhookReplays.Inc()
}

func TrackReconciliation(outcome string) {
	reconciliationRuns.WithLabelValues(outcome).Inc()
}

func TrackJobRetry(jobType string) {
	jobRetries.WithLabelValues(jobType).Inc()
}

func TrackJobDeadLetter(jobType string) {
	jobDeadLetters.WithLabelValues(jobType).Inc()
}
