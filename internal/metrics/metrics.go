package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// AuthTotal counts register and login attempts by role and outcome.
	AuthTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_auth_total",
			Help: "Total number of register and login attempts",
		},
		[]string{"operation", "role", "status"},
	)
	// ProposalDecisions counts accept/reject attempts by outcome.
	ProposalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_proposal_decisions_total",
			Help: "Total number of proposal accept and reject attempts",
		},
		[]string{"decision", "status"},
	)
	// EnrichmentFallbacks counts placeholder substitutions and dropped records during enrichment.
	EnrichmentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_enrichment_fallbacks_total",
			Help: "Total number of enrichment placeholders and dropped records",
		},
		[]string{"reference", "outcome"},
	)
)

// Outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"

	OutcomePlaceholder = "placeholder"
	OutcomeDropped     = "dropped"
)

// StatusLabel maps an error to the status label.
func StatusLabel(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
