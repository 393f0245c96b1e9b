package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the voice line.
type Metrics struct {
	WebhookTurns        *prometheus.CounterVec // labels: state
	CallOutcomes        *prometheus.CounterVec // labels: branch, outcome
	SignatureRejections prometheus.Counter

	// Upstream metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: service={geocode,weather,sms}, outcome={success,error}
	UpstreamRetries  *prometheus.CounterVec   // labels: service
	UpstreamDuration *prometheus.HistogramVec // labels: service
	GeocodeCache     *prometheus.CounterVec   // labels: result={hit,miss}

	SMSSent       *prometheus.CounterVec // labels: outcome={sent,failed}
	SessionsSwept prometheus.Counter
}

// NewMetrics creates the voice line metrics and registers them with reg.
// A nil reg leaves them unregistered, which suits tests and CLI tools.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "webhook_turns_total",
			Help:      "Voice webhooks handled, by the call state they arrived in.",
		}, []string{"state"}),
		CallOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "call_outcomes_total",
			Help:      "Calls that reached a terminal state, by menu branch and outcome.",
		}, []string{"branch", "outcome"}),
		SignatureRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "signature_rejections_total",
			Help:      "Webhooks rejected because no candidate URL matched the signature.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "upstream_requests_total",
			Help:      "Outbound provider calls by service and outcome, after retries.",
		}, []string{"service", "outcome"}),
		UpstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "upstream_retries_total",
			Help:      "Retried outbound attempts by service.",
		}, []string{"service"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farmline",
			Name:      "upstream_duration_seconds",
			Help:      "Outbound provider call duration including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"service"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "geocode_cache_total",
			Help:      "PIN geocode cache lookups by result.",
		}, []string{"result"}),
		SMSSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "sms_total",
			Help:      "Follow-up SMS attempts by outcome.",
		}, []string{"outcome"}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmline",
			Name:      "sessions_swept_total",
			Help:      "Expired call sessions removed by the sweeper.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.WebhookTurns,
			m.CallOutcomes,
			m.SignatureRejections,
			m.UpstreamRequests,
			m.UpstreamRetries,
			m.UpstreamDuration,
			m.GeocodeCache,
			m.SMSSent,
			m.SessionsSwept,
		)
	}
	return m
}
