package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadiq_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadiq_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	UnlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadiq_unlocks_total",
			Help: "Total number of resource unlocks",
		},
		[]string{"resource_type", "result"},
	)

	CreditsSpentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadiq_credits_spent_total",
			Help: "Total credits debited from wallets",
		},
		[]string{"feature"},
	)

	CreditsGrantedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadiq_credits_granted_total",
			Help: "Total credits credited to wallets",
		},
	)

	CampaignSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadiq_campaign_sends_total",
			Help: "Total number of campaign send attempts",
		},
		[]string{"status"},
	)

	SenderVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadiq_sender_verifications_total",
			Help: "Total number of sender verification attempts",
		},
		[]string{"result"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadiq_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadiq_email_queue_length",
			Help: "Current length of the delivery queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordUnlock(resourceType, result string) {
	UnlocksTotal.WithLabelValues(resourceType, result).Inc()
}

func RecordCreditsSpent(feature string, amount int64) {
	CreditsSpentTotal.WithLabelValues(feature).Add(float64(amount))
}

func RecordCampaignSend(status string) {
	CampaignSendsTotal.WithLabelValues(status).Inc()
}
