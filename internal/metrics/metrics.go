// Package metrics exposes Prometheus instrumentation for the campaign
// engine. Collectors are registered on the default registry; the API server
// mounts promhttp.Handler() at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts campaign processing passes by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lensdesk_campaign_runs_total",
		Help: "Campaign processing passes by outcome.",
	}, []string{"outcome"})

	// RunDuration tracks how long a full campaign pass takes.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lensdesk_campaign_run_duration_seconds",
		Help:    "Duration of a single campaign processing pass.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// MessagesTotal counts dispatched messages by channel and status.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lensdesk_messages_total",
		Help: "Outbound messages by channel and result.",
	}, []string{"channel", "status"})

	// EnrollmentsTotal counts new campaign enrollments.
	EnrollmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lensdesk_enrollments_total",
		Help: "New campaign recipient enrollments.",
	})

	// ConversionsTotal counts detected conversions.
	ConversionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lensdesk_conversions_total",
		Help: "Recipients converted by a campaign.",
	})

	// OptOutsTotal counts processed opt-outs by source.
	OptOutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lensdesk_opt_outs_total",
		Help: "Customer opt-outs by source.",
	}, []string{"source"})
)
