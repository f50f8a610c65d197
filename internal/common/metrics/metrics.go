package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permit_submissions_total",
			Help: "Total number of permit application submissions",
		},
		[]string{"result"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permit_status_transitions_total",
			Help: "Total number of application status transitions",
		},
		[]string{"status", "result"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permit_notifications_sent_total",
			Help: "Total number of notifications delivered by the outbox dispatcher",
		},
		[]string{"template"},
	)

	NotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permit_notifications_failed_total",
			Help: "Total number of notification attempts that failed",
		},
		[]string{"template"},
	)

	NotificationsExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permit_notifications_exhausted_total",
			Help: "Mandatory notifications that exhausted every retry and raised an alert",
		},
		[]string{"template"},
	)

	DocumentUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permit_document_uploads_total",
			Help: "Total number of document uploads",
		},
		[]string{"result"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "permit_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route", "method"},
	)
)
