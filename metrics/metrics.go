// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leavebot"

var (
	// EventsTotal counts webhook events by type and outcome (ok, error, skipped).
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Webhook events processed.",
		},
		[]string{"type", "outcome"},
	)

	// RepliesFailedTotal counts reply calls rejected by the platform.
	RepliesFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_failures_total",
			Help:      "Reply API calls that returned an error.",
		},
	)

	// NotifyFailuresTotal counts reviewer pushes that failed.
	NotifyFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Reviewer notifications that failed to send.",
		},
	)

	// StatusNoticeFailuresTotal counts applicant pushes after a review that failed.
	StatusNoticeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_notice_failures_total",
			Help:      "Review outcome notifications to applicants that failed to send.",
		},
	)

	// SubmissionsTotal counts leave submissions by result (created, overlap, failed).
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Leave request submissions.",
		},
		[]string{"result"},
	)

	// StatesPurgedTotal counts expired dialog states removed by the sweeper.
	StatesPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_purged_total",
			Help:      "Expired conversation states deleted by the sweeper.",
		},
	)
)
