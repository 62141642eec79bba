// Package metrics exposes Prometheus instrumentation for PulseWatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulsewatch"

var (
	// EvaluationsTotal counts rule evaluations by outcome: triggered, quiet,
	// cooldown, suppressed, no_data, error.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rule_evaluations_total",
		Help:      "Total rule evaluations by outcome.",
	}, []string{"outcome"})

	// EvaluationDuration observes how long a single rule evaluation takes.
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rule_evaluation_duration_seconds",
		Help:      "Duration of a single rule evaluation.",
		Buckets:   prometheus.DefBuckets,
	})

	// AlertsFiredTotal counts alerts created, by severity.
	AlertsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_fired_total",
		Help:      "Total alerts fired by severity.",
	}, []string{"severity"})

	// NotificationsTotal counts delivery attempts by channel and status.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total notification delivery attempts by channel and status.",
	}, []string{"channel", "status"})

	// EscalationsTotal counts escalation level advances.
	EscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "escalations_total",
		Help:      "Total escalation level advances.",
	})
)
