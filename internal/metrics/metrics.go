package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts processed trigger events per pipeline and outcome.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focusmon_events_total",
		Help: "Trigger events processed, by pipeline and outcome.",
	}, []string{"pipeline", "outcome"})

	// WarningsTotal counts absence warnings fired.
	WarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "focusmon_warnings_total",
		Help: "Absence warnings escalated to the chat group.",
	})

	// ExternalFailures counts failed calls per external collaborator,
	// including the non-fatal notifier and frontend steps.
	ExternalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focusmon_external_failures_total",
		Help: "Failed calls to external collaborators.",
	}, []string{"target"})
)
