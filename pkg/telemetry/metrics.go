package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── Scheduler ───────────────────────────────────────────────────────────────

	SchedulerOccurrencesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "scheduler",
		Name:      "occurrences_scheduled_total",
		Help:      "Total occurrences accepted by schedule_occurrence.",
	})

	SchedulerTimersArmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "scheduler",
		Name:      "timers_armed_total",
		Help:      "Total time.AfterFunc timers armed.",
	})

	SchedulerTimersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "scheduler",
		Name:      "timers_cancelled_total",
		Help:      "Total timers cancelled before firing (pause, reschedule, or supersession).",
	})

	SchedulerOccurrencesTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "scheduler",
		Name:      "occurrences_triggered_total",
		Help:      "Total occurrences that reached their trigger pipeline.",
	})

	SchedulerRecoverySweeps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "scheduler",
		Name:      "recovery_sweeps_total",
		Help:      "Total recovery sweeps run by check_for_missed_tasks.",
	})

	SchedulerRecoveryProduced = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "taskflow",
		Subsystem: "scheduler",
		Name:      "recovery_occurrences_produced",
		Help:      "Occurrences produced per recovery sweep.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
	})

	// ─── Notify ──────────────────────────────────────────────────────────────────

	NotifyDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "notify",
		Name:      "dispatched_total",
		Help:      "Trigger events dispatched, labelled by channel and outcome.",
	}, []string{"channel", "outcome"})

	NotifyDLQTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "notify",
		Name:      "dlq_total",
		Help:      "Trigger events sent to the dead-letter topic (malformed, unknown channel, or handler failure).",
	})

	// ─── HTTP API ────────────────────────────────────────────────────────────────

	APICommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "api",
		Name:      "commands_total",
		Help:      "Controller commands received over HTTP, labelled by command and outcome.",
	}, []string{"command", "outcome"})

	APIRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Subsystem: "api",
		Name:      "rate_limited_total",
		Help:      "Commands rejected by the HTTP rate limiter, labelled by command.",
	}, []string{"command"})
)
