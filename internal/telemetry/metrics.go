// Package telemetry adapts the generic pkg/telemetry Prometheus counters to
// the domain-facing interfaces the scheduling core and notify package
// declare at their own consumer side (orchestrator.Metrics, notify's
// dispatch-outcome recorder).
package telemetry

import (
	"github.com/adil-adysh/plan-flow/internal/orchestrator"
	"github.com/adil-adysh/plan-flow/pkg/telemetry"
)

// SchedulerMetrics implements orchestrator.Metrics on top of the package's
// Prometheus counters.
type SchedulerMetrics struct{}

var _ orchestrator.Metrics = SchedulerMetrics{}

func (SchedulerMetrics) TimerArmed() {
	telemetry.SchedulerTimersArmed.Inc()
	telemetry.SchedulerOccurrencesScheduled.Inc()
}

func (SchedulerMetrics) TimerCancelled() {
	telemetry.SchedulerTimersCancelled.Inc()
}

func (SchedulerMetrics) OccurrenceTriggered() {
	telemetry.SchedulerOccurrencesTriggered.Inc()
}

func (SchedulerMetrics) RecoverySweepRan(produced int) {
	telemetry.SchedulerRecoverySweeps.Inc()
	telemetry.SchedulerRecoveryProduced.Observe(float64(produced))
}

// RecordNotifyDispatch records a notify.Dispatcher routing outcome.
func RecordNotifyDispatch(channel, outcome string) {
	telemetry.NotifyDispatched.WithLabelValues(channel, outcome).Inc()
}

// RecordNotifyDLQ records a message forwarded to the notify dead-letter topic.
func RecordNotifyDLQ() {
	telemetry.NotifyDLQTotal.Inc()
}

// RecordAPICommand records an HTTP command outcome.
func RecordAPICommand(command, outcome string) {
	telemetry.APICommandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordAPIRateLimited records a command rejected by the HTTP rate limiter.
func RecordAPIRateLimited(command string) {
	telemetry.APIRateLimitedTotal.WithLabelValues(command).Inc()
}
