// Package recovery computes catch-up occurrences for tasks whose scheduled
// time passed while the host process was not running (or was paused). It
// is pure: given the current corpus of occurrences, executions, and tasks,
// it returns the occurrences that should be (re)armed, without mutating
// anything or touching the clock beyond the `now` parameter.
package recovery

import (
	"time"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/taskscheduler"
)

// Calendar is the availability oracle the Task Scheduler needs to place a
// catch-up occurrence. It is the same shape as taskscheduler.Calendar.
type Calendar = taskscheduler.Calendar

// Scheduler is the subset of the Task Scheduler the Recovery Service
// drives: retry placement and next-occurrence computation.
type Scheduler interface {
	RescheduleRetry(occurrence domain.TaskOccurrence, policy domain.RetryPolicy, now time.Time, calendar Calendar, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, slotPool []domain.TimeSlot, maxPerDay int) *domain.TaskOccurrence
	GetNextOccurrence(task domain.TaskDefinition, fromTime time.Time, calendar Calendar, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, slotPool []domain.TimeSlot, maxPerDay int) *domain.TaskOccurrence
}

// Service is the Recovery Service.
type Service struct{}

// New returns a ready-to-use Service.
func New() *Service {
	return &Service{}
}

// RecoverMissedOccurrences walks occurrences in order and, for each one
// that was missed while the system was not running, proposes at most one
// catch-up occurrence: a retry if the task still has retries left and a
// slot can be found, otherwise the task's next recurrence.
//
// occurrences and executions are accepted as ordered slices rather than
// id-keyed maps because map iteration order is not deterministic in Go;
// a slice preserves a deterministic-given-ordered-inputs guarantee directly.
func (s *Service) RecoverMissedOccurrences(
	occurrences []domain.TaskOccurrence,
	executions []domain.TaskExecution,
	tasks []domain.TaskDefinition,
	now time.Time,
	scheduler Scheduler,
	calendar Calendar,
	scheduled []domain.TaskOccurrence,
	workingHours []domain.WorkingHours,
	slotPool []domain.TimeSlot,
	maxPerDay int,
) []domain.TaskOccurrence {
	tasksByID := make(map[string]domain.TaskDefinition, len(tasks))
	for _, task := range tasks {
		tasksByID[task.ID] = task
	}

	doneOccurrences := make(map[string]bool)
	latestExecByOccurrence := make(map[string]domain.TaskExecution)
	for _, exec := range executions {
		if exec.State == domain.ExecutionDone {
			doneOccurrences[exec.OccurrenceID] = true
		}
		latestExecByOccurrence[exec.OccurrenceID] = exec // append-only: last in slice is most recent
	}

	var out []domain.TaskOccurrence
	for _, occ := range occurrences {
		if occ.IsPinned() {
			continue
		}
		if !occ.ScheduledFor.Before(now) {
			continue
		}
		if doneOccurrences[occ.ID] {
			continue
		}
		task, ok := tasksByID[occ.TaskID]
		if !ok {
			continue
		}

		exec, hasExec := latestExecByOccurrence[occ.ID]
		retriesRemaining := task.RetryPolicy.MaxRetries
		if hasExec {
			retriesRemaining = exec.RetriesRemaining
		}

		retried := false
		if retriesRemaining > 0 {
			if next := scheduler.RescheduleRetry(occ, task.RetryPolicy, now, calendar, scheduled, workingHours, slotPool, maxPerDay); next != nil {
				out = append(out, *next)
				retried = true
			}
		}
		if retried {
			continue
		}

		if task.Recurrence != nil {
			if next := scheduler.GetNextOccurrence(task, now, calendar, scheduled, workingHours, slotPool, maxPerDay); next != nil {
				out = append(out, *next)
			}
		}
	}
	return out
}
