// Package taskscheduler implements the pure due/retry/recurrence decisions
// that turn a TaskDefinition and its execution history into the next
// TaskOccurrence, if any. Nothing here touches the clock, a timer, or
// storage; every "now" and every corpus of existing occurrences arrives as
// a parameter.
package taskscheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/adil-adysh/plan-flow/internal/domain"
)

// recurrenceEpsilon is subtracted from a recurrence's target time before
// searching for its slot. NextAvailableSlot only returns candidates strictly
// after the given time, and a recurring task's target routinely lands
// exactly on the slot boundary its own prior occurrence was scheduled at;
// without the epsilon that exact, valid slot would be skipped in favor of
// the slot's next occurrence.
const recurrenceEpsilon = time.Second

// Calendar is the subset of the Calendar Planner the Task Scheduler
// consults. It is declared here, at the consumer, so tests can supply a
// fake without depending on the calendar package's concrete type.
type Calendar interface {
	IsSlotAvailable(proposedTime time.Time, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, maxPerDay int, slotPool []domain.TimeSlot) bool
	IsPinnedTimeValid(pinnedTime time.Time, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, maxPerDay int) bool
	NextAvailableSlot(after time.Time, slotPool []domain.TimeSlot, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, maxPerDay int, priority *int) *time.Time
}

// Scheduler is the Task Scheduler. It holds no state; every decision is a
// pure function of its arguments.
type Scheduler struct{}

// New returns a ready-to-use Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// IsDue reports whether occ's scheduled time has arrived.
func (s *Scheduler) IsDue(occ domain.TaskOccurrence, now time.Time) bool {
	return !occ.ScheduledFor.After(now)
}

// IsMissed reports whether occ's scheduled time has passed with no
// completed execution recorded for it.
func (s *Scheduler) IsMissed(occ domain.TaskOccurrence, now time.Time, executionState *domain.ExecutionState) bool {
	if !occ.ScheduledFor.Before(now) {
		return false
	}
	return executionState == nil || *executionState != domain.ExecutionDone
}

// ShouldRetry reports whether an execution still has retries available.
func (s *Scheduler) ShouldRetry(exec domain.TaskExecution) bool {
	return exec.RetriesRemaining > 0
}

// GetNextOccurrence computes the next occurrence for task, if any: a
// pinned time takes priority when still valid, otherwise a fresh
// recurrence-based slot is searched for. It returns nil when the task has
// no recurrence, or when no slot is found within the search window.
func (s *Scheduler) GetNextOccurrence(
	task domain.TaskDefinition,
	fromTime time.Time,
	calendar Calendar,
	scheduled []domain.TaskOccurrence,
	workingHours []domain.WorkingHours,
	slotPool []domain.TimeSlot,
	maxPerDay int,
) *domain.TaskOccurrence {
	if task.PinnedTime != nil && calendar.IsPinnedTimeValid(*task.PinnedTime, scheduled, workingHours, maxPerDay) {
		pinned := *task.PinnedTime
		return &domain.TaskOccurrence{
			ID:           uuid.NewString(),
			TaskID:       task.ID,
			ScheduledFor: pinned,
			PinnedTime:   &pinned,
		}
	}

	if task.Recurrence == nil {
		return nil
	}

	target := fromTime.Add(*task.Recurrence)
	after := target.Add(-recurrenceEpsilon)
	if after.Before(fromTime) {
		after = fromTime
	}
	rank := task.Priority.Rank()
	when := calendar.NextAvailableSlot(after, slotPool, scheduled, workingHours, maxPerDay, &rank)
	if when == nil {
		return nil
	}
	return &domain.TaskOccurrence{
		ID:           uuid.NewString(),
		TaskID:       task.ID,
		ScheduledFor: *when,
		SlotName:     slotNameAt(slotPool, *when),
	}
}

// RescheduleRetry proposes a fresh occurrence for the same task after a
// missed fire, provided the policy still allows a retry. It never mutates
// occurrence; the caller is responsible for tracking the remaining retry
// count in the execution record.
func (s *Scheduler) RescheduleRetry(
	occurrence domain.TaskOccurrence,
	policy domain.RetryPolicy,
	now time.Time,
	calendar Calendar,
	scheduled []domain.TaskOccurrence,
	workingHours []domain.WorkingHours,
	slotPool []domain.TimeSlot,
	maxPerDay int,
) *domain.TaskOccurrence {
	if policy.MaxRetries <= 0 {
		return nil
	}
	when := calendar.NextAvailableSlot(now, slotPool, scheduled, workingHours, maxPerDay, nil)
	if when == nil {
		return nil
	}
	return &domain.TaskOccurrence{
		ID:           uuid.NewString(),
		TaskID:       occurrence.TaskID,
		ScheduledFor: *when,
		SlotName:     slotNameAt(slotPool, *when),
	}
}

func slotNameAt(slotPool []domain.TimeSlot, when time.Time) string {
	tod := domain.TimeOfDayFrom(when)
	for _, slot := range slotPool {
		if slot.Start == tod {
			return slot.Name
		}
	}
	return ""
}
