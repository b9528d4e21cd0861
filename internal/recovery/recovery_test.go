package recovery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adil-adysh/plan-flow/internal/calendar"
	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/recovery"
	"github.com/adil-adysh/plan-flow/internal/taskscheduler"
)

// 2025-01-13 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2025, 1, 13, hour, minute, 0, 0, time.UTC)
}

func mondayWorkingHours() []domain.WorkingHours {
	return []domain.WorkingHours{{
		Day:          domain.Monday,
		Start:        domain.NewTimeOfDay(9, 0, 0),
		End:          domain.NewTimeOfDay(22, 0, 0),
		AllowedSlots: []string{"morning", "evening"},
	}}
}

func pool() []domain.TimeSlot {
	return []domain.TimeSlot{
		{Name: "morning", Start: domain.NewTimeOfDay(9, 0, 0), End: domain.NewTimeOfDay(12, 0, 0)},
		{Name: "evening", Start: domain.NewTimeOfDay(20, 0, 0), End: domain.NewTimeOfDay(22, 0, 0)},
	}
}

func TestRecoverMissedOccurrences_RetryPreferredOverRecurrence(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	recurrence := 24 * time.Hour
	task := domain.TaskDefinition{
		ID:          "t1",
		Recurrence:  &recurrence,
		RetryPolicy: domain.RetryPolicy{MaxRetries: 1},
	}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	now := monday(10, 0)

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, nil, []domain.TaskDefinition{task},
		now, sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)

	require.Len(t, out, 1, "at most one catch-up occurrence per missed occurrence")
	assert.Equal(t, "t1", out[0].TaskID)
	assert.True(t, out[0].ScheduledFor.Equal(monday(20, 0)), "retry should claim the next available slot, not a recurrence-distance slot")
}

func TestRecoverMissedOccurrences_RecurrenceWhenRetriesExhausted(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	recurrence := 24 * time.Hour
	task := domain.TaskDefinition{ID: "t1", Recurrence: &recurrence, RetryPolicy: domain.RetryPolicy{MaxRetries: 0}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	now := monday(10, 0)

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, nil, []domain.TaskDefinition{task},
		now, sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)

	require.Len(t, out, 1)
	assert.Equal(t, domain.Monday, domain.WeekdayOf(out[0].ScheduledFor.Weekday()))
}

func TestRecoverMissedOccurrences_SkipsPinned(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	pinned := monday(9, 0)
	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 3}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: pinned, PinnedTime: &pinned}

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, nil, []domain.TaskDefinition{task},
		monday(10, 0), sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)

	assert.Empty(t, out, "pinned occurrences are never auto-rescheduled")
}

func TestRecoverMissedOccurrences_SkipsNotYetMissed(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 1}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, nil, []domain.TaskDefinition{task},
		monday(8, 0), sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)
	assert.Empty(t, out)
}

func TestRecoverMissedOccurrences_SkipsAlreadyDone(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 1}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	exec := domain.TaskExecution{OccurrenceID: "o1", State: domain.ExecutionDone}

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, []domain.TaskExecution{exec}, []domain.TaskDefinition{task},
		monday(10, 0), sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)
	assert.Empty(t, out)
}

func TestRecoverMissedOccurrences_SkipsDanglingTask(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	occ := domain.TaskOccurrence{ID: "o1", TaskID: "ghost", ScheduledFor: monday(9, 0)}

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, nil, nil,
		monday(10, 0), sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)
	assert.Empty(t, out)
}

func TestRecoverMissedOccurrences_NoRecurrenceAndRetriesExhausted_Dropped(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 0}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, nil, []domain.TaskDefinition{task},
		monday(10, 0), sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)
	assert.Empty(t, out, "no retry and no recurrence means silently dropped")
}

func TestRecoverMissedOccurrences_UsesExecutionRetriesRemainingWhenPresent(t *testing.T) {
	svc := recovery.New()
	sched := taskscheduler.New()
	cal := calendar.New()

	// Task policy allows 3 retries, but this occurrence's own execution
	// record already used them all up.
	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 3}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	exec := domain.TaskExecution{OccurrenceID: "o1", State: domain.ExecutionMissed, RetriesRemaining: 0}

	out := svc.RecoverMissedOccurrences(
		[]domain.TaskOccurrence{occ}, []domain.TaskExecution{exec}, []domain.TaskDefinition{task},
		monday(10, 0), sched, cal, nil, mondayWorkingHours(), pool(), 5,
	)
	assert.Empty(t, out)
}
