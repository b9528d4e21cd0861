package controller_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adil-adysh/plan-flow/internal/calendar"
	"github.com/adil-adysh/plan-flow/internal/controller"
	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/orchestrator"
	"github.com/adil-adysh/plan-flow/internal/recovery"
	"github.com/adil-adysh/plan-flow/internal/repository"
	"github.com/adil-adysh/plan-flow/internal/taskscheduler"
	"github.com/adil-adysh/plan-flow/pkg/clock"
)

func monday(hour, minute int) time.Time {
	return time.Date(2025, 1, 13, hour, minute, 0, 0, time.UTC)
}

func mondayWorkingHours() []domain.WorkingHours {
	allowed := []string{"morning", "afternoon"}
	return []domain.WorkingHours{
		{Day: domain.Monday, Start: domain.NewTimeOfDay(9, 0, 0), End: domain.NewTimeOfDay(17, 0, 0), AllowedSlots: allowed},
		{Day: domain.Tuesday, Start: domain.NewTimeOfDay(9, 0, 0), End: domain.NewTimeOfDay(17, 0, 0), AllowedSlots: allowed},
	}
}

func slotPool() []domain.TimeSlot {
	return []domain.TimeSlot{
		{Name: "morning", Start: domain.NewTimeOfDay(9, 0, 0), End: domain.NewTimeOfDay(12, 0, 0)},
		{Name: "afternoon", Start: domain.NewTimeOfDay(13, 0, 0), End: domain.NewTimeOfDay(17, 0, 0)},
	}
}

func newHarness(t *testing.T, start time.Time) (*controller.Controller, *repository.Memory, *clock.Fake) {
	t.Helper()
	repo := repository.NewMemory()
	fake := clock.NewFake(start)
	sched := taskscheduler.New()
	cal := calendar.New()
	rec := recovery.New()

	orch := orchestrator.New(repo, sched, cal, rec, mondayWorkingHours(), slotPool(), 5, orchestrator.WithClock(fake))
	ctl := controller.New(orch, repo, sched, rec, cal, mondayWorkingHours(), slotPool(), 5, fake)
	return ctl, repo, fake
}

func TestController_MarkDone_UnknownOccurrence(t *testing.T) {
	ctx := context.Background()
	ctl, _, _ := newHarness(t, monday(9, 0))

	err := ctl.MarkDone(ctx, "ghost")
	require.Error(t, err)
	var target *domain.UnknownOccurrenceError
	assert.ErrorAs(t, err, &target)
}

func TestController_MarkDone_WritesExecutionAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ctl, repo, _ := newHarness(t, monday(9, 0))

	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 0}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	require.NoError(t, repo.AddTask(ctx, task))
	require.NoError(t, repo.AddOccurrence(ctx, occ))

	require.NoError(t, ctl.MarkDone(ctx, "o1"))

	execs, err := repo.ListExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, execs, 1)

	// Calling again is a no-op, not an error: idempotent completion.
	require.NoError(t, ctl.MarkDone(ctx, "o1"))
	execs, err = repo.ListExecutions(ctx)
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestController_RetryOccurrence_UnknownOccurrence(t *testing.T) {
	ctx := context.Background()
	ctl, _, _ := newHarness(t, monday(9, 0))

	_, err := ctl.RetryOccurrence(ctx, "ghost")
	require.Error(t, err)
	var target *domain.UnknownOccurrenceError
	assert.ErrorAs(t, err, &target)
}

func TestController_RetryOccurrence_ExhaustedReturnsNil(t *testing.T) {
	ctx := context.Background()
	ctl, repo, _ := newHarness(t, monday(9, 0))

	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 0}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	require.NoError(t, repo.AddTask(ctx, task))
	require.NoError(t, repo.AddOccurrence(ctx, occ))

	next, err := ctl.RetryOccurrence(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestController_RetryOccurrence_FindsFreshSlot(t *testing.T) {
	ctx := context.Background()
	ctl, repo, _ := newHarness(t, monday(9, 0))

	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 2}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	require.NoError(t, repo.AddTask(ctx, task))
	require.NoError(t, repo.AddOccurrence(ctx, occ))

	next, err := ctl.RetryOccurrence(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "t1", next.TaskID)

	occs, err := repo.ListOccurrences(ctx)
	require.NoError(t, err)
	assert.Len(t, occs, 2)
}

func TestController_RetryOccurrence_AlreadyDoneReturnsNil(t *testing.T) {
	ctx := context.Background()
	ctl, repo, _ := newHarness(t, monday(9, 0))

	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 2}}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	require.NoError(t, repo.AddTask(ctx, task))
	require.NoError(t, repo.AddOccurrence(ctx, occ))
	require.NoError(t, repo.AddExecution(ctx, domain.TaskExecution{OccurrenceID: "o1", State: domain.ExecutionDone}))

	next, err := ctl.RetryOccurrence(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestController_GetScheduledOccurrences_ReflectsArmedTimers(t *testing.T) {
	ctx := context.Background()
	ctl, repo, _ := newHarness(t, monday(9, 0))

	task := domain.TaskDefinition{ID: "t1"}
	future := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(14, 0)}
	require.NoError(t, repo.AddTask(ctx, task))
	require.NoError(t, repo.AddOccurrence(ctx, future))

	require.NoError(t, ctl.Start(ctx))

	scheduled, err := ctl.GetScheduledOccurrences(ctx)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "o1", scheduled[0].ID)
}

func TestController_RecoverMissedTasks_ProducesAndArmsCatchUp(t *testing.T) {
	ctx := context.Background()
	ctl, repo, fake := newHarness(t, monday(9, 0))

	recurrence := time.Hour
	task := domain.TaskDefinition{ID: "t1", RetryPolicy: domain.RetryPolicy{MaxRetries: 0}, Recurrence: &recurrence}
	occ := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(9, 0)}
	require.NoError(t, repo.AddTask(ctx, task))
	require.NoError(t, repo.AddOccurrence(ctx, occ))

	fake.Advance(5 * time.Minute)
	produced, err := ctl.RecoverMissedTasks(ctx)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	occs, err := repo.ListOccurrences(ctx)
	require.NoError(t, err)
	assert.Len(t, occs, 2)
}

func TestController_Pause_EmptiesScheduledSnapshot(t *testing.T) {
	ctx := context.Background()
	ctl, repo, _ := newHarness(t, monday(9, 0))

	task := domain.TaskDefinition{ID: "t1"}
	future := domain.TaskOccurrence{ID: "o1", TaskID: "t1", ScheduledFor: monday(14, 0)}
	require.NoError(t, repo.AddTask(ctx, task))
	require.NoError(t, repo.AddOccurrence(ctx, future))
	require.NoError(t, ctl.Start(ctx))

	ctl.Pause()

	scheduled, err := ctl.GetScheduledOccurrences(ctx)
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}
