// Package controller exposes the small set of commands that sit in front
// of the Smart Scheduler: start/pause/resume, marking an occurrence done,
// forcing a retry, reading the current timer snapshot, and running a
// recovery sweep on demand. It is the only layer in this module that
// raises typed errors to its caller — everything beneath it swallows
// "not schedulable" conditions and returns nil.
package controller

import (
	"context"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/orchestrator"
	"github.com/adil-adysh/plan-flow/internal/repository"
	"github.com/adil-adysh/plan-flow/pkg/clock"
)

// SmartScheduler is the subset of the orchestrator the Controller drives.
type SmartScheduler interface {
	Start(ctx context.Context) error
	Pause()
	ScheduleOccurrence(ctx context.Context, occ domain.TaskOccurrence) error
	TriggerNow(ctx context.Context, occ domain.TaskOccurrence) error
	RetryOccurrence(ctx context.Context, occ domain.TaskOccurrence, policy domain.RetryPolicy) (*domain.TaskOccurrence, error)
	ArmedOccurrenceIDs() []string
}

// Controller is the command surface described in the external interfaces
// contract: start/pause/resume, mark_done, retry_occurrence,
// get_scheduled_occurrences, recover_missed_tasks.
type Controller struct {
	scheduler SmartScheduler
	repo      repository.Repository
	taskSched orchestrator.Scheduler
	recovery  orchestrator.RecoveryService
	calendar  orchestrator.Calendar
	clock     clock.Clock

	workingHours []domain.WorkingHours
	slotPool     []domain.TimeSlot
	maxPerDay    int
}

// New builds a Controller. taskSched, recoverySvc, and cal are the same
// dependencies the Smart Scheduler was built with — the Controller needs
// them directly for retry_occurrence and recover_missed_tasks, which act
// on the repository without going through a timer.
func New(
	scheduler SmartScheduler,
	repo repository.Repository,
	taskSched orchestrator.Scheduler,
	recoverySvc orchestrator.RecoveryService,
	cal orchestrator.Calendar,
	workingHours []domain.WorkingHours,
	slotPool []domain.TimeSlot,
	maxPerDay int,
	c clock.Clock,
) *Controller {
	return &Controller{
		scheduler:    scheduler,
		repo:         repo,
		taskSched:    taskSched,
		recovery:     recoverySvc,
		calendar:     cal,
		clock:        c,
		workingHours: workingHours,
		slotPool:     slotPool,
		maxPerDay:    maxPerDay,
	}
}

// Start resumes the scheduler, arms every eligible occurrence, and runs an
// immediate missed-task check.
func (c *Controller) Start(ctx context.Context) error {
	return c.scheduler.Start(ctx)
}

// Pause cancels every armed timer and freezes scheduling.
func (c *Controller) Pause() {
	c.scheduler.Pause()
}

// Resume is equivalent to Start.
func (c *Controller) Resume(ctx context.Context) error {
	return c.scheduler.Start(ctx)
}

// MarkDone treats occ_id as completed right now and runs the usual
// retry/recurrence chain. It is a no-op, not an error, if the occurrence
// was already marked done — schedule_occurrence's idempotent-completion
// invariant applies equally here.
func (c *Controller) MarkDone(ctx context.Context, occurrenceID string) error {
	occ, err := c.findOccurrence(ctx, occurrenceID)
	if err != nil {
		return err
	}
	done, err := c.isDone(ctx, occurrenceID)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	return c.scheduler.TriggerNow(ctx, *occ)
}

// RetryOccurrence forces a retry attempt for occurrenceID. It returns nil,
// nil if the occurrence is already done or its task's remaining retry
// budget is exhausted.
func (c *Controller) RetryOccurrence(ctx context.Context, occurrenceID string) (*domain.TaskOccurrence, error) {
	occ, err := c.findOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	done, err := c.isDone(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, nil
	}

	policy, err := c.retryPolicyFor(ctx, *occ)
	if err != nil {
		return nil, err
	}
	return c.scheduler.RetryOccurrence(ctx, *occ, policy)
}

// GetScheduledOccurrences returns a snapshot of the occurrences currently
// carrying a live timer.
func (c *Controller) GetScheduledOccurrences(ctx context.Context) ([]domain.TaskOccurrence, error) {
	armed := make(map[string]bool)
	for _, id := range c.scheduler.ArmedOccurrenceIDs() {
		armed[id] = true
	}
	occurrences, err := c.repo.ListOccurrences(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TaskOccurrence, 0, len(armed))
	for _, occ := range occurrences {
		if armed[occ.ID] {
			out = append(out, occ)
		}
	}
	return out, nil
}

// RecoverMissedTasks runs the recovery sweep on demand and arms whatever
// catch-up occurrences it proposes.
func (c *Controller) RecoverMissedTasks(ctx context.Context) ([]domain.TaskOccurrence, error) {
	occurrences, err := c.repo.ListOccurrences(ctx)
	if err != nil {
		return nil, err
	}
	executions, err := c.repo.ListExecutions(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := c.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	produced := c.recovery.RecoverMissedOccurrences(
		occurrences, executions, tasks, c.clock.Now(),
		c.taskSched, c.calendar, occurrences,
		c.workingHours, c.slotPool, c.maxPerDay,
	)

	for _, occ := range produced {
		if err := c.repo.AddOccurrence(ctx, occ); err != nil {
			return nil, err
		}
		if err := c.scheduler.ScheduleOccurrence(ctx, occ); err != nil {
			return nil, err
		}
	}
	return produced, nil
}

func (c *Controller) findOccurrence(ctx context.Context, occurrenceID string) (*domain.TaskOccurrence, error) {
	occurrences, err := c.repo.ListOccurrences(ctx)
	if err != nil {
		return nil, err
	}
	for _, occ := range occurrences {
		if occ.ID == occurrenceID {
			return &occ, nil
		}
	}
	return nil, &domain.UnknownOccurrenceError{OccurrenceID: occurrenceID}
}

func (c *Controller) isDone(ctx context.Context, occurrenceID string) (bool, error) {
	executions, err := c.repo.ListExecutions(ctx)
	if err != nil {
		return false, err
	}
	for _, exec := range executions {
		if exec.OccurrenceID == occurrenceID && exec.State == domain.ExecutionDone {
			return true, nil
		}
	}
	return false, nil
}

// retryPolicyFor derives the retry budget to hand to RetryOccurrence: the
// latest execution's remaining count if one exists, otherwise the task's
// configured maximum. Mirrors the Recovery Service's own derivation.
func (c *Controller) retryPolicyFor(ctx context.Context, occ domain.TaskOccurrence) (domain.RetryPolicy, error) {
	executions, err := c.repo.ListExecutions(ctx)
	if err != nil {
		return domain.RetryPolicy{}, err
	}
	for _, exec := range executions {
		if exec.OccurrenceID == occ.ID {
			return domain.RetryPolicy{MaxRetries: exec.RetriesRemaining}, nil
		}
	}

	task, err := c.repo.GetTask(ctx, occ.TaskID)
	if err != nil {
		return domain.RetryPolicy{}, err
	}
	if task == nil {
		return domain.RetryPolicy{}, &domain.UnknownTaskError{TaskID: occ.TaskID}
	}
	return task.RetryPolicy, nil
}
