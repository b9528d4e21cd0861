// Package orchestrator implements the Smart Scheduler: the stateful
// component that arms a timer for every upcoming occurrence, runs the
// trigger pipeline when one fires, and reconciles against occurrences that
// were missed entirely (process was down, or paused) when Start runs and
// whenever CheckForMissedTasks is called. There is no periodic sweep loop.
//
// Every exported method acquires the orchestrator's mutex exactly once and
// delegates to an unexported "Locked" twin. Locked twins assume the lock is
// already held and call only other Locked twins, never back through an
// exported entry point — sync.Mutex is not reentrant, so a Locked method
// that triggers a fresh schedule (onTriggerLocked calling
// scheduleOccurrenceLocked, for instance) must reach the twin directly.
package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/adil-adysh/plan-flow/internal/domain"
	"github.com/adil-adysh/plan-flow/internal/recovery"
	"github.com/adil-adysh/plan-flow/internal/repository"
	"github.com/adil-adysh/plan-flow/internal/taskscheduler"
)

// RecoveryGraceSeconds is how long past its scheduled time an occurrence may
// fire on the normal trigger path before it is instead routed through a full
// recovery sweep.
const RecoveryGraceSeconds = 30

// Calendar is the availability oracle consulted by Scheduler. It is a type
// alias for taskscheduler.Calendar rather than a freshly declared
// interface: a method signature naming an interface type is only
// identical to another if the interface type itself is identical, so
// aliasing here is what lets *taskscheduler.Scheduler and *recovery.Service
// satisfy the interfaces below without an adapter.
type Calendar = taskscheduler.Calendar

// Scheduler is the subset of the Task Scheduler the orchestrator drives.
type Scheduler interface {
	GetNextOccurrence(task domain.TaskDefinition, fromTime time.Time, calendar Calendar, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, slotPool []domain.TimeSlot, maxPerDay int) *domain.TaskOccurrence
	RescheduleRetry(occurrence domain.TaskOccurrence, policy domain.RetryPolicy, now time.Time, calendar Calendar, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, slotPool []domain.TimeSlot, maxPerDay int) *domain.TaskOccurrence
}

// RecoveryService is the subset of the Recovery Service the orchestrator
// drives when a safety sweep finds occurrences missed beyond the grace
// window. Its scheduler parameter is recovery.Scheduler, not Scheduler
// above, for the same type-identity reason Calendar is an alias: that is
// the exact type *recovery.Service's method declares.
type RecoveryService interface {
	RecoverMissedOccurrences(occurrences []domain.TaskOccurrence, executions []domain.TaskExecution, tasks []domain.TaskDefinition, now time.Time, scheduler recovery.Scheduler, calendar Calendar, scheduled []domain.TaskOccurrence, workingHours []domain.WorkingHours, slotPool []domain.TimeSlot, maxPerDay int) []domain.TaskOccurrence
}

// Clock is the injected time source.
type Clock interface {
	Now() time.Time
}

// TriggerEvent describes the outcome of firing one occurrence, handed to a
// Notifier so side effects (push notifications, webhooks, email) stay out
// of the orchestrator itself.
type TriggerEvent struct {
	Task       domain.TaskDefinition
	Occurrence domain.TaskOccurrence
	Execution  domain.TaskExecution
	// Next is the occurrence armed as a consequence of this trigger, if
	// any (a retry or the task's next recurrence).
	Next *domain.TaskOccurrence
}

// Notifier receives side-effect notifications. A nil Notifier (the default)
// makes every call a no-op.
type Notifier interface {
	NotifyTriggered(ctx context.Context, event TriggerEvent)
}

// Metrics receives counters for observability. A nil Metrics (the default)
// makes every call a no-op.
type Metrics interface {
	TimerArmed()
	TimerCancelled()
	OccurrenceTriggered()
	RecoverySweepRan(produced int)
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger overrides the default discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the default wall clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithNotifier registers a Notifier for trigger side effects.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithMetrics registers a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type noopNotifier struct{}

func (noopNotifier) NotifyTriggered(context.Context, TriggerEvent) {}

type noopMetrics struct{}

func (noopMetrics) TimerArmed()          {}
func (noopMetrics) TimerCancelled()      {}
func (noopMetrics) OccurrenceTriggered() {}
func (noopMetrics) RecoverySweepRan(int) {}

// timerEntry wraps a *time.Timer so a timer callback can tell, under the
// lock, whether it is still the one the map expects. A stopped timer can
// still have a goroutine in flight for a callback that was already queued;
// identity comparison against the current map entry is how that stale fire
// is turned into a no-op instead of double-triggering.
type timerEntry struct {
	timer *time.Timer
}

// Orchestrator is the Smart Scheduler.
type Orchestrator struct {
	mu sync.Mutex

	repo      repository.Repository
	scheduler Scheduler
	calendar  Calendar
	recovery  RecoveryService
	clock     Clock
	notifier  Notifier
	metrics   Metrics
	logger    *slog.Logger

	workingHours []domain.WorkingHours
	slotPool     []domain.TimeSlot
	maxPerDay    int

	timers map[string]*timerEntry
	paused bool

	// runCtx is the context captured at Start and used by work that
	// happens asynchronously from a timer callback, long after the
	// context passed to the call that armed the timer may have expired.
	runCtx context.Context
}

// New builds an Orchestrator. workingHours, slotPool, and maxPerDay are the
// scheduling envelope passed through to every Calendar/Scheduler call.
func New(
	repo repository.Repository,
	scheduler Scheduler,
	calendar Calendar,
	recovery RecoveryService,
	workingHours []domain.WorkingHours,
	slotPool []domain.TimeSlot,
	maxPerDay int,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		repo:         repo,
		scheduler:    scheduler,
		calendar:     calendar,
		recovery:     recovery,
		clock:        systemClock{},
		notifier:     noopNotifier{},
		metrics:      noopMetrics{},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		workingHours: workingHours,
		slotPool:     slotPool,
		maxPerDay:    maxPerDay,
		timers:       make(map[string]*timerEntry),
		paused:       false,
		runCtx:       context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start unpauses the orchestrator, cancels any stale timers, arms a timer
// for every future unexecuted occurrence, and runs an immediate safety
// sweep for anything missed while it was stopped.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.runCtx = ctx
	o.paused = false
	o.cancelAllTimersLocked()
	if err := o.scheduleAllLocked(ctx); err != nil {
		return err
	}
	return o.checkForMissedTasksLocked(ctx)
}

// Pause cancels every armed timer and stops new ones from being armed
// until Start is called again.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
	o.cancelAllTimersLocked()
}

// IsPaused reports whether the orchestrator is currently paused.
func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

// ScheduleAll arms a timer for every occurrence on record that is both
// unexecuted and scheduled for the future.
func (o *Orchestrator) ScheduleAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scheduleAllLocked(ctx)
}

// ScheduleOccurrence arms (or re-arms) a single occurrence's timer, after
// re-validating that its slot is still available among the other
// occurrences on record.
func (o *Orchestrator) ScheduleOccurrence(ctx context.Context, occ domain.TaskOccurrence) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scheduleOccurrenceLocked(ctx, occ)
}

// CheckForMissedTasks walks every unexecuted occurrence and, for each one
// past its scheduled time, either fires it immediately (within the grace
// window) or routes it into a recovery sweep (beyond it).
func (o *Orchestrator) CheckForMissedTasks(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkForMissedTasksLocked(ctx)
}

// TriggerNow runs the trigger pipeline for occ immediately, bypassing the
// timer. Used by the Controller's mark_done command.
func (o *Orchestrator) TriggerNow(ctx context.Context, occ domain.TaskOccurrence) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.timers, occ.ID)
	return o.onTriggerLocked(ctx, occ)
}

// RetryOccurrence forces a retry attempt for occ's task, using policy.MaxRetries
// as the current retry budget. It returns the newly armed occurrence, or nil
// if no retry could be placed (exhausted or no slot available).
func (o *Orchestrator) RetryOccurrence(ctx context.Context, occ domain.TaskOccurrence, policy domain.RetryPolicy) (*domain.TaskOccurrence, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	scheduled, err := o.repo.ListOccurrences(ctx)
	if err != nil {
		return nil, err
	}
	now := o.clock.Now()
	next := o.scheduler.RescheduleRetry(occ, policy, now, o.calendar, scheduled, o.workingHours, o.slotPool, o.maxPerDay)
	if next == nil {
		return nil, nil
	}
	if err := o.repo.AddOccurrence(ctx, *next); err != nil {
		return nil, err
	}
	if err := o.scheduleOccurrenceLocked(ctx, *next); err != nil {
		return nil, err
	}
	return next, nil
}

// ArmedOccurrenceIDs returns the ids of occurrences that currently have a
// live timer.
func (o *Orchestrator) ArmedOccurrenceIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.timers))
	for id := range o.timers {
		ids = append(ids, id)
	}
	return ids
}

func (o *Orchestrator) scheduleAllLocked(ctx context.Context) error {
	if o.paused {
		return nil
	}
	occurrences, err := o.repo.ListOccurrences(ctx)
	if err != nil {
		return err
	}
	executions, err := o.repo.ListExecutions(ctx)
	if err != nil {
		return err
	}
	done := doneSet(executions)
	now := o.clock.Now()

	for _, occ := range occurrences {
		if done[occ.ID] || !occ.ScheduledFor.After(now) {
			continue
		}
		if err := o.scheduleOccurrenceLocked(ctx, occ); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) scheduleOccurrenceLocked(ctx context.Context, occ domain.TaskOccurrence) error {
	if o.paused {
		return nil
	}
	executions, err := o.repo.ListExecutions(ctx)
	if err != nil {
		return err
	}
	if doneSet(executions)[occ.ID] {
		return nil
	}

	scheduled, err := o.repo.ListOccurrences(ctx)
	if err != nil {
		return err
	}
	others := excludeByID(scheduled, occ.ID)

	if !o.calendar.IsSlotAvailable(occ.ScheduledFor, others, o.workingHours, o.maxPerDay, o.slotPool) {
		o.logger.Warn("occurrence slot no longer available, dropping", "occurrence_id", occ.ID)
		return nil
	}

	if existing, ok := o.timers[occ.ID]; ok {
		existing.timer.Stop()
		delete(o.timers, occ.ID)
		o.metrics.TimerCancelled()
	}

	delay := occ.ScheduledFor.Sub(o.clock.Now())
	if delay <= 0 {
		return o.onTriggerLocked(ctx, occ)
	}

	entry := &timerEntry{}
	entry.timer = time.AfterFunc(delay, func() { o.fireTimer(entry, occ) })
	o.timers[occ.ID] = entry
	o.metrics.TimerArmed()
	return nil
}

// fireTimer runs on its own goroutine when a time.AfterFunc timer expires.
// It re-enters the orchestrator's lock, which is why the locked/unlocked
// method-pair split exists: this is the one call site outside an exported
// method that needs to acquire the mutex fresh.
func (o *Orchestrator) fireTimer(entry *timerEntry, occ domain.TaskOccurrence) {
	o.mu.Lock()
	defer o.mu.Unlock()

	current, ok := o.timers[occ.ID]
	if !ok || current != entry {
		// Cancelled or replaced after the timer had already queued its
		// callback; treat the stale fire as a no-op.
		return
	}
	delete(o.timers, occ.ID)

	if err := o.onTriggerLocked(o.runCtx, occ); err != nil {
		o.logger.Error("trigger pipeline failed", "occurrence_id", occ.ID, "error", err)
	}
}

func (o *Orchestrator) checkForMissedTasksLocked(ctx context.Context) error {
	if o.paused {
		return nil
	}
	occurrences, err := o.repo.ListOccurrences(ctx)
	if err != nil {
		return err
	}
	executions, err := o.repo.ListExecutions(ctx)
	if err != nil {
		return err
	}
	done := doneSet(executions)
	now := o.clock.Now()
	grace := time.Duration(RecoveryGraceSeconds) * time.Second

	recoveryNeeded := false
	for _, occ := range occurrences {
		if done[occ.ID] {
			continue
		}
		late := now.Sub(occ.ScheduledFor)
		if late <= 0 {
			continue
		}
		if late <= grace {
			if err := o.onTriggerLocked(ctx, occ); err != nil {
				return err
			}
			continue
		}
		recoveryNeeded = true
	}

	if recoveryNeeded {
		return o.triggerRecoveryLocked(ctx)
	}
	return nil
}

// onTriggerLocked is the trigger pipeline: record the execution, then try a
// retry before falling back to the task's recurrence. A dangling task
// reference (occurrence whose task was deleted) is a silent no-op, matching
// how every scheduling decision elsewhere treats a missing task.
func (o *Orchestrator) onTriggerLocked(ctx context.Context, occ domain.TaskOccurrence) error {
	task, err := o.repo.GetTask(ctx, occ.TaskID)
	if err != nil {
		return err
	}
	if task == nil {
		o.logger.Warn("dangling task reference, dropping occurrence", "occurrence_id", occ.ID, "task_id", occ.TaskID)
		return nil
	}

	now := o.clock.Now()
	retriesRemaining := task.RetryPolicy.MaxRetries - 1
	if retriesRemaining < 0 {
		retriesRemaining = 0
	}
	exec := domain.TaskExecution{
		OccurrenceID:     occ.ID,
		State:            domain.ExecutionDone,
		RetriesRemaining: retriesRemaining,
		History:          []domain.TaskEvent{{Event: domain.EventCompleted, Timestamp: now}},
	}
	if err := o.repo.AddExecution(ctx, exec); err != nil {
		return err
	}
	o.metrics.OccurrenceTriggered()

	event := TriggerEvent{Task: *task, Occurrence: occ, Execution: exec}

	scheduled, err := o.repo.ListOccurrences(ctx)
	if err != nil {
		return err
	}

	if exec.RetriesRemaining > 0 {
		next := o.scheduler.RescheduleRetry(occ, task.RetryPolicy, now, o.calendar, scheduled, o.workingHours, o.slotPool, o.maxPerDay)
		if next != nil {
			if err := o.repo.AddOccurrence(ctx, *next); err != nil {
				return err
			}
			if err := o.scheduleOccurrenceLocked(ctx, *next); err != nil {
				return err
			}
			event.Next = next
			o.notifyAsync(event)
			return nil
		}
	}

	if task.Recurrence != nil {
		next := o.scheduler.GetNextOccurrence(*task, now, o.calendar, scheduled, o.workingHours, o.slotPool, o.maxPerDay)
		if next != nil {
			if err := o.repo.AddOccurrence(ctx, *next); err != nil {
				return err
			}
			if err := o.scheduleOccurrenceLocked(ctx, *next); err != nil {
				return err
			}
			event.Next = next
		}
	}

	o.notifyAsync(event)
	return nil
}

// notifyAsync hands event to the notifier on its own goroutine, never the
// caller's. The notifier's publish is a real network call; running it while
// o.mu is held would let a slow or unreachable broker stall Pause and every
// other occurrence's trigger pipeline. It uses o.runCtx rather than the
// trigger's own ctx since the request that triggered it may already have
// returned by the time the goroutine runs.
func (o *Orchestrator) notifyAsync(event TriggerEvent) {
	go o.notifier.NotifyTriggered(o.runCtx, event)
}

// triggerRecoveryLocked runs a full recovery sweep across every occurrence
// on record, arming whatever catch-up occurrences the Recovery Service
// proposes.
func (o *Orchestrator) triggerRecoveryLocked(ctx context.Context) error {
	occurrences, err := o.repo.ListOccurrences(ctx)
	if err != nil {
		return err
	}
	executions, err := o.repo.ListExecutions(ctx)
	if err != nil {
		return err
	}
	tasks, err := o.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	now := o.clock.Now()

	produced := o.recovery.RecoverMissedOccurrences(occurrences, executions, tasks, now, o.scheduler, o.calendar, occurrences, o.workingHours, o.slotPool, o.maxPerDay)
	o.metrics.RecoverySweepRan(len(produced))

	for _, occ := range produced {
		if err := o.repo.AddOccurrence(ctx, occ); err != nil {
			return err
		}
		if err := o.scheduleOccurrenceLocked(ctx, occ); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) cancelAllTimersLocked() {
	for id, entry := range o.timers {
		entry.timer.Stop()
		delete(o.timers, id)
		o.metrics.TimerCancelled()
	}
}

func doneSet(executions []domain.TaskExecution) map[string]bool {
	done := make(map[string]bool, len(executions))
	for _, exec := range executions {
		if exec.State == domain.ExecutionDone {
			done[exec.OccurrenceID] = true
		}
	}
	return done
}

func excludeByID(occurrences []domain.TaskOccurrence, id string) []domain.TaskOccurrence {
	out := make([]domain.TaskOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if occ.ID != id {
			out = append(out, occ)
		}
	}
	return out
}
