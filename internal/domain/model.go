// Package domain holds the immutable value types shared by every scheduling
// component: task definitions, the occurrences scheduled from them, and the
// execution records produced when an occurrence fires.
package domain

import (
	"fmt"
	"time"
)

// Priority tie-breaks same-day conflicts; high schedules before medium
// before low.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns the priority's tie-break rank: lower ranks schedule earlier.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Weekday names a day of the week, independent of any particular calendar
// date. Values match time.Weekday's ordering but are spelled out in full.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdayNames = [...]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf converts a standard library weekday into a domain Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return weekdayNames[int(d)%7]
}

// TimeOfDay is a time-of-day with second precision, independent of any date.
// It is stored as seconds since local midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour/minute/second triple.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// TimeOfDayFrom extracts the time-of-day component of a timestamp.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := unmarshalQuoted(data, &s); err != nil {
		return err
	}
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return fmt.Errorf("parse time-of-day %q: %w", s, err)
	}
	*t = NewTimeOfDay(h, m, sec)
	return nil
}

// RetryPolicy bounds how many times a missed occurrence may be rescheduled.
type RetryPolicy struct {
	MaxRetries int `json:"max_retries"`
}

// TaskDefinition is the user-authored template a task occurrence is spawned
// from. Definitions are created once and never mutated.
type TaskDefinition struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Link           string         `json:"link,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Recurrence     *time.Duration `json:"recurrence,omitempty"`
	Priority       Priority       `json:"priority"`
	PreferredSlots []string       `json:"preferred_slots,omitempty"`
	RetryPolicy    RetryPolicy    `json:"retry_policy"`
	// PinnedTime is the "next planned" hint consulted by get_next_occurrence;
	// when set and still valid it takes priority over recurrence/slot search.
	PinnedTime *time.Time `json:"pinned_time,omitempty"`
	// NotifyChannel selects which notification handler ("webhook", "email")
	// the notifier process dispatches a trigger event to. Empty means the
	// trigger is recorded but nothing is dispatched.
	NotifyChannel string `json:"notify_channel,omitempty"`
}

// TaskOccurrence is one concrete scheduled firing of a task.
type TaskOccurrence struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"task_id"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	SlotName     string     `json:"slot_name,omitempty"`
	PinnedTime   *time.Time `json:"pinned_time,omitempty"`
}

// IsPinned reports whether this occurrence carries an explicit user-chosen
// time, which excludes it from automatic recovery.
func (o TaskOccurrence) IsPinned() bool {
	return o.PinnedTime != nil
}

// ExecutionState is the lifecycle state of a TaskExecution.
type ExecutionState string

const (
	ExecutionPending   ExecutionState = "pending"
	ExecutionDone      ExecutionState = "done"
	ExecutionMissed    ExecutionState = "missed"
	ExecutionCancelled ExecutionState = "cancelled"
)

// EventKind tags one entry in a TaskExecution's history.
type EventKind string

const (
	EventTriggered   EventKind = "triggered"
	EventMissed      EventKind = "missed"
	EventRescheduled EventKind = "rescheduled"
	EventCompleted   EventKind = "completed"
)

// TaskEvent is one append-only entry in a TaskExecution's history.
type TaskEvent struct {
	Event     EventKind `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskExecution is the runtime record of one occurrence's lifecycle. A new
// execution row is written on every trigger; nothing is ever mutated
// in-place.
type TaskExecution struct {
	OccurrenceID     string         `json:"occurrence_id"`
	State            ExecutionState `json:"state"`
	RetriesRemaining int            `json:"retries_remaining"`
	History          []TaskEvent    `json:"history"`
}

// IsReschedulable reports whether this execution still has retries left and
// has not reached a terminal state.
func (e TaskExecution) IsReschedulable() bool {
	return e.RetriesRemaining > 0 && e.State != ExecutionDone && e.State != ExecutionCancelled
}

// RetryCount derives how many retries have been consumed so far, given the
// policy's original maximum.
func (e TaskExecution) RetryCount(initialMax int) int {
	return initialMax - e.RetriesRemaining
}

// LastEventTime returns the timestamp of the most recent history entry, or
// nil if the history is empty.
func (e TaskExecution) LastEventTime() *time.Time {
	if len(e.History) == 0 {
		return nil
	}
	latest := e.History[0].Timestamp
	for _, ev := range e.History[1:] {
		if ev.Timestamp.After(latest) {
			latest = ev.Timestamp
		}
	}
	return &latest
}

// TimeSlot is a named recurring daily window, e.g. "morning" 09:00-12:00.
type TimeSlot struct {
	Name  string    `json:"name"`
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether t falls in this slot's half-open window.
func (s TimeSlot) Contains(t TimeOfDay) bool {
	return t >= s.Start && t < s.End
}

// WorkingHours is the per-weekday envelope within which scheduling is
// permitted, plus which named slots are allowed on that day.
type WorkingHours struct {
	Day          Weekday   `json:"day"`
	Start        TimeOfDay `json:"start"`
	End          TimeOfDay `json:"end"`
	AllowedSlots []string  `json:"allowed_slots,omitempty"`
}

// Contains reports whether t falls within this day's half-open working
// window.
func (w WorkingHours) Contains(t TimeOfDay) bool {
	return t >= w.Start && t < w.End
}

// AllowsSlot reports whether the named slot is permitted on this day.
func (w WorkingHours) AllowsSlot(name string) bool {
	for _, s := range w.AllowedSlots {
		if s == name {
			return true
		}
	}
	return false
}

func unmarshalQuoted(data []byte, out *string) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("expected quoted string, got %s", data)
	}
	*out = string(data[1 : len(data)-1])
	return nil
}
