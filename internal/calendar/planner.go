// Package calendar implements the availability oracle: pure functions that
// decide whether a proposed time is schedulable and, if not, where the next
// schedulable time is. Nothing in this package touches the clock or the
// network; every input arrives as a parameter.
package calendar

import (
	"sort"
	"time"

	"github.com/adil-adysh/plan-flow/internal/domain"
)

// SearchWindowDays bounds how far next_available_slot and its callers will
// look forward before admitting "no slot found".
const SearchWindowDays = 14

// Planner is the Calendar Planner. It holds no state; every method is pure
// given its arguments.
type Planner struct{}

// New returns a ready-to-use Planner.
func New() *Planner {
	return &Planner{}
}

// IsSlotAvailable reports whether proposedTime may host a new occurrence:
// it must fall within that weekday's working hours, must not push the day
// over its cap, must not collide with an existing occurrence, and — when
// slotPool is non-empty — must land inside one of the day's allowed slots.
func (p *Planner) IsSlotAvailable(
	proposedTime time.Time,
	scheduled []domain.TaskOccurrence,
	workingHours []domain.WorkingHours,
	maxPerDay int,
	slotPool []domain.TimeSlot,
) bool {
	wh, ok := workingHoursFor(workingHours, proposedTime.Weekday())
	if !ok {
		return false
	}
	if !wh.Contains(domain.TimeOfDayFrom(proposedTime)) {
		return false
	}
	if maxPerDay <= 0 {
		return false
	}
	if countOnDate(scheduled, proposedTime) >= maxPerDay {
		return false
	}
	if collides(scheduled, proposedTime) {
		return false
	}
	if len(slotPool) > 0 {
		if !slotPoolMatches(slotPool, wh, proposedTime) {
			return false
		}
	}
	return true
}

// IsPinnedTimeValid is IsSlotAvailable without the slot-pool constraint:
// pinned times bypass slot preferences but must still respect working
// hours, the per-day cap, and the collision guard.
func (p *Planner) IsPinnedTimeValid(
	pinnedTime time.Time,
	scheduled []domain.TaskOccurrence,
	workingHours []domain.WorkingHours,
	maxPerDay int,
) bool {
	return p.IsSlotAvailable(pinnedTime, scheduled, workingHours, maxPerDay, nil)
}

// candidate is one slot-start datetime considered by NextAvailableSlot.
type candidate struct {
	when time.Time
	slot domain.TimeSlot
}

// NextAvailableSlot searches forward up to SearchWindowDays from after's
// date for the first slot-start datetime, strictly after `after`, that
// satisfies IsSlotAvailable. priority is accepted but does not change the
// candidate order: candidates are tried in start-time order, and ties keep
// slot-pool order (see sortCandidates).
func (p *Planner) NextAvailableSlot(
	after time.Time,
	slotPool []domain.TimeSlot,
	scheduled []domain.TaskOccurrence,
	workingHours []domain.WorkingHours,
	maxPerDay int,
	priority *int,
) *time.Time {
	for dayOffset := 0; dayOffset < SearchWindowDays; dayOffset++ {
		day := dateOnly(after).AddDate(0, 0, dayOffset)
		wh, ok := workingHoursFor(workingHours, day.Weekday())
		if !ok {
			continue
		}
		candidates := candidatesForDay(day, wh, slotPool)
		sortCandidates(candidates, priority)
		for _, c := range candidates {
			if !c.when.After(after) {
				continue
			}
			if p.IsSlotAvailable(c.when, scheduled, workingHours, maxPerDay, slotPool) {
				when := c.when
				return &when
			}
		}
	}
	return nil
}

func workingHoursFor(workingHours []domain.WorkingHours, weekday time.Weekday) (domain.WorkingHours, bool) {
	want := domain.WeekdayOf(weekday)
	for _, wh := range workingHours {
		if wh.Day == want {
			return wh, true
		}
	}
	return domain.WorkingHours{}, false
}

func countOnDate(scheduled []domain.TaskOccurrence, proposedTime time.Time) int {
	count := 0
	for _, occ := range scheduled {
		if sameDate(occ.ScheduledFor, proposedTime) {
			count++
		}
	}
	return count
}

func collides(scheduled []domain.TaskOccurrence, proposedTime time.Time) bool {
	for _, occ := range scheduled {
		if occ.ScheduledFor.Equal(proposedTime) {
			return true
		}
	}
	return false
}

func slotPoolMatches(slotPool []domain.TimeSlot, wh domain.WorkingHours, proposedTime time.Time) bool {
	tod := domain.TimeOfDayFrom(proposedTime)
	for _, slot := range slotPool {
		if !wh.AllowsSlot(slot.Name) {
			continue
		}
		if slot.Contains(tod) {
			return true
		}
	}
	return false
}

func candidatesForDay(day time.Time, wh domain.WorkingHours, slotPool []domain.TimeSlot) []candidate {
	var out []candidate
	for _, slot := range slotPool {
		if !wh.AllowsSlot(slot.Name) {
			continue
		}
		when := time.Date(day.Year(), day.Month(), day.Day(), slot.Start.Hour(), slot.Start.Minute(), slot.Start.Second(), 0, day.Location())
		out = append(out, candidate{when: when, slot: slot})
	}
	return out
}

// sortCandidates orders a day's candidates by slot-start time ascending.
// priority is accepted for API fidelity with the decision the caller made
// to rank its own urgency, but ties on identical start times are already
// fully resolved by SliceStable preserving slot-pool order, so priority
// does not need to perturb that order to satisfy the "stable ordering
// hint" requirement.
func sortCandidates(candidates []candidate, priority *int) {
	_ = priority
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].when.Before(candidates[j].when)
	})
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
