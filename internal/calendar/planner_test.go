package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adil-adysh/plan-flow/internal/calendar"
	"github.com/adil-adysh/plan-flow/internal/domain"
)

func weekdayWorkingHours(day domain.Weekday, startHour, endHour int, slots ...string) domain.WorkingHours {
	return domain.WorkingHours{
		Day:          day,
		Start:        domain.NewTimeOfDay(startHour, 0, 0),
		End:          domain.NewTimeOfDay(endHour, 0, 0),
		AllowedSlots: slots,
	}
}

func mondayWorkingHours() []domain.WorkingHours {
	return []domain.WorkingHours{weekdayWorkingHours(domain.Monday, 9, 22, "morning", "evening")}
}

func slotPool() []domain.TimeSlot {
	return []domain.TimeSlot{
		{Name: "morning", Start: domain.NewTimeOfDay(9, 0, 0), End: domain.NewTimeOfDay(12, 0, 0)},
		{Name: "evening", Start: domain.NewTimeOfDay(20, 0, 0), End: domain.NewTimeOfDay(22, 0, 0)},
	}
}

// 2025-01-13 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2025, 1, 13, hour, minute, 0, 0, time.UTC)
}

func TestIsSlotAvailable_WithinWorkingHours(t *testing.T) {
	p := calendar.New()
	assert.True(t, p.IsSlotAvailable(monday(9, 0), nil, mondayWorkingHours(), 5, nil))
}

func TestIsSlotAvailable_NoWorkingHoursForWeekday(t *testing.T) {
	p := calendar.New()
	tuesday := monday(9, 0).AddDate(0, 0, 1)
	assert.False(t, p.IsSlotAvailable(tuesday, nil, mondayWorkingHours(), 5, nil))
}

func TestIsSlotAvailable_HalfOpenEndBoundary(t *testing.T) {
	p := calendar.New()
	wh := mondayWorkingHours()
	assert.True(t, p.IsSlotAvailable(monday(9, 0), nil, wh, 5, nil), "start boundary is inclusive")
	assert.False(t, p.IsSlotAvailable(monday(22, 0), nil, wh, 5, nil), "end boundary is exclusive")
}

func TestIsSlotAvailable_PerDayCap(t *testing.T) {
	p := calendar.New()
	scheduled := []domain.TaskOccurrence{
		{ID: "o1", ScheduledFor: monday(9, 0)},
		{ID: "o2", ScheduledFor: monday(10, 0)},
	}
	assert.False(t, p.IsSlotAvailable(monday(11, 0), scheduled, mondayWorkingHours(), 2, nil))
	assert.True(t, p.IsSlotAvailable(monday(11, 0), scheduled, mondayWorkingHours(), 3, nil))
}

func TestIsSlotAvailable_MaxPerDayZero_AlwaysUnavailable(t *testing.T) {
	p := calendar.New()
	assert.False(t, p.IsSlotAvailable(monday(9, 0), nil, mondayWorkingHours(), 0, nil))
}

func TestIsSlotAvailable_Collision(t *testing.T) {
	p := calendar.New()
	scheduled := []domain.TaskOccurrence{{ID: "o1", ScheduledFor: monday(9, 0)}}
	assert.False(t, p.IsSlotAvailable(monday(9, 0), scheduled, mondayWorkingHours(), 5, nil))
}

func TestIsSlotAvailable_SlotPoolConstraint(t *testing.T) {
	p := calendar.New()
	wh := mondayWorkingHours()
	pool := slotPool()
	assert.True(t, p.IsSlotAvailable(monday(9, 0), nil, wh, 5, pool), "09:00 is inside the morning slot")
	assert.False(t, p.IsSlotAvailable(monday(13, 0), nil, wh, 5, pool), "13:00 matches no allowed slot")
}

func TestIsPinnedTimeValid_BypassesSlotPool(t *testing.T) {
	p := calendar.New()
	wh := mondayWorkingHours()
	assert.True(t, p.IsPinnedTimeValid(monday(13, 0), nil, wh, 5), "pinned times ignore slot_pool entirely")
	assert.False(t, p.IsPinnedTimeValid(monday(23, 0), nil, wh, 5), "but still respect working hours")
}

func TestNextAvailableSlot_FindsFirstCandidateStrictlyAfter(t *testing.T) {
	p := calendar.New()
	after := monday(8, 0)
	next := p.NextAvailableSlot(after, slotPool(), nil, mondayWorkingHours(), 5, nil)
	require.NotNil(t, next)
	assert.True(t, next.Equal(monday(9, 0)))
}

func TestNextAvailableSlot_SkipsOccupiedSlot(t *testing.T) {
	p := calendar.New()
	scheduled := []domain.TaskOccurrence{{ID: "o1", ScheduledFor: monday(9, 0)}}
	next := p.NextAvailableSlot(monday(8, 0), slotPool(), scheduled, mondayWorkingHours(), 5, nil)
	require.NotNil(t, next)
	assert.True(t, next.Equal(monday(20, 0)))
}

func TestNextAvailableSlot_HolidaySkipped(t *testing.T) {
	p := calendar.New()
	// Only Monday has working hours; starting the search on Monday evening
	// should skip straight past Tue-Sun to the following Monday.
	after := monday(21, 0)
	wh := mondayWorkingHours()
	next := p.NextAvailableSlot(after, slotPool(), nil, wh, 5, nil)
	require.NotNil(t, next)
	assert.Equal(t, domain.Monday, domain.WeekdayOf(next.Weekday()))
	assert.True(t, next.After(after))
}

func TestNextAvailableSlot_NoSlotWithinWindow_ReturnsNil(t *testing.T) {
	p := calendar.New()
	// No working hours configured at all.
	next := p.NextAvailableSlot(monday(8, 0), slotPool(), nil, nil, 5, nil)
	assert.Nil(t, next)
}

func TestNextAvailableSlot_ZeroLengthWindow_NoCandidates(t *testing.T) {
	p := calendar.New()
	wh := []domain.WorkingHours{{Day: domain.Monday, Start: domain.NewTimeOfDay(9, 0, 0), End: domain.NewTimeOfDay(9, 0, 0)}}
	next := p.NextAvailableSlot(monday(8, 0), slotPool(), nil, wh, 5, nil)
	assert.Nil(t, next)
}

func TestNextAvailableSlot_PriorityHintDoesNotChangeOutcome(t *testing.T) {
	p := calendar.New()
	high := domain.PriorityHigh.Rank()
	low := domain.PriorityLow.Rank()
	withHigh := p.NextAvailableSlot(monday(8, 0), slotPool(), nil, mondayWorkingHours(), 5, &high)
	withLow := p.NextAvailableSlot(monday(8, 0), slotPool(), nil, mondayWorkingHours(), 5, &low)
	require.NotNil(t, withHigh)
	require.NotNil(t, withLow)
	assert.True(t, withHigh.Equal(*withLow))
}
