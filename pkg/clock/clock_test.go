package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adil-adysh/plan-flow/pkg/clock"
)

func TestSystem_Now_IsCloseToRealNow(t *testing.T) {
	before := time.Now()
	got := (clock.System{}).Now()
	after := time.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestFake_AdvanceAndSet(t *testing.T) {
	start := time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)
	assert.True(t, f.Now().Equal(start))

	f.Advance(time.Hour)
	assert.True(t, f.Now().Equal(start.Add(time.Hour)))

	pinned := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	f.Set(pinned)
	assert.True(t, f.Now().Equal(pinned))
}
