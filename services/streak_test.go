package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var day0 = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestAdvanceStreak_FirstActivity(t *testing.T) {
	update := AdvanceStreak(time.Time{}, 0, 0, day0)
	assert.Equal(t, 1, update.CurrentStreak)
	assert.Equal(t, 1, update.LongestStreak)
	assert.True(t, update.Extended)
	assert.True(t, update.Changed)
	assert.False(t, update.Broken)
}

func TestAdvanceStreak_SameDayIsNoOp(t *testing.T) {
	// Second activity later the same day, including a different time of day.
	update := AdvanceStreak(day0, 5, 9, day0.Add(17*time.Hour))
	assert.Equal(t, 5, update.CurrentStreak)
	assert.Equal(t, 9, update.LongestStreak)
	assert.False(t, update.Changed)
}

func TestAdvanceStreak_NextDayExtends(t *testing.T) {
	update := AdvanceStreak(day0, 5, 5, day0.AddDate(0, 0, 1))
	assert.Equal(t, 6, update.CurrentStreak)
	assert.Equal(t, 6, update.LongestStreak)
	assert.True(t, update.Extended)
	assert.True(t, update.Changed)
}

func TestAdvanceStreak_GapResets(t *testing.T) {
	update := AdvanceStreak(day0, 5, 12, day0.AddDate(0, 0, 3))
	assert.Equal(t, 1, update.CurrentStreak)
	assert.Equal(t, 12, update.LongestStreak, "longest streak survives a reset")
	assert.True(t, update.Broken)
	assert.True(t, update.Changed)
}

func TestAdvanceStreak_BackwardsClockLeavesRecordAlone(t *testing.T) {
	update := AdvanceStreak(day0, 5, 5, day0.AddDate(0, 0, -1))
	assert.Equal(t, 5, update.CurrentStreak)
	assert.False(t, update.Changed)
}

func TestDay_TruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:30 on March 11 in UTC+5 is still March 10 in UTC.
	local := time.Date(2026, 3, 11, 2, 30, 0, 0, loc)
	assert.Equal(t, day0, Day(local))
}
