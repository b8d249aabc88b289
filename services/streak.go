package services

import "time"

// StreakUpdate is the result of advancing a user's daily streak.
type StreakUpdate struct {
	CurrentStreak int
	LongestStreak int
	Extended      bool // streak grew by one (or started)
	Broken        bool // a gap reset the streak to 1
	Changed       bool // false on same-day replay
}

// AdvanceStreak applies the daily-streak rule for an activity on `today`.
// Same day: no change. Next day: streak +1. Any gap: reset to 1. Longest
// streak tracks the maximum ever reached. Both dates are compared as
// platform-UTC calendar days.
func AdvanceStreak(lastActive time.Time, currentStreak, longestStreak int, today time.Time) StreakUpdate {
	today = Day(today)
	last := Day(lastActive)

	update := StreakUpdate{CurrentStreak: currentStreak, LongestStreak: longestStreak}

	if lastActive.IsZero() || currentStreak == 0 {
		update.CurrentStreak = 1
		update.Extended = true
		update.Changed = true
	} else if today.Equal(last) {
		// Same-day replay is a no-op.
		return update
	} else if today.Equal(last.AddDate(0, 0, 1)) {
		update.CurrentStreak = currentStreak + 1
		update.Extended = true
		update.Changed = true
	} else if today.After(last) {
		update.CurrentStreak = 1
		update.Broken = true
		update.Changed = true
	} else {
		// Clock went backwards relative to the stored date; leave the
		// record alone rather than corrupt the streak.
		return update
	}

	if update.CurrentStreak > update.LongestStreak {
		update.LongestStreak = update.CurrentStreak
	}
	return update
}
