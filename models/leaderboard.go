package models

import "time"

// LeaderboardPeriod selects which record set a ranking is computed over.
// All-time ranks live ProgressionRecords; weekly/monthly serve the latest
// captured snapshot.
type LeaderboardPeriod string

const (
	LeaderboardPeriodWeekly  LeaderboardPeriod = "weekly"
	LeaderboardPeriodMonthly LeaderboardPeriod = "monthly"
	LeaderboardPeriodAllTime LeaderboardPeriod = "all_time"
)

// IsValid reports whether the period is one of the known values.
func (p LeaderboardPeriod) IsValid() bool {
	switch p {
	case LeaderboardPeriodWeekly, LeaderboardPeriodMonthly, LeaderboardPeriodAllTime:
		return true
	default:
		return false
	}
}

// LeaderboardDimension is the scoring axis.
type LeaderboardDimension string

const (
	LeaderboardDimensionXP     LeaderboardDimension = "xp"
	LeaderboardDimensionStreak LeaderboardDimension = "streak"
)

// IsValid reports whether the dimension is one of the known values.
func (d LeaderboardDimension) IsValid() bool {
	return d == LeaderboardDimensionXP || d == LeaderboardDimensionStreak
}

// LeaderboardEntry is a derived, ephemeral ranking row. Rank is 1-based and
// strictly increasing; ties on score are broken by user id ascending.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Rank   int    `json:"rank"`
	Score  int64  `json:"score"`
}

// LeaderboardSnapshot is a captured ranking for a (period, dimension) pair.
// Snapshots are reproducible from ProgressionRecords and never authoritative.
type LeaderboardSnapshot struct {
	ID         string               `gorm:"primaryKey;type:uuid" json:"id"`
	Period     LeaderboardPeriod    `gorm:"type:varchar(16);index:idx_snapshot_period_dim;not null" json:"period"`
	Dimension  LeaderboardDimension `gorm:"type:varchar(16);index:idx_snapshot_period_dim;not null" json:"dimension"`
	Entries    []LeaderboardEntry   `gorm:"type:jsonb;serializer:json" json:"entries"`
	CapturedAt time.Time            `gorm:"index;autoCreateTime" json:"captured_at"`
}
