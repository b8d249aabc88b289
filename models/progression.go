package models

import (
	"time"

	"gorm.io/gorm"
)

// CourseProgress is the per-course slice of a ProgressionRecord, stored as
// part of the enrolled_courses jsonb column.
type CourseProgress struct {
	ProgressPercent int       `json:"progress_percent"`
	CurrentUnitID   string    `json:"current_unit_id"`
	CompletedUnits  int       `json:"completed_units"`
	EnrolledAt      time.Time `json:"enrolled_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// ProgressionRecord is the single per-user progression document. It is owned
// by the ProgressionService and only ever mutated through its operations;
// Version backs optimistic concurrency on save.
type ProgressionRecord struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // links to auth/profile service

	// Core progression. Level and LevelProgressPercent are derived from
	// TotalXP via the level table and recomputed on every mutation.
	TotalXP              int64 `json:"total_xp" gorm:"default:0"`
	Level                int   `json:"level" gorm:"default:0"`
	LevelProgressPercent int   `json:"level_progress_percent" gorm:"default:0"`

	// Coins. Mutated only through the ledger; every change has a matching
	// CoinTransaction row.
	CoinBalance int64 `json:"coin_balance" gorm:"default:0"`

	// Daily streak, tracked on platform-UTC calendar days.
	CurrentStreak  int       `json:"current_streak" gorm:"default:0"`
	LongestStreak  int       `json:"longest_streak" gorm:"default:0"`
	LastActiveDate time.Time `json:"last_active_date"`

	// Append-only sets.
	CompletedUnits       []string `json:"completed_units" gorm:"type:jsonb;serializer:json"`
	UnlockedAchievements []string `json:"unlocked_achievements" gorm:"type:jsonb;serializer:json"`

	EnrolledCourses map[string]CourseProgress `json:"enrolled_courses" gorm:"type:jsonb;serializer:json"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	// Version guards concurrent saves: UPDATE ... WHERE version = ? must
	// affect exactly one row, otherwise the save is an ErrConflict.
	Version int64 `json:"-" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// NewProgressionRecord creates a zeroed record for a user's first event.
// The first recorded activity counts as day one of the streak.
func NewProgressionRecord(id, userID string, today time.Time) *ProgressionRecord {
	return &ProgressionRecord{
		ID:                   id,
		UserID:               userID,
		CurrentStreak:        1,
		LongestStreak:        1,
		LastActiveDate:       today,
		CompletedUnits:       []string{},
		UnlockedAchievements: []string{},
		EnrolledCourses:      map[string]CourseProgress{},
	}
}

// HasCompletedUnit reports whether unitID is already in the completed set.
func (r *ProgressionRecord) HasCompletedUnit(unitID string) bool {
	for _, id := range r.CompletedUnits {
		if id == unitID {
			return true
		}
	}
	return false
}

// HasAchievement reports whether the achievement is already unlocked.
func (r *ProgressionRecord) HasAchievement(achievementID string) bool {
	for _, id := range r.UnlockedAchievements {
		if id == achievementID {
			return true
		}
	}
	return false
}

// CompletedUnitSet returns the completed units as a lookup set.
func (r *ProgressionRecord) CompletedUnitSet() map[string]bool {
	set := make(map[string]bool, len(r.CompletedUnits))
	for _, id := range r.CompletedUnits {
		set[id] = true
	}
	return set
}

// Clone returns a deep copy, so callers can diff before/after state.
func (r *ProgressionRecord) Clone() *ProgressionRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.CompletedUnits = append([]string(nil), r.CompletedUnits...)
	clone.UnlockedAchievements = append([]string(nil), r.UnlockedAchievements...)
	clone.EnrolledCourses = make(map[string]CourseProgress, len(r.EnrolledCourses))
	for k, v := range r.EnrolledCourses {
		clone.EnrolledCourses[k] = v
	}
	return &clone
}
