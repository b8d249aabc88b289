package models

import "time"

// EventKind tags a processed progression event.
type EventKind string

const (
	EventKindUnitCompleted EventKind = "unit_completed"
	EventKindQuizPassed    EventKind = "quiz_passed"
	EventKindAdminGrant    EventKind = "admin_grant"
)

// ProgressionDelta is what a mutating operation reports back to the caller
// for UI display.
type ProgressionDelta struct {
	XPGained                  int64    `json:"xp_gained"`
	CoinsGained               int64    `json:"coins_gained"`
	LeveledUp                 bool     `json:"leveled_up"`
	NewLevel                  int      `json:"new_level"`
	NewlyUnlockedAchievements []string `json:"newly_unlocked_achievements"`
	NewlyUnlockedUnits        []string `json:"newly_unlocked_units"`
}

// QuizResult is the outcome of a quiz submission.
type QuizResult struct {
	Score          int              `json:"score"` // percent
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Passed         bool             `json:"passed"`
	Delta          ProgressionDelta `json:"delta"`
}

// StreakDelta is the outcome of a daily login, including any streak
// achievements the new streak value unlocked.
type StreakDelta struct {
	CurrentStreak             int      `json:"current_streak"`
	LongestStreak             int      `json:"longest_streak"`
	Extended                  bool     `json:"extended"`
	Broken                    bool     `json:"broken"`
	XPGained                  int64    `json:"xp_gained"`
	CoinsGained               int64    `json:"coins_gained"`
	NewlyUnlockedAchievements []string `json:"newly_unlocked_achievements"`
}

// ProcessedEvent dedupes at-least-once event delivery. The originally
// returned delta is stored so replays answer with the identical payload,
// even across restarts.
type ProcessedEvent struct {
	ID          string           `gorm:"primaryKey;type:varchar(160)" json:"id"`
	UserID      string           `gorm:"index;not null" json:"user_id"`
	Kind        EventKind        `gorm:"type:varchar(32);not null" json:"kind"`
	Delta       ProgressionDelta `gorm:"type:jsonb;serializer:json" json:"delta"`
	ProcessedAt time.Time        `gorm:"autoCreateTime" json:"processed_at"`
}
