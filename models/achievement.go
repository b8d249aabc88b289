package models

import (
	"fmt"
	"time"
)

// AchievementCategory groups achievements by the kind of event that can
// newly satisfy them, so the engine only re-evaluates relevant definitions.
type AchievementCategory string

const (
	AchievementCategoryUnits   AchievementCategory = "units"
	AchievementCategoryCourses AchievementCategory = "courses"
	AchievementCategoryStreak  AchievementCategory = "streak"
	AchievementCategoryXP      AchievementCategory = "xp"
)

// AchievementDefinition: static config synced from the content service.
// Requirement is a stat → minimum map; every listed stat must meet its
// minimum for the achievement to unlock.
type AchievementDefinition struct {
	ID          string              `gorm:"primaryKey;type:varchar(64)" json:"id"` // e.g. "first_course", "streak_7"
	Name        string              `gorm:"not null" json:"name"`
	Description string              `gorm:"type:text" json:"description"`
	Category    AchievementCategory `gorm:"type:varchar(16);index;not null" json:"category"`
	Rarity      string              `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Requirement map[string]int64    `gorm:"type:jsonb;serializer:json" json:"requirement"`   // e.g. {"completed_units": 10}
	CourseID    string              `gorm:"type:varchar(64);default:''" json:"course_id,omitempty"` // scopes "completed_units" to one course when set
	XPReward    int64               `gorm:"default:0" json:"xp_reward"`
	CoinReward  int64               `gorm:"default:0" json:"coin_reward"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserAchievement: unlocked instance, written exactly once per (user, achievement).
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID        string    `gorm:"index:idx_user_achievement,unique;not null" json:"user_id"`
	AchievementID string    `gorm:"index:idx_user_achievement,unique;not null" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}

// Requirement stat keys understood by the achievement engine.
const (
	StatCompletedUnits   = "completed_units"
	StatCompletedCourses = "completed_courses"
	StatCurrentStreak    = "current_streak"
	StatLongestStreak    = "longest_streak"
	StatTotalXP          = "total_xp"
	StatLevel            = "level"
	StatCoinBalance      = "coin_balance"
)

// Validate enforces definition invariants. Failures wrap ErrMalformedContent.
func (d *AchievementDefinition) Validate() error {
	if d.ID == "" || d.Name == "" {
		return fmt.Errorf("%w: achievement %q missing id or name", ErrMalformedContent, d.ID)
	}
	switch d.Category {
	case AchievementCategoryUnits, AchievementCategoryCourses, AchievementCategoryStreak, AchievementCategoryXP:
	default:
		return fmt.Errorf("%w: achievement %q has unknown category %q", ErrMalformedContent, d.ID, d.Category)
	}
	if len(d.Requirement) == 0 {
		return fmt.Errorf("%w: achievement %q has empty requirement", ErrMalformedContent, d.ID)
	}
	for stat, min := range d.Requirement {
		switch stat {
		case StatCompletedUnits, StatCompletedCourses, StatCurrentStreak,
			StatLongestStreak, StatTotalXP, StatLevel, StatCoinBalance:
		default:
			return fmt.Errorf("%w: achievement %q requires unknown stat %q", ErrMalformedContent, d.ID, stat)
		}
		if min <= 0 {
			return fmt.Errorf("%w: achievement %q has non-positive minimum for %q", ErrMalformedContent, d.ID, stat)
		}
	}
	if d.XPReward < 0 || d.CoinReward < 0 {
		return fmt.Errorf("%w: achievement %q has negative reward", ErrMalformedContent, d.ID)
	}
	return nil
}

// DefaultAchievements seed the catalog on first boot; the content sync
// worker can overwrite or extend them later.
var DefaultAchievements = []AchievementDefinition{
	{
		ID:          "first_unit",
		Name:        "First Steps",
		Description: "Complete your first unit",
		Category:    AchievementCategoryUnits,
		Rarity:      "common",
		Requirement: map[string]int64{StatCompletedUnits: 1},
		XPReward:    25,
		CoinReward:  10,
	},
	{
		ID:          "units_10",
		Name:        "Getting Serious",
		Description: "Complete 10 units",
		Category:    AchievementCategoryUnits,
		Rarity:      "rare",
		Requirement: map[string]int64{StatCompletedUnits: 10},
		XPReward:    100,
		CoinReward:  50,
	},
	{
		ID:          "first_course",
		Name:        "Course Conqueror",
		Description: "Finish a whole course",
		Category:    AchievementCategoryCourses,
		Rarity:      "rare",
		Requirement: map[string]int64{StatCompletedCourses: 1},
		XPReward:    200,
		CoinReward:  100,
	},
	{
		ID:          "streak_7",
		Name:        "Week Warrior",
		Description: "Learn 7 days in a row",
		Category:    AchievementCategoryStreak,
		Rarity:      "rare",
		Requirement: map[string]int64{StatCurrentStreak: 7},
		XPReward:    75,
		CoinReward:  30,
	},
	{
		ID:          "streak_30",
		Name:        "Monthly Master",
		Description: "Learn 30 days in a row",
		Category:    AchievementCategoryStreak,
		Rarity:      "epic",
		Requirement: map[string]int64{StatCurrentStreak: 30},
		XPReward:    300,
		CoinReward:  150,
	},
	{
		ID:          "xp_1000",
		Name:        "Rising Star",
		Description: "Earn 1,000 total XP",
		Category:    AchievementCategoryXP,
		Rarity:      "common",
		Requirement: map[string]int64{StatTotalXP: 1000},
		XPReward:    50,
		CoinReward:  25,
	},
	{
		ID:          "xp_10000",
		Name:        "Powerhouse",
		Description: "Earn 10,000 total XP",
		Category:    AchievementCategoryXP,
		Rarity:      "epic",
		Requirement: map[string]int64{StatTotalXP: 10000},
		XPReward:    250,
		CoinReward:  125,
	},
}
