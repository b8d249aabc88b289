package services

import (
	"testing"
	"time"

	"learning-progress-system/models"

	"github.com/stretchr/testify/assert"
)

func testAchievementEngine() *AchievementEngine {
	return NewAchievementEngine(NewRewardEngine(MustLevelTable([]int64{0, 100, 250})))
}

func TestEvaluate_UnlocksExactlyOnce(t *testing.T) {
	engine := testAchievementEngine()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rec := models.NewProgressionRecord("rec-1", "user-1", Day(now))
	rec.CompletedUnits = []string{"u1"}

	defs := []models.AchievementDefinition{
		{
			ID: "first_unit", Name: "First Steps", Category: models.AchievementCategoryUnits,
			Requirement: map[string]int64{models.StatCompletedUnits: 1},
			XPReward:    25, CoinReward: 10,
		},
	}

	unlocked, outcome, entries := engine.Evaluate(rec, defs, now)
	assert.Equal(t, []string{"first_unit"}, unlocked)
	assert.Equal(t, int64(25), outcome.XPGained)
	assert.Equal(t, int64(10), outcome.CoinsGained)
	assert.Len(t, entries, 1)
	assert.Equal(t, models.TxReasonAchievementReward, entries[0].Reason)
	assert.True(t, rec.HasAchievement("first_unit"))

	// Second evaluation with the same definitions pays nothing.
	unlocked, outcome, entries = engine.Evaluate(rec, defs, now)
	assert.Empty(t, unlocked)
	assert.Zero(t, outcome.XPGained)
	assert.Empty(t, entries)
}

func TestEvaluate_RewardCascadeWithinBatch(t *testing.T) {
	engine := testAchievementEngine()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rec := models.NewProgressionRecord("rec-1", "user-1", Day(now))
	rec.CompletedUnits = []string{"u1"}
	rec.TotalXP = 90

	defs := []models.AchievementDefinition{
		// Walked in id order: first_unit pays 25 XP, lifting total to 115,
		// which satisfies xp_100 in the same batch.
		{
			ID: "xp_100", Name: "Century", Category: models.AchievementCategoryXP,
			Requirement: map[string]int64{models.StatTotalXP: 100},
			CoinReward:  5,
		},
		{
			ID: "first_unit", Name: "First Steps", Category: models.AchievementCategoryUnits,
			Requirement: map[string]int64{models.StatCompletedUnits: 1},
			XPReward:    25,
		},
	}

	unlocked, outcome, _ := engine.Evaluate(rec, defs, now)
	assert.Equal(t, []string{"first_unit", "xp_100"}, unlocked)
	assert.Equal(t, int64(25), outcome.XPGained)
	assert.Equal(t, int64(5), outcome.CoinsGained)
	assert.Equal(t, int64(115), rec.TotalXP)
	assert.True(t, outcome.LeveledUp, "the achievement XP crossed the 100 threshold")
}

func TestEvaluate_CourseScopedRequirement(t *testing.T) {
	engine := testAchievementEngine()
	now := time.Now().UTC()
	rec := models.NewProgressionRecord("rec-1", "user-1", Day(now))
	rec.CompletedUnits = []string{"a1", "a2", "b1"}
	rec.EnrolledCourses = map[string]models.CourseProgress{
		"course-a": {CompletedUnits: 2, ProgressPercent: 66},
		"course-b": {CompletedUnits: 1, ProgressPercent: 33},
	}

	defs := []models.AchievementDefinition{
		{
			ID: "course_a_2", Name: "Course A Regular", Category: models.AchievementCategoryUnits,
			CourseID:    "course-a",
			Requirement: map[string]int64{models.StatCompletedUnits: 2},
		},
		{
			ID: "course_b_2", Name: "Course B Regular", Category: models.AchievementCategoryUnits,
			CourseID:    "course-b",
			Requirement: map[string]int64{models.StatCompletedUnits: 2},
		},
	}

	unlocked, _, _ := engine.Evaluate(rec, defs, now)
	assert.Equal(t, []string{"course_a_2"}, unlocked)
}

func TestMeetsRequirement_UnknownStatNeverMatches(t *testing.T) {
	stats := achievementStats{totalXP: 1000}
	def := &models.AchievementDefinition{
		ID:          "future",
		Requirement: map[string]int64{"not_a_stat": 1},
	}
	assert.False(t, meetsRequirement(stats, def))
}

func TestCategoriesForEvent(t *testing.T) {
	assert.Contains(t, CategoriesForEvent(models.EventKindUnitCompleted), models.AchievementCategoryCourses)
	assert.Equal(t,
		[]models.AchievementCategory{models.AchievementCategoryXP},
		CategoriesForEvent(models.EventKindQuizPassed))
	assert.Nil(t, CategoriesForEvent(models.EventKind("unknown")))
}
