package services

import (
	"sort"
	"time"

	"learning-progress-system/models"
)

// AchievementEngine evaluates achievement definitions against a user's
// aggregate stats after a mutating event and unlocks whichever are newly
// satisfied. Unlocks are exactly-once: already-unlocked achievements are
// skipped, and definitions are walked in id order so simultaneous unlocks
// report deterministically.
type AchievementEngine struct {
	rewards *RewardEngine
	ledger  CoinLedger
}

func NewAchievementEngine(rewards *RewardEngine) *AchievementEngine {
	return &AchievementEngine{rewards: rewards}
}

// achievementStats are the aggregates requirement predicates run against.
type achievementStats struct {
	completedUnits   int64
	completedCourses int64
	unitsPerCourse   map[string]int64
	currentStreak    int64
	longestStreak    int64
	totalXP          int64
	level            int64
	coinBalance      int64
}

func collectStats(rec *models.ProgressionRecord) achievementStats {
	stats := achievementStats{
		completedUnits: int64(len(rec.CompletedUnits)),
		currentStreak:  int64(rec.CurrentStreak),
		longestStreak:  int64(rec.LongestStreak),
		totalXP:        rec.TotalXP,
		level:          int64(rec.Level),
		coinBalance:    rec.CoinBalance,
		unitsPerCourse: make(map[string]int64),
	}
	for courseID, progress := range rec.EnrolledCourses {
		stats.unitsPerCourse[courseID] = int64(progress.CompletedUnits)
		if progress.ProgressPercent >= 100 {
			stats.completedCourses++
		}
	}
	return stats
}

func meetsRequirement(stats achievementStats, def *models.AchievementDefinition) bool {
	for stat, min := range def.Requirement {
		var value int64
		switch stat {
		case models.StatCompletedUnits:
			if def.CourseID != "" {
				value = stats.unitsPerCourse[def.CourseID]
			} else {
				value = stats.completedUnits
			}
		case models.StatCompletedCourses:
			value = stats.completedCourses
		case models.StatCurrentStreak:
			value = stats.currentStreak
		case models.StatLongestStreak:
			value = stats.longestStreak
		case models.StatTotalXP:
			value = stats.totalXP
		case models.StatLevel:
			value = stats.level
		case models.StatCoinBalance:
			value = stats.coinBalance
		default:
			return false
		}
		if value < min {
			return false
		}
	}
	return true
}

// Evaluate walks the definitions in id order, unlocks the newly satisfied
// ones and applies their rewards to the record. Rewards applied here feed
// back into the stats, so an XP achievement can be satisfied by the XP of
// an achievement unlocked just before it in the same batch.
func (e *AchievementEngine) Evaluate(rec *models.ProgressionRecord, defs []models.AchievementDefinition, now time.Time) ([]string, RewardOutcome, []models.CoinTransaction) {
	sorted := append([]models.AchievementDefinition(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var (
		unlocked []string
		total    RewardOutcome
		entries  []models.CoinTransaction
	)
	total.NewLevel = rec.Level

	for i := range sorted {
		def := &sorted[i]
		if rec.HasAchievement(def.ID) {
			continue
		}
		if !meetsRequirement(collectStats(rec), def) {
			continue
		}

		rec.UnlockedAchievements = append(rec.UnlockedAchievements, def.ID)
		unlocked = append(unlocked, def.ID)

		if def.XPReward > 0 {
			outcome := e.rewards.ApplyXP(rec, def.XPReward, now)
			total.XPGained += outcome.XPGained
			total.LeveledUp = total.LeveledUp || outcome.LeveledUp
			total.NewLevel = outcome.NewLevel
		}
		if def.CoinReward > 0 {
			entry, err := e.ledger.Apply(rec, def.CoinReward, models.TxReasonAchievementReward, def.ID, now)
			if err == nil {
				total.CoinsGained += entry.Amount
				entries = append(entries, entry)
			}
		}
	}
	return unlocked, total, entries
}

// CategoriesForEvent maps an event kind to the achievement categories it
// can newly satisfy, so unrelated definitions are not re-evaluated.
func CategoriesForEvent(kind models.EventKind) []models.AchievementCategory {
	switch kind {
	case models.EventKindUnitCompleted:
		return []models.AchievementCategory{
			models.AchievementCategoryUnits,
			models.AchievementCategoryCourses,
			models.AchievementCategoryXP,
		}
	case models.EventKindQuizPassed, models.EventKindAdminGrant:
		return []models.AchievementCategory{models.AchievementCategoryXP}
	default:
		return nil
	}
}
