package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"learning-progress-system/models"

	"github.com/google/uuid"
)

// DailyLoginCoinBonus is credited on the first login of each UTC day.
const DailyLoginCoinBonus = 5

// maxSaveAttempts bounds the reload-and-reapply loop on ErrConflict.
const maxSaveAttempts = 3

// ProgressionService owns every mutation path to a user's ProgressionRecord.
// Each operation loads the record, applies the leaf engines, and persists
// the record plus its pending ledger entries atomically; a concurrent save
// collision reloads and reapplies a bounded number of times.
type ProgressionService struct {
	Store   RecordStore
	Catalog ContentCatalog
	Clock   Clock
	Levels  *LevelTable

	rewards      *RewardEngine
	achievements *AchievementEngine
	ledger       CoinLedger
}

func NewProgressionService(store RecordStore, catalog ContentCatalog, clock Clock) *ProgressionService {
	levels := MustLevelTable(DefaultLevelThresholds)
	rewards := NewRewardEngine(levels)
	return &ProgressionService{
		Store:        store,
		Catalog:      catalog,
		Clock:        clock,
		Levels:       levels,
		rewards:      rewards,
		achievements: NewAchievementEngine(rewards),
	}
}

// Stable dedup keys: retries are safe even when the client mints a fresh
// event id per delivery attempt.
func unitEventKey(userID, unitID string) string { return "unit:" + userID + ":" + unitID }
func quizEventKey(userID, quizID string) string { return "quiz:" + userID + ":" + quizID }

// CompleteUnit applies a unit-completion event exactly once. Re-delivery
// returns the originally computed delta without touching the record;
// completing a still-locked unit is rejected with ErrUnitLocked.
func (s *ProgressionService) CompleteUnit(ctx context.Context, userID, courseID, unitID, eventID string) (*models.ProgressionDelta, error) {
	course, err := s.Catalog.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	unit := course.UnitByID(unitID)
	if unit == nil {
		return nil, fmt.Errorf("%w: %s in course %s", models.ErrUnknownUnit, unitID, courseID)
	}

	eventKey := unitEventKey(userID, unitID)

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		rec, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		// Duplicate delivery: answer with the recorded delta, mutate nothing.
		if rec.HasCompletedUnit(unitID) {
			return s.replayedDelta(ctx, eventKey, rec.Level)
		}

		completedBefore := rec.CompletedUnitSet()
		unlocked, err := IsUnitUnlocked(course, completedBefore, unitID)
		if err != nil {
			return nil, err
		}
		if !unlocked {
			return nil, models.ErrUnitLocked
		}

		now := s.Clock.Now()
		outcome, entries, err := s.rewards.ApplyUnitReward(rec, unit, firstNonEmpty(eventID, eventKey), now)
		if err != nil {
			return nil, err
		}

		completedAfter := rec.CompletedUnitSet()
		s.updateCourseProgress(rec, course, completedAfter, now)

		delta := models.ProgressionDelta{
			XPGained:           outcome.XPGained,
			CoinsGained:        outcome.CoinsGained,
			LeveledUp:          outcome.LeveledUp,
			NewLevel:           outcome.NewLevel,
			NewlyUnlockedUnits: NewlyUnlockedUnits(course, completedBefore, completedAfter),
		}

		achievementEntries, unlocks, err := s.applyAchievements(ctx, rec, models.EventKindUnitCompleted, now, &delta)
		if err != nil {
			return nil, err
		}
		entries = append(entries, achievementEntries...)

		event := &models.ProcessedEvent{
			ID:     eventKey,
			UserID: userID,
			Kind:   models.EventKindUnitCompleted,
			Delta:  delta,
		}
		if err := s.Store.Save(ctx, rec, entries, unlocks, event); err != nil {
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			return nil, err
		}
		return &delta, nil
	}
	return nil, models.ErrConflict
}

// SubmitQuiz grades a submission and, on a first pass, pays out the earned
// XP and coins. Failing awards nothing and retries are unlimited; later
// passes return the first pass's delta without paying again.
func (s *ProgressionService) SubmitQuiz(ctx context.Context, userID, quizID string, answers []int, eventID string) (*models.QuizResult, error) {
	quiz, err := s.Catalog.QuizByID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	score, err := ScoreQuiz(quiz, answers)
	if err != nil {
		return nil, err
	}

	result := &models.QuizResult{
		Score:          score.Percentage,
		CorrectCount:   score.CorrectCount,
		TotalQuestions: score.TotalQuestions,
		Passed:         score.Passed,
	}
	if !score.Passed {
		// A failed attempt leaves the record untouched.
		return result, nil
	}

	eventKey := quizEventKey(userID, quizID)

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		rec, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		if processed, err := s.Store.LookupEvent(ctx, eventKey); err != nil {
			return nil, err
		} else if processed != nil {
			result.Delta = processed.Delta
			return result, nil
		}

		now := s.Clock.Now()
		outcome, entries, err := s.rewards.ApplyQuizReward(rec, score, firstNonEmpty(eventID, eventKey), now)
		if err != nil {
			return nil, err
		}

		delta := models.ProgressionDelta{
			XPGained:    outcome.XPGained,
			CoinsGained: outcome.CoinsGained,
			LeveledUp:   outcome.LeveledUp,
			NewLevel:    outcome.NewLevel,
		}
		achievementEntries, unlocks, err := s.applyAchievements(ctx, rec, models.EventKindQuizPassed, now, &delta)
		if err != nil {
			return nil, err
		}
		entries = append(entries, achievementEntries...)

		event := &models.ProcessedEvent{
			ID:     eventKey,
			UserID: userID,
			Kind:   models.EventKindQuizPassed,
			Delta:  delta,
		}
		if err := s.Store.Save(ctx, rec, entries, unlocks, event); err != nil {
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			return nil, err
		}
		result.Delta = delta
		return result, nil
	}
	return nil, models.ErrConflict
}

// RecordDailyLogin advances the daily streak. Same-day replays are no-ops;
// the first activity of a day — including the very first touch that creates
// the record — credits the login bonus and re-evaluates streak achievements.
func (s *ProgressionService) RecordDailyLogin(ctx context.Context, userID string) (*models.StreakDelta, error) {
	// Fetch definitions before any write: a catalog outage must not leave
	// a day's login half-applied.
	defs, err := s.Catalog.Achievements(ctx, models.AchievementCategoryStreak)
	if err != nil {
		return nil, fmt.Errorf("achievement catalog unavailable: %w", err)
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		today := s.Clock.Today()

		var update StreakUpdate
		rec, err := s.Store.Load(ctx, userID)
		if errors.Is(err, models.ErrRecordNotFound) {
			rec = models.NewProgressionRecord(uuid.NewString(), userID, today)
			if createErr := s.Store.Create(ctx, rec); createErr != nil {
				if errors.Is(createErr, models.ErrConflict) {
					continue
				}
				return nil, createErr
			}
			update = StreakUpdate{CurrentStreak: 1, LongestStreak: 1, Extended: true, Changed: true}
		} else if err != nil {
			return nil, err
		} else {
			update = AdvanceStreak(rec.LastActiveDate, rec.CurrentStreak, rec.LongestStreak, today)
		}

		streakDelta := &models.StreakDelta{
			CurrentStreak: update.CurrentStreak,
			LongestStreak: update.LongestStreak,
			Extended:      update.Extended,
			Broken:        update.Broken,
		}
		if !update.Changed {
			return streakDelta, nil
		}

		rec.CurrentStreak = update.CurrentStreak
		rec.LongestStreak = update.LongestStreak
		rec.LastActiveDate = today

		now := s.Clock.Now()
		entry, err := s.ledger.Apply(rec, DailyLoginCoinBonus, models.TxReasonDailyLoginBonus, today.Format("2006-01-02"), now)
		if err != nil {
			return nil, err
		}
		streakDelta.CoinsGained = entry.Amount
		entries := []models.CoinTransaction{entry}

		var unlocks []models.UserAchievement
		if len(defs) > 0 {
			unlocked, outcome, achievementEntries := s.achievements.Evaluate(rec, defs, now)
			streakDelta.NewlyUnlockedAchievements = unlocked
			streakDelta.XPGained = outcome.XPGained
			streakDelta.CoinsGained += outcome.CoinsGained
			entries = append(entries, achievementEntries...)
			unlocks = s.unlockRows(userID, unlocked, now)
		}

		if err := s.Store.Save(ctx, rec, entries, unlocks, nil); err != nil {
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			return nil, err
		}
		return streakDelta, nil
	}
	return nil, models.ErrConflict
}

// SpendCoins debits the balance through the ledger. A spend that would go
// negative is rejected with ErrInsufficientBalance and changes nothing.
func (s *ProgressionService) SpendCoins(ctx context.Context, userID string, amount int64, reason string) (*models.CoinTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("spend amount must be positive, got %d", amount)
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		rec, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		entry, err := s.ledger.Apply(rec, -amount, models.TxReasonShopPurchase, reason, s.Clock.Now())
		if err != nil {
			return nil, err
		}

		if err := s.Store.Save(ctx, rec, []models.CoinTransaction{entry}, nil, nil); err != nil {
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			return nil, err
		}
		return &entry, nil
	}
	return nil, models.ErrConflict
}

// GrantXP is the operator path: award XP with a reason, flowing through the
// same level/achievement machinery as organic events.
func (s *ProgressionService) GrantXP(ctx context.Context, userID string, xp int64, reason string) (*models.ProgressionDelta, error) {
	if xp <= 0 {
		return nil, fmt.Errorf("xp grant must be positive, got %d", xp)
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		rec, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		now := s.Clock.Now()
		outcome := s.rewards.ApplyXP(rec, xp, now)
		delta := models.ProgressionDelta{
			XPGained:  outcome.XPGained,
			LeveledUp: outcome.LeveledUp,
			NewLevel:  outcome.NewLevel,
		}
		entries, unlocks, err := s.applyAchievements(ctx, rec, models.EventKindAdminGrant, now, &delta)
		if err != nil {
			return nil, err
		}

		if err := s.Store.Save(ctx, rec, entries, unlocks, nil); err != nil {
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			return nil, err
		}
		log.Printf("🎓 XP granted: %s +%d (reason: %s)", userID, xp, reason)
		return &delta, nil
	}
	return nil, models.ErrConflict
}

// GrantCoins is the operator path for coin credits.
func (s *ProgressionService) GrantCoins(ctx context.Context, userID string, amount int64, reason string) (*models.CoinTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("coin grant must be positive, got %d", amount)
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		rec, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		entry, err := s.ledger.Apply(rec, amount, models.TxReasonAdminGrant, reason, s.Clock.Now())
		if err != nil {
			return nil, err
		}

		if err := s.Store.Save(ctx, rec, []models.CoinTransaction{entry}, nil, nil); err != nil {
			if errors.Is(err, models.ErrConflict) {
				continue
			}
			return nil, err
		}
		return &entry, nil
	}
	return nil, models.ErrConflict
}

// GetLeaderboard ranks users for a (period, dimension) pair. All-time ranks
// live records; weekly/monthly serve the most recently captured snapshot.
func (s *ProgressionService) GetLeaderboard(ctx context.Context, period models.LeaderboardPeriod, dimension models.LeaderboardDimension, limit int) ([]models.LeaderboardEntry, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("unknown leaderboard period %q", period)
	}
	if !dimension.IsValid() {
		return nil, fmt.Errorf("unknown leaderboard dimension %q", dimension)
	}

	if period == models.LeaderboardPeriodAllTime {
		records, err := s.Store.ListRecords(ctx)
		if err != nil {
			return nil, err
		}
		return RankRecords(records, dimension, limit), nil
	}

	snapshot, err := s.Store.LatestSnapshot(ctx, period, dimension)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return []models.LeaderboardEntry{}, nil
	}
	entries := snapshot.Entries
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// ProgressView is the read model served to the UI.
type ProgressView struct {
	Record *models.ProgressionRecord `json:"record"`
	Level  LevelInfo                 `json:"level_info"`
}

// GetProgress loads (or lazily creates) the caller's progression view.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*ProgressView, error) {
	rec, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProgressView{Record: rec, Level: s.Levels.Calculate(rec.TotalXP)}, nil
}

// AchievementView pairs a catalog definition with the caller's unlock state.
type AchievementView struct {
	models.AchievementDefinition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// GetAchievements lists every achievement definition, flagging the ones the
// user has already earned and when.
func (s *ProgressionService) GetAchievements(ctx context.Context, userID string) ([]AchievementView, error) {
	rec, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := s.Catalog.Achievements(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.Store.UserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlockedAt := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		unlockedAt[row.AchievementID] = row.UnlockedAt
	}

	views := make([]AchievementView, 0, len(defs))
	for _, def := range defs {
		view := AchievementView{
			AchievementDefinition: def,
			Unlocked:              rec.HasAchievement(def.ID),
		}
		if at, ok := unlockedAt[def.ID]; ok {
			atCopy := at
			view.UnlockedAt = &atCopy
		}
		views = append(views, view)
	}
	return views, nil
}

// GetTransactions pages through a user's coin ledger, newest first.
func (s *ProgressionService) GetTransactions(ctx context.Context, userID string, page, size int) ([]models.CoinTransaction, int64, error) {
	return s.Store.ListTransactions(ctx, userID, page, size)
}

// loadOrCreate fetches the user's record, creating a zeroed one on first
// touch. Any progression event counts as the user's first active day.
func (s *ProgressionService) loadOrCreate(ctx context.Context, userID string) (*models.ProgressionRecord, error) {
	rec, err := s.Store.Load(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, models.ErrRecordNotFound) {
		return nil, err
	}

	rec = models.NewProgressionRecord(uuid.NewString(), userID, s.Clock.Today())
	if createErr := s.Store.Create(ctx, rec); createErr != nil {
		// Lost a create race; the other writer's record wins.
		if errors.Is(createErr, models.ErrConflict) {
			return s.Store.Load(ctx, userID)
		}
		return nil, createErr
	}
	return rec, nil
}

// applyAchievements evaluates the categories matching the event kind and
// folds any unlock rewards into the delta. A catalog failure here aborts
// the whole operation: the event stays unprocessed and the client retries,
// rather than recording a completion that silently skipped its unlocks.
func (s *ProgressionService) applyAchievements(ctx context.Context, rec *models.ProgressionRecord, kind models.EventKind, now time.Time, delta *models.ProgressionDelta) ([]models.CoinTransaction, []models.UserAchievement, error) {
	categories := CategoriesForEvent(kind)
	if len(categories) == 0 {
		return nil, nil, nil
	}
	defs, err := s.Catalog.Achievements(ctx, categories...)
	if err != nil {
		return nil, nil, fmt.Errorf("achievement catalog unavailable: %w", err)
	}
	if len(defs) == 0 {
		return nil, nil, nil
	}

	unlocked, outcome, entries := s.achievements.Evaluate(rec, defs, now)
	if len(unlocked) == 0 {
		return nil, nil, nil
	}

	delta.NewlyUnlockedAchievements = unlocked
	delta.XPGained += outcome.XPGained
	delta.CoinsGained += outcome.CoinsGained
	delta.LeveledUp = delta.LeveledUp || outcome.LeveledUp
	delta.NewLevel = rec.Level
	return entries, s.unlockRows(rec.UserID, unlocked, now), nil
}

// unlockRows materializes one UserAchievement row per fresh unlock; they are
// persisted in the same save as the record.
func (s *ProgressionService) unlockRows(userID string, unlocked []string, now time.Time) []models.UserAchievement {
	rows := make([]models.UserAchievement, 0, len(unlocked))
	for _, id := range unlocked {
		rows = append(rows, models.UserAchievement{
			ID:            uuid.NewString(),
			UserID:        userID,
			AchievementID: id,
			UnlockedAt:    now,
		})
	}
	return rows
}

// replayedDelta answers a duplicate completion with the recorded delta, or
// an empty success when the event predates event tracking.
func (s *ProgressionService) replayedDelta(ctx context.Context, eventKey string, currentLevel int) (*models.ProgressionDelta, error) {
	processed, err := s.Store.LookupEvent(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	if processed != nil {
		delta := processed.Delta
		return &delta, nil
	}
	return &models.ProgressionDelta{NewLevel: currentLevel}, nil
}

// updateCourseProgress refreshes the per-course slice after a completion.
func (s *ProgressionService) updateCourseProgress(rec *models.ProgressionRecord, course *models.Course, completed map[string]bool, now time.Time) {
	progress, ok := rec.EnrolledCourses[course.ID]
	if !ok {
		progress = models.CourseProgress{EnrolledAt: now}
	}

	done := 0
	for _, unit := range course.Units {
		if completed[unit.ID] {
			done++
		}
	}
	progress.CompletedUnits = done
	progress.ProgressPercent = CourseProgressPercent(course, completed)
	progress.CurrentUnitID = NextUnitID(course, completed)
	if progress.ProgressPercent >= 100 && progress.CompletedAt == nil {
		completedAt := now
		progress.CompletedAt = &completedAt
	}
	rec.EnrolledCourses[course.ID] = progress
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
