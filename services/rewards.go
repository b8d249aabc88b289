package services

import (
	"math"
	"time"

	"learning-progress-system/models"
)

// RewardEngine turns completion events into XP/coin payouts on an in-memory
// progression record. Exactly-once semantics live one layer up: the
// ProgressionService consults the processed-event table before invoking the
// engine and stores the returned delta beside the record in one save.
type RewardEngine struct {
	levels *LevelTable
	ledger CoinLedger
}

func NewRewardEngine(levels *LevelTable) *RewardEngine {
	return &RewardEngine{levels: levels}
}

// RewardOutcome summarizes a single payout applied to a record.
type RewardOutcome struct {
	XPGained    int64
	CoinsGained int64
	LeveledUp   bool
	NewLevel    int
}

// ApplyXP adds XP to the record and recomputes the derived level fields.
// Returns the level state before/after comparison.
func (e *RewardEngine) ApplyXP(rec *models.ProgressionRecord, xp int64, now time.Time) RewardOutcome {
	before := e.levels.Calculate(rec.TotalXP)
	rec.TotalXP += xp
	after := e.levels.Calculate(rec.TotalXP)

	rec.Level = after.Level
	rec.LevelProgressPercent = after.ProgressPercent

	outcome := RewardOutcome{XPGained: xp, NewLevel: after.Level}
	if after.Level > before.Level {
		outcome.LeveledUp = true
		levelUpAt := now
		rec.LastLevelUpAt = &levelUpAt
	}
	return outcome
}

// ApplyUnitReward pays out a unit completion: marks the unit complete, adds
// its XP, credits its coins through the ledger. The caller has already
// verified the unit is unlocked and not yet completed.
func (e *RewardEngine) ApplyUnitReward(rec *models.ProgressionRecord, unit *models.Unit, eventID string, now time.Time) (RewardOutcome, []models.CoinTransaction, error) {
	rec.CompletedUnits = append(rec.CompletedUnits, unit.ID)

	outcome := e.ApplyXP(rec, unit.XPReward, now)

	var entries []models.CoinTransaction
	if unit.CoinReward > 0 {
		entry, err := e.ledger.Apply(rec, unit.CoinReward, models.TxReasonUnitReward, eventID, now)
		if err != nil {
			return RewardOutcome{}, nil, err
		}
		outcome.CoinsGained = entry.Amount
		entries = append(entries, entry)
	}
	return outcome, entries, nil
}

// QuizScore is the graded result of one submission, before any payout.
type QuizScore struct {
	CorrectCount   int
	TotalQuestions int
	Percentage     int
	Passed         bool
	XPEarned       int64 // sum of per-question XP for correct answers
}

// ScoreQuiz grades a submission. Answers align with the quiz's ordered
// question list; a length mismatch is a client error, not a zero score.
func ScoreQuiz(quiz *models.Quiz, answers []int) (QuizScore, error) {
	questions := quiz.OrderedQuestions()
	if len(answers) != len(questions) {
		return QuizScore{}, models.ErrAnswerCountMismatch
	}

	score := QuizScore{TotalQuestions: len(questions)}
	for i, question := range questions {
		if answers[i] == question.CorrectOption {
			score.CorrectCount++
			score.XPEarned += question.XPReward
		}
	}

	score.Percentage = int(math.Round(100 * float64(score.CorrectCount) / float64(score.TotalQuestions)))
	score.Passed = score.Percentage >= quiz.PassingScore
	return score, nil
}

// ApplyQuizReward pays out a passed quiz: the earned XP plus a coin bonus
// proportional to correct answers. Failing attempts never reach here.
func (e *RewardEngine) ApplyQuizReward(rec *models.ProgressionRecord, score QuizScore, eventID string, now time.Time) (RewardOutcome, []models.CoinTransaction, error) {
	outcome := e.ApplyXP(rec, score.XPEarned, now)

	var entries []models.CoinTransaction
	if coins := quizCoinBonus(score); coins > 0 {
		entry, err := e.ledger.Apply(rec, coins, models.TxReasonQuizReward, eventID, now)
		if err != nil {
			return RewardOutcome{}, nil, err
		}
		outcome.CoinsGained = entry.Amount
		entries = append(entries, entry)
	}
	return outcome, entries, nil
}

// CoinPerCorrectAnswer is the quiz coin payout rate.
const CoinPerCorrectAnswer = 2

func quizCoinBonus(score QuizScore) int64 {
	return int64(score.CorrectCount) * CoinPerCorrectAnswer
}
