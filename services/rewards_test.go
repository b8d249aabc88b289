package services

import (
	"testing"
	"time"

	"learning-progress-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourQuestionQuiz(passingScore int) *models.Quiz {
	return &models.Quiz{
		ID:           "quiz-structs",
		UnitID:       "u2",
		CourseID:     "go-basics",
		PassingScore: passingScore,
		Questions: []models.QuizQuestion{
			{ID: "q1", QuizID: "quiz-structs", OrderIndex: 0, Prompt: "?", Options: []string{"a", "b"}, CorrectOption: 0, XPReward: 10},
			{ID: "q2", QuizID: "quiz-structs", OrderIndex: 1, Prompt: "?", Options: []string{"a", "b"}, CorrectOption: 1, XPReward: 10},
			{ID: "q3", QuizID: "quiz-structs", OrderIndex: 2, Prompt: "?", Options: []string{"a", "b", "c"}, CorrectOption: 2, XPReward: 10},
			{ID: "q4", QuizID: "quiz-structs", OrderIndex: 3, Prompt: "?", Options: []string{"a", "b"}, CorrectOption: 0, XPReward: 10},
		},
	}
}

func TestScoreQuiz(t *testing.T) {
	quiz := fourQuestionQuiz(70)

	score, err := ScoreQuiz(quiz, []int{0, 1, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, 4, score.CorrectCount)
	assert.Equal(t, 100, score.Percentage)
	assert.True(t, score.Passed)
	assert.Equal(t, int64(40), score.XPEarned)

	score, err = ScoreQuiz(quiz, []int{0, 1, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, 3, score.CorrectCount)
	assert.Equal(t, 75, score.Percentage)
	assert.True(t, score.Passed)
	assert.Equal(t, int64(30), score.XPEarned)

	score, err = ScoreQuiz(quiz, []int{1, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, score.CorrectCount)
	assert.False(t, score.Passed)
	assert.Equal(t, int64(0), score.XPEarned)
}

func TestScoreQuiz_ExactPassingBoundary(t *testing.T) {
	quiz := fourQuestionQuiz(75)
	score, err := ScoreQuiz(quiz, []int{0, 1, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, 75, score.Percentage)
	assert.True(t, score.Passed, "meeting the threshold exactly is a pass")
}

func TestScoreQuiz_AnswerCountMismatch(t *testing.T) {
	quiz := fourQuestionQuiz(70)
	_, err := ScoreQuiz(quiz, []int{0, 1})
	assert.ErrorIs(t, err, models.ErrAnswerCountMismatch)
}

func TestApplyXP_LevelUp(t *testing.T) {
	engine := NewRewardEngine(MustLevelTable([]int64{0, 100, 250}))
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rec := models.NewProgressionRecord("rec-1", "user-1", Day(now))
	rec.TotalXP = 80
	rec.Level = 0

	outcome := engine.ApplyXP(rec, 30, now)
	assert.Equal(t, int64(30), outcome.XPGained)
	assert.True(t, outcome.LeveledUp)
	assert.Equal(t, 1, outcome.NewLevel)
	assert.Equal(t, 1, rec.Level)
	require.NotNil(t, rec.LastLevelUpAt)
	assert.Equal(t, now, *rec.LastLevelUpAt)

	// Another small gain inside the same level changes nothing milestone-wise.
	outcome = engine.ApplyXP(rec, 10, now.Add(time.Hour))
	assert.False(t, outcome.LeveledUp)
	assert.Equal(t, now, *rec.LastLevelUpAt)
}

func TestApplyUnitReward(t *testing.T) {
	engine := NewRewardEngine(MustLevelTable([]int64{0, 100, 250}))
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rec := models.NewProgressionRecord("rec-1", "user-1", Day(now))
	unit := &models.Unit{ID: "u1", CourseID: "go-basics", Title: "Hello", XPReward: 50, CoinReward: 10}

	outcome, entries, err := engine.ApplyUnitReward(rec, unit, "evt-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(50), outcome.XPGained)
	assert.Equal(t, int64(10), outcome.CoinsGained)
	assert.True(t, rec.HasCompletedUnit("u1"))
	assert.Equal(t, int64(10), rec.CoinBalance)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TxReasonUnitReward, entries[0].Reason)
	assert.Equal(t, "evt-1", entries[0].Reference)
}

func TestApplyQuizReward(t *testing.T) {
	engine := NewRewardEngine(MustLevelTable([]int64{0, 100, 250}))
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rec := models.NewProgressionRecord("rec-1", "user-1", Day(now))
	score := QuizScore{CorrectCount: 3, TotalQuestions: 4, Percentage: 75, Passed: true, XPEarned: 30}

	outcome, entries, err := engine.ApplyQuizReward(rec, score, "evt-2", now)
	require.NoError(t, err)
	assert.Equal(t, int64(30), outcome.XPGained)
	assert.Equal(t, int64(3*CoinPerCorrectAnswer), outcome.CoinsGained)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TxReasonQuizReward, entries[0].Reason)
}
