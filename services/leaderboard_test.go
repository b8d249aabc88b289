package services

import (
	"testing"

	"learning-progress-system/models"

	"github.com/stretchr/testify/assert"
)

func recordWithXP(userID string, xp int64, streak int) models.ProgressionRecord {
	return models.ProgressionRecord{UserID: userID, TotalXP: xp, CurrentStreak: streak}
}

func TestRankRecords_TiesBrokenByUserID(t *testing.T) {
	records := []models.ProgressionRecord{
		recordWithXP("carol", 100, 3),
		recordWithXP("bob", 300, 1),
		recordWithXP("alice", 300, 7),
		recordWithXP("dave", 50, 2),
	}

	entries := RankRecords(records, models.LeaderboardDimensionXP, 0)

	assert.Len(t, entries, 4)
	// alice and bob tie at 300; alice wins the tie alphabetically.
	assert.Equal(t, models.LeaderboardEntry{UserID: "alice", Rank: 1, Score: 300}, entries[0])
	assert.Equal(t, models.LeaderboardEntry{UserID: "bob", Rank: 2, Score: 300}, entries[1])
	assert.Equal(t, models.LeaderboardEntry{UserID: "carol", Rank: 3, Score: 100}, entries[2])
	assert.Equal(t, models.LeaderboardEntry{UserID: "dave", Rank: 4, Score: 50}, entries[3])
}

func TestRankRecords_StreakDimension(t *testing.T) {
	records := []models.ProgressionRecord{
		recordWithXP("carol", 100, 3),
		recordWithXP("alice", 300, 7),
	}

	entries := RankRecords(records, models.LeaderboardDimensionStreak, 0)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, int64(7), entries[0].Score)
	assert.Equal(t, int64(3), entries[1].Score)
}

func TestRankRecords_LimitTruncatesBeforeRanking(t *testing.T) {
	records := []models.ProgressionRecord{
		recordWithXP("a", 10, 0),
		recordWithXP("b", 20, 0),
		recordWithXP("c", 30, 0),
	}

	entries := RankRecords(records, models.LeaderboardDimensionXP, 2)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "c", entries[0].UserID)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestRankRecords_Empty(t *testing.T) {
	entries := RankRecords(nil, models.LeaderboardDimensionXP, 10)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}
