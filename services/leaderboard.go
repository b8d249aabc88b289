package services

import (
	"sort"

	"learning-progress-system/models"
)

// RankRecords orders progression records by the scoring dimension and
// returns 1-based ranks. Score descending, user id ascending on ties, so
// the ordering is total and reproducible. Read-only; callers pass whatever
// record set matches the requested period.
func RankRecords(records []models.ProgressionRecord, dimension models.LeaderboardDimension, limit int) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, models.LeaderboardEntry{
			UserID: rec.UserID,
			Score:  dimensionScore(&rec, dimension),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})

	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func dimensionScore(rec *models.ProgressionRecord, dimension models.LeaderboardDimension) int64 {
	if dimension == models.LeaderboardDimensionStreak {
		return int64(rec.CurrentStreak)
	}
	return rec.TotalXP
}
