package services

import (
	"fmt"
	"math"
	"sort"

	"learning-progress-system/models"
)

// LevelInfo is the derived level state for a given XP total.
type LevelInfo struct {
	Level           int   `json:"level"`
	CurrentLevelXP  int64 `json:"current_level_xp"`
	XPToNextLevel   int64 `json:"xp_to_next_level"` // 0 at max level
	ProgressPercent int   `json:"progress_percent"`
	MaxLevel        bool  `json:"max_level"`
}

// LevelTable maps cumulative XP to a level via an ordered threshold table.
// Level n is the largest index whose threshold the XP total has reached.
type LevelTable struct {
	thresholds []int64
}

// DefaultLevelThresholds is the platform level curve. Tunable via the
// content service later; validated the same way as synced content.
var DefaultLevelThresholds = []int64{
	0, 100, 250, 450, 700, 1000, 1400, 1900, 2500, 3200,
	4000, 5000, 6200, 7600, 9200, 11000, 13000, 15500, 18500, 22000,
}

// NewLevelTable validates a threshold table: non-empty, starts at zero,
// strictly increasing. A malformed table is a content error.
func NewLevelTable(thresholds []int64) (*LevelTable, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: level table is empty", models.ErrMalformedContent)
	}
	if thresholds[0] != 0 {
		return nil, fmt.Errorf("%w: level table must start at 0, got %d", models.ErrMalformedContent, thresholds[0])
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return nil, fmt.Errorf("%w: level table not strictly increasing at index %d", models.ErrMalformedContent, i)
		}
	}
	return &LevelTable{thresholds: append([]int64(nil), thresholds...)}, nil
}

// MustLevelTable panics on a malformed table. Only for compiled-in tables.
func MustLevelTable(thresholds []int64) *LevelTable {
	table, err := NewLevelTable(thresholds)
	if err != nil {
		panic(err)
	}
	return table
}

// Calculate derives the level state for a cumulative XP total. Pure: no
// side effects, negative XP is clamped to zero.
func (t *LevelTable) Calculate(totalXP int64) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	// First threshold strictly above totalXP; level is the index before it.
	next := sort.Search(len(t.thresholds), func(i int) bool {
		return t.thresholds[i] > totalXP
	})
	level := next - 1

	info := LevelInfo{
		Level:          level,
		CurrentLevelXP: totalXP - t.thresholds[level],
	}

	if level == len(t.thresholds)-1 {
		info.MaxLevel = true
		info.ProgressPercent = 100
		return info
	}

	info.XPToNextLevel = t.thresholds[level+1] - t.thresholds[level]
	percent := int(math.Round(100 * float64(info.CurrentLevelXP) / float64(info.XPToNextLevel)))
	if percent > 100 {
		percent = 100
	}
	info.ProgressPercent = percent
	return info
}

// MaxLevel returns the highest reachable level.
func (t *LevelTable) MaxLevel() int {
	return len(t.thresholds) - 1
}
