package services

import (
	"testing"

	"learning-progress-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeUnitCourse() *models.Course {
	return &models.Course{
		ID:    "go-basics",
		Title: "Go Basics",
		Units: []models.Unit{
			{ID: "u3", CourseID: "go-basics", Title: "Interfaces", OrderIndex: 2, XPReward: 50},
			{ID: "u1", CourseID: "go-basics", Title: "Hello", OrderIndex: 0, XPReward: 50},
			{ID: "u2", CourseID: "go-basics", Title: "Structs", OrderIndex: 1, XPReward: 50},
		},
	}
}

func TestIsUnitUnlocked(t *testing.T) {
	course := threeUnitCourse()
	none := map[string]bool{}

	unlocked, err := IsUnitUnlocked(course, none, "u1")
	require.NoError(t, err)
	assert.True(t, unlocked, "first unit is always open")

	unlocked, err = IsUnitUnlocked(course, none, "u2")
	require.NoError(t, err)
	assert.False(t, unlocked)

	unlocked, err = IsUnitUnlocked(course, map[string]bool{"u1": true}, "u2")
	require.NoError(t, err)
	assert.True(t, unlocked)

	// u3 needs u2, not just u1.
	unlocked, err = IsUnitUnlocked(course, map[string]bool{"u1": true}, "u3")
	require.NoError(t, err)
	assert.False(t, unlocked)

	_, err = IsUnitUnlocked(course, none, "missing")
	assert.ErrorIs(t, err, models.ErrUnknownUnit)
}

func TestUnlockedUnits_FollowsOrderIndexNotSliceOrder(t *testing.T) {
	course := threeUnitCourse()

	assert.Equal(t, []string{"u1"}, UnlockedUnits(course, map[string]bool{}))
	assert.Equal(t, []string{"u1", "u2"}, UnlockedUnits(course, map[string]bool{"u1": true}))
	assert.Equal(t, []string{"u1", "u2", "u3"}, UnlockedUnits(course, map[string]bool{"u1": true, "u2": true}))
}

func TestNewlyUnlockedUnits(t *testing.T) {
	course := threeUnitCourse()
	before := map[string]bool{}
	after := map[string]bool{"u1": true}

	assert.Equal(t, []string{"u2"}, NewlyUnlockedUnits(course, before, after))

	// Completing the last unit unlocks nothing further.
	assert.Empty(t, NewlyUnlockedUnits(course,
		map[string]bool{"u1": true, "u2": true},
		map[string]bool{"u1": true, "u2": true, "u3": true}))
}

func TestCourseProgressPercent(t *testing.T) {
	course := threeUnitCourse()

	assert.Equal(t, 0, CourseProgressPercent(course, map[string]bool{}))
	assert.Equal(t, 33, CourseProgressPercent(course, map[string]bool{"u1": true}), "rounded down")
	assert.Equal(t, 66, CourseProgressPercent(course, map[string]bool{"u1": true, "u2": true}))
	assert.Equal(t, 100, CourseProgressPercent(course, map[string]bool{"u1": true, "u2": true, "u3": true}))
}

func TestIsCourseCompletedAndNextUnit(t *testing.T) {
	course := threeUnitCourse()

	assert.False(t, IsCourseCompleted(course, map[string]bool{"u1": true}))
	assert.Equal(t, "u2", NextUnitID(course, map[string]bool{"u1": true}))

	done := map[string]bool{"u1": true, "u2": true, "u3": true}
	assert.True(t, IsCourseCompleted(course, done))
	assert.Equal(t, "", NextUnitID(course, done))
}
