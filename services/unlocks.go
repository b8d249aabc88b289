package services

import (
	"fmt"

	"learning-progress-system/models"
)

// Unit unlocking walks the course's ordered unit list: the first unit is
// always open, every later unit opens once its predecessor is completed.

// IsUnitUnlocked reports whether the user may start (and complete) unitID.
func IsUnitUnlocked(course *models.Course, completed map[string]bool, unitID string) (bool, error) {
	units := course.OrderedUnits()
	for i, unit := range units {
		if unit.ID != unitID {
			continue
		}
		if i == 0 {
			return true, nil
		}
		return completed[units[i-1].ID], nil
	}
	return false, fmt.Errorf("%w: %s in course %s", models.ErrUnknownUnit, unitID, course.ID)
}

// UnlockedUnits returns the ids of all currently accessible units, in
// course order.
func UnlockedUnits(course *models.Course, completed map[string]bool) []string {
	var unlocked []string
	units := course.OrderedUnits()
	for i, unit := range units {
		if i == 0 || completed[units[i-1].ID] {
			unlocked = append(unlocked, unit.ID)
			continue
		}
		break
	}
	return unlocked
}

// NewlyUnlockedUnits diffs the unlock frontier before and after a completion.
func NewlyUnlockedUnits(course *models.Course, before, after map[string]bool) []string {
	wasUnlocked := make(map[string]bool)
	for _, id := range UnlockedUnits(course, before) {
		wasUnlocked[id] = true
	}
	var newly []string
	for _, id := range UnlockedUnits(course, after) {
		if !wasUnlocked[id] {
			newly = append(newly, id)
		}
	}
	return newly
}

// CourseProgressPercent is completed-units over total units, rounded down.
func CourseProgressPercent(course *models.Course, completed map[string]bool) int {
	if len(course.Units) == 0 {
		return 0
	}
	done := 0
	for _, unit := range course.Units {
		if completed[unit.ID] {
			done++
		}
	}
	return 100 * done / len(course.Units)
}

// IsCourseCompleted reports whether every unit of the course is done.
func IsCourseCompleted(course *models.Course, completed map[string]bool) bool {
	if len(course.Units) == 0 {
		return false
	}
	for _, unit := range course.Units {
		if !completed[unit.ID] {
			return false
		}
	}
	return true
}

// NextUnitID returns the first not-yet-completed unit in course order, or
// empty when the course is done.
func NextUnitID(course *models.Course, completed map[string]bool) string {
	for _, unit := range course.OrderedUnits() {
		if !completed[unit.ID] {
			return unit.ID
		}
	}
	return ""
}
