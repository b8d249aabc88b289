package models

import (
	"fmt"
	"sort"
)

// Course is a read-only content definition synced from the content service.
// IDs are slug codes, stable across syncs.
type Course struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Units       []Unit `gorm:"foreignKey:CourseID;references:ID" json:"units"`

	Timestamps
}

// Unit is a single video/lesson unit inside a course. Units unlock in
// OrderIndex order.
type Unit struct {
	ID         string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CourseID   string `gorm:"index;not null" json:"course_id"`
	Title      string `gorm:"not null" json:"title"`
	OrderIndex int    `gorm:"not null" json:"order_index"`
	XPReward   int64  `gorm:"default:0" json:"xp_reward"`
	CoinReward int64  `gorm:"default:0" json:"coin_reward"`
	Quiz       *Quiz  `gorm:"foreignKey:UnitID" json:"quiz,omitempty"`

	Timestamps
}

// Quiz is an optional assessment attached to a unit.
type Quiz struct {
	ID           string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UnitID       string         `gorm:"index;not null" json:"unit_id"`
	CourseID     string         `gorm:"index;not null" json:"course_id"`
	PassingScore int            `gorm:"default:70" json:"passing_score"` // percent
	Questions    []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions"`

	Timestamps
}

// QuizQuestion is multiple-choice or true/false with exactly one correct
// option index. Submissions align with questions by OrderIndex.
type QuizQuestion struct {
	ID            string   `gorm:"primaryKey;type:varchar(64)" json:"id"`
	QuizID        string   `gorm:"index;not null" json:"quiz_id"`
	OrderIndex    int      `gorm:"not null" json:"order_index"`
	Prompt        string   `gorm:"type:text;not null" json:"prompt"`
	Options       []string `gorm:"type:jsonb;serializer:json" json:"options"`
	CorrectOption int      `gorm:"not null" json:"-"` // never exposed in API responses
	XPReward      int64    `gorm:"default:0" json:"xp_reward"`

	Timestamps
}

// OrderedUnits returns the course units sorted by OrderIndex.
func (c *Course) OrderedUnits() []Unit {
	units := append([]Unit(nil), c.Units...)
	sort.Slice(units, func(i, j int) bool { return units[i].OrderIndex < units[j].OrderIndex })
	return units
}

// UnitByID finds a unit in the course, or nil.
func (c *Course) UnitByID(unitID string) *Unit {
	for i := range c.Units {
		if c.Units[i].ID == unitID {
			return &c.Units[i]
		}
	}
	return nil
}

// Validate enforces course invariants before a definition is accepted into
// the local catalog. Failures wrap ErrMalformedContent.
func (c *Course) Validate() error {
	if c.ID == "" || c.Title == "" {
		return fmt.Errorf("%w: course %q missing id or title", ErrMalformedContent, c.ID)
	}
	if len(c.Units) == 0 {
		return fmt.Errorf("%w: course %q has no units", ErrMalformedContent, c.ID)
	}
	seenOrder := make(map[int]bool, len(c.Units))
	seenID := make(map[string]bool, len(c.Units))
	for _, u := range c.Units {
		if u.ID == "" {
			return fmt.Errorf("%w: course %q has a unit without id", ErrMalformedContent, c.ID)
		}
		if seenID[u.ID] {
			return fmt.Errorf("%w: course %q has duplicate unit %q", ErrMalformedContent, c.ID, u.ID)
		}
		seenID[u.ID] = true
		if seenOrder[u.OrderIndex] {
			return fmt.Errorf("%w: course %q has duplicate unit order %d", ErrMalformedContent, c.ID, u.OrderIndex)
		}
		seenOrder[u.OrderIndex] = true
		if u.XPReward < 0 || u.CoinReward < 0 {
			return fmt.Errorf("%w: unit %q has negative reward", ErrMalformedContent, u.ID)
		}
		if u.Quiz != nil {
			if err := u.Quiz.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate enforces quiz invariants. Failures wrap ErrMalformedContent.
func (q *Quiz) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: quiz missing id", ErrMalformedContent)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: quiz %q passing score %d out of range", ErrMalformedContent, q.ID, q.PassingScore)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %q has no questions", ErrMalformedContent, q.ID)
	}
	for _, question := range q.Questions {
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least two options", ErrMalformedContent, question.ID)
		}
		if question.CorrectOption < 0 || question.CorrectOption >= len(question.Options) {
			return fmt.Errorf("%w: question %q correct option %d out of range", ErrMalformedContent, question.ID, question.CorrectOption)
		}
		if question.XPReward < 0 {
			return fmt.Errorf("%w: question %q has negative xp reward", ErrMalformedContent, question.ID)
		}
	}
	return nil
}

// OrderedQuestions returns quiz questions sorted by OrderIndex.
func (q *Quiz) OrderedQuestions() []QuizQuestion {
	questions := append([]QuizQuestion(nil), q.Questions...)
	sort.Slice(questions, func(i, j int) bool { return questions[i].OrderIndex < questions[j].OrderIndex })
	return questions
}
