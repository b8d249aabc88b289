package services

import (
	"context"
	"errors"
	"fmt"

	"learning-progress-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentCatalog is the read-only course/quiz/achievement lookup the core
// consumes. Definitions are authored in the external content service and
// synced into local tables by the catalog worker; every load re-validates,
// so malformed content surfaces as ErrMalformedContent instead of being
// applied silently.
type ContentCatalog interface {
	Course(ctx context.Context, courseID string) (*models.Course, error)
	QuizByID(ctx context.Context, quizID string) (*models.Quiz, error)
	Achievements(ctx context.Context, categories ...models.AchievementCategory) ([]models.AchievementDefinition, error)
}

// GormContentCatalog serves catalog lookups from the synced local tables.
type GormContentCatalog struct {
	DB *gorm.DB
}

func NewGormContentCatalog(db *gorm.DB) *GormContentCatalog {
	return &GormContentCatalog{DB: db}
}

func (c *GormContentCatalog) Course(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	err := c.DB.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		Preload("Units.Quiz.Questions").
		Where("id = ?", courseID).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownCourse, courseID)
	}
	if err != nil {
		return nil, err
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *GormContentCatalog) QuizByID(ctx context.Context, quizID string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := c.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		Where("id = ?", quizID).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownQuiz, quizID)
	}
	if err != nil {
		return nil, err
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *GormContentCatalog) Achievements(ctx context.Context, categories ...models.AchievementCategory) ([]models.AchievementDefinition, error) {
	var defs []models.AchievementDefinition
	query := c.DB.WithContext(ctx).Order("id ASC")
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}
	if err := query.Find(&defs).Error; err != nil {
		return nil, err
	}
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// SeedDefaultAchievements inserts the compiled-in achievement definitions,
// leaving any synced rows with the same id alone.
func SeedDefaultAchievements(db *gorm.DB) error {
	if len(models.DefaultAchievements) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DefaultAchievements).Error
}

// MemoryContentCatalog backs tests without a database.
type MemoryContentCatalog struct {
	Courses        map[string]*models.Course
	Quizzes        map[string]*models.Quiz
	AchievementSet []models.AchievementDefinition
}

func NewMemoryContentCatalog() *MemoryContentCatalog {
	return &MemoryContentCatalog{
		Courses: make(map[string]*models.Course),
		Quizzes: make(map[string]*models.Quiz),
	}
}

func (c *MemoryContentCatalog) AddCourse(course *models.Course) {
	c.Courses[course.ID] = course
	for i := range course.Units {
		if course.Units[i].Quiz != nil {
			c.Quizzes[course.Units[i].Quiz.ID] = course.Units[i].Quiz
		}
	}
}

func (c *MemoryContentCatalog) Course(_ context.Context, courseID string) (*models.Course, error) {
	course, ok := c.Courses[courseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownCourse, courseID)
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	return course, nil
}

func (c *MemoryContentCatalog) QuizByID(_ context.Context, quizID string) (*models.Quiz, error) {
	quiz, ok := c.Quizzes[quizID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownQuiz, quizID)
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (c *MemoryContentCatalog) Achievements(_ context.Context, categories ...models.AchievementCategory) ([]models.AchievementDefinition, error) {
	if len(categories) == 0 {
		return append([]models.AchievementDefinition(nil), c.AchievementSet...), nil
	}
	wanted := make(map[models.AchievementCategory]bool, len(categories))
	for _, cat := range categories {
		wanted[cat] = true
	}
	var defs []models.AchievementDefinition
	for _, def := range c.AchievementSet {
		if wanted[def.Category] {
			defs = append(defs, def)
		}
	}
	return defs, nil
}
