// workers/catalog_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"learning-progress-system/models"
	"learning-progress-system/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteQuestion matches the JSON shape served by the content service.
type RemoteQuestion struct {
	ID            string   `json:"id"`
	OrderIndex    int      `json:"order_index"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	XPReward      int64    `json:"xp_reward"`
}

type RemoteQuiz struct {
	ID           string           `json:"id"`
	PassingScore int              `json:"passing_score"`
	Questions    []RemoteQuestion `json:"questions"`
}

type RemoteUnit struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	OrderIndex int         `json:"order_index"`
	XPReward   int64       `json:"xp_reward"`
	CoinReward int64       `json:"coin_reward"`
	Quiz       *RemoteQuiz `json:"quiz,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type RemoteCourse struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Units       []RemoteUnit `json:"units"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type RemoteAchievement struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Rarity      string           `json:"rarity"`
	Requirement map[string]int64 `json:"requirement"`
	CourseID    string           `json:"course_id,omitempty"`
	XPReward    int64            `json:"xp_reward"`
	CoinReward  int64            `json:"coin_reward"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// GetCatalogChangesResponse is the top-level structure of the content service response.
type GetCatalogChangesResponse struct {
	Courses      []RemoteCourse      `json:"courses"`
	Achievements []RemoteAchievement `json:"achievements"`
}

// CatalogSyncWorker mirrors course and achievement definitions from the
// content service into the local catalog tables. Definitions that fail
// validation are logged and skipped, never partially applied.
type CatalogSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8600"
	endpointPath string // e.g., "/api/v1/public/catalog"
	serviceToken string
	httpClient   *http.Client
}

func NewCatalogSyncWorker(db *gorm.DB, contentServiceBaseURL, endpointPath, serviceToken string) *CatalogSyncWorker {
	return &CatalogSyncWorker{
		db:           db,
		interval:     5 * time.Minute,
		baseURL:      contentServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *CatalogSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Catalog Sync Worker (content-service → courses/achievements)…")
	go w.run(ctx)
}

func (w *CatalogSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial catalog sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Catalog sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Catalog Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt across the local catalog
// tables so incremental syncs only pull what changed.
func (w *CatalogSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw(`SELECT GREATEST(
		COALESCE((SELECT MAX(updated_at) FROM courses WHERE deleted_at IS NULL), 'epoch'::timestamptz),
		COALESCE((SELECT MAX(updated_at) FROM achievement_definitions), 'epoch'::timestamptz)
	)`).Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches catalog changes from the content service and upserts them
// into the local tables.
func (w *CatalogSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)
	log.Printf("[SYNC] 📡 Fetching catalog changes from content service since=%s", sinceStr)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base content service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Printf("[SYNC] ❌ Request to %s failed: %v", finalURL, err)
		return fmt.Errorf("HTTP request to content service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Content service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("content service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetCatalogChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		log.Printf("[SYNC] ❌ Failed to decode JSON response from %s: %v", finalURL, err)
		return fmt.Errorf("failed to decode content service response: %w", err)
	}

	if len(response.Courses) == 0 && len(response.Achievements) == 0 {
		log.Printf("[SYNC] ✅ No catalog changes received since %s", sinceStr)
		return nil
	}

	var courseCount, achievementCount, errorCount int

	for _, remote := range response.Courses {
		course := buildCourse(remote)
		if err := course.Validate(); err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Rejected course %q: %v", remote.ID, err)
			continue
		}
		if err := w.upsertCourse(course); err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert course %q: %v", course.ID, err)
			continue
		}
		courseCount++
	}

	for _, remote := range response.Achievements {
		def := models.AchievementDefinition{
			ID:          slug.Make(remote.ID),
			Name:        remote.Name,
			Description: remote.Description,
			Category:    models.AchievementCategory(remote.Category),
			Rarity:      remote.Rarity,
			Requirement: remote.Requirement,
			CourseID:    slugOrEmpty(remote.CourseID),
			XPReward:    remote.XPReward,
			CoinReward:  remote.CoinReward,
			UpdatedAt:   remote.UpdatedAt,
		}
		if err := def.Validate(); err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Rejected achievement %q: %v", remote.ID, err)
			continue
		}
		if err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&def).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert achievement %q: %v", def.ID, err)
			continue
		}
		achievementCount++
	}

	log.Printf("[SYNC] ✅ Synced catalog: %d course(s), %d achievement(s), %d error(s)",
		courseCount, achievementCount, errorCount)
	return nil
}

// upsertCourse writes a validated course and its children in one transaction
// so readers never observe a half-synced course.
func (w *CatalogSyncWorker) upsertCourse(course *models.Course) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		units := course.Units
		course.Units = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(course).Error; err != nil {
			return err
		}
		course.Units = units

		for i := range units {
			unit := units[i]
			quiz := unit.Quiz
			unit.Quiz = nil
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&unit).Error; err != nil {
				return err
			}
			if quiz == nil {
				continue
			}
			questions := quiz.Questions
			quiz.Questions = nil
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(quiz).Error; err != nil {
				return err
			}
			quiz.Questions = questions
			for j := range questions {
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					UpdateAll: true,
				}).Create(&questions[j]).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// buildCourse converts a remote payload into local models, slugging every
// remote id so codes stay URL-safe and stable.
func buildCourse(remote RemoteCourse) *models.Course {
	course := &models.Course{
		ID:          slug.Make(remote.ID),
		Title:       remote.Title,
		Description: remote.Description,
	}
	course.UpdatedAt = remote.UpdatedAt

	for _, ru := range remote.Units {
		unit := models.Unit{
			ID:         slug.Make(ru.ID),
			CourseID:   course.ID,
			Title:      ru.Title,
			OrderIndex: ru.OrderIndex,
			XPReward:   ru.XPReward,
			CoinReward: ru.CoinReward,
		}
		unit.UpdatedAt = ru.UpdatedAt
		if ru.Quiz != nil {
			quiz := &models.Quiz{
				ID:           slug.Make(ru.Quiz.ID),
				UnitID:       unit.ID,
				CourseID:     course.ID,
				PassingScore: ru.Quiz.PassingScore,
			}
			for _, rq := range ru.Quiz.Questions {
				quiz.Questions = append(quiz.Questions, models.QuizQuestion{
					ID:            slug.Make(rq.ID),
					QuizID:        quiz.ID,
					OrderIndex:    rq.OrderIndex,
					Prompt:        rq.Prompt,
					Options:       rq.Options,
					CorrectOption: rq.CorrectOption,
					XPReward:      rq.XPReward,
				})
			}
			unit.Quiz = quiz
		}
		course.Units = append(course.Units, unit)
	}
	return course
}

func slugOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return slug.Make(s)
}
