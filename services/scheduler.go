// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"learning-progress-system/models"
	"learning-progress-system/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// LeaderboardScheduler periodically recomputes leaderboard snapshots from
// live progression records and archives each capture to object storage.
// Snapshots are derived state: losing them costs nothing but history.
type LeaderboardScheduler struct {
	Store    RecordStore
	Interval time.Duration
	Archive  bool // upload captures to object storage
}

func NewLeaderboardScheduler(store RecordStore, interval time.Duration, archive bool) *LeaderboardScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &LeaderboardScheduler{Store: store, Interval: interval, Archive: archive}
}

// Start registers the snapshot job. Call once from main.
func (l *LeaderboardScheduler) Start(ctx context.Context) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(l.Interval),
		gocron.NewTask(func() {
			if err := l.CaptureAll(ctx); err != nil {
				log.Printf("[SCHEDULER] Snapshot capture failed: %v", err)
			}
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
}

// CaptureAll recomputes and stores one snapshot per (period, dimension)
// pair. Weekly and monthly boards serve whatever the latest capture holds.
func (l *LeaderboardScheduler) CaptureAll(ctx context.Context) error {
	records, err := l.Store.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list progression records: %w", err)
	}

	periods := []models.LeaderboardPeriod{models.LeaderboardPeriodWeekly, models.LeaderboardPeriodMonthly}
	dimensions := []models.LeaderboardDimension{models.LeaderboardDimensionXP, models.LeaderboardDimensionStreak}

	for _, period := range periods {
		for _, dimension := range dimensions {
			snapshot := &models.LeaderboardSnapshot{
				ID:         uuid.NewString(),
				Period:     period,
				Dimension:  dimension,
				Entries:    RankRecords(records, dimension, 0),
				CapturedAt: time.Now().UTC(),
			}
			if err := l.Store.SaveSnapshot(ctx, snapshot); err != nil {
				return fmt.Errorf("failed to save %s/%s snapshot: %w", period, dimension, err)
			}

			if l.Archive {
				key := fmt.Sprintf("leaderboards/%s/%s/%s.json", period, dimension, snapshot.CapturedAt.Format("2006-01-02T15-04-05"))
				if url, err := utils.UploadJSON(ctx, key, snapshot); err != nil {
					log.Printf("[SCHEDULER] ⚠️ Failed to archive %s/%s snapshot: %v", period, dimension, err)
				} else {
					log.Printf("[SCHEDULER] ✅ Archived %s/%s snapshot → %s", period, dimension, url)
				}
			}
		}
	}

	log.Printf("[SCHEDULER] ✅ Captured %d leaderboard snapshots (%d records)", len(periods)*len(dimensions), len(records))
	return nil
}
