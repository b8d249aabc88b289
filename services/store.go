package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"learning-progress-system/models"

	"gorm.io/gorm"
)

// RecordStore is the persisted-record abstraction the progression core runs
// against. Save must persist the record, its pending ledger entries, unlock
// rows and the processed-event marker atomically, and must fail with
// ErrConflict when the record's version no longer matches — the service
// retries on that.
type RecordStore interface {
	Load(ctx context.Context, userID string) (*models.ProgressionRecord, error)
	Create(ctx context.Context, rec *models.ProgressionRecord) error
	Save(ctx context.Context, rec *models.ProgressionRecord, entries []models.CoinTransaction, unlocks []models.UserAchievement, event *models.ProcessedEvent) error
	LookupEvent(ctx context.Context, eventID string) (*models.ProcessedEvent, error)
	UserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error)
	ListRecords(ctx context.Context) ([]models.ProgressionRecord, error)
	ListTransactions(ctx context.Context, userID string, page, size int) ([]models.CoinTransaction, int64, error)
	LatestSnapshot(ctx context.Context, period models.LeaderboardPeriod, dimension models.LeaderboardDimension) (*models.LeaderboardSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *models.LeaderboardSnapshot) error
}

// GormRecordStore is the production store on Postgres.
type GormRecordStore struct {
	DB *gorm.DB
}

func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{DB: db}
}

func (s *GormRecordStore) Load(ctx context.Context, userID string) (*models.ProgressionRecord, error) {
	var rec models.ProgressionRecord
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormRecordStore) Create(ctx context.Context, rec *models.ProgressionRecord) error {
	err := s.DB.WithContext(ctx).Create(rec).Error
	// Losing a first-touch create race is a conflict, not a failure; the
	// caller reloads the winner's record. Requires TranslateError on the
	// gorm config.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrConflict
	}
	return err
}

// Save updates the record guarded by its version and appends the ledger
// entries, unlock rows and the event marker in the same database
// transaction. A version mismatch rolls everything back and surfaces as
// ErrConflict.
func (s *GormRecordStore) Save(ctx context.Context, rec *models.ProgressionRecord, entries []models.CoinTransaction, unlocks []models.UserAchievement, event *models.ProcessedEvent) error {
	prev := rec.Version
	rec.Version = prev + 1

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ProgressionRecord{}).
			Where("id = ? AND version = ?", rec.ID, prev).
			Select("*").
			Omit("id", "created_at").
			Updates(rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrConflict
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		if len(unlocks) > 0 {
			if err := tx.Create(&unlocks).Error; err != nil {
				return err
			}
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		rec.Version = prev
		return err
	}
	return nil
}

func (s *GormRecordStore) LookupEvent(ctx context.Context, eventID string) (*models.ProcessedEvent, error) {
	var event models.ProcessedEvent
	err := s.DB.WithContext(ctx).Where("id = ?", eventID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *GormRecordStore) UserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormRecordStore) ListRecords(ctx context.Context) ([]models.ProgressionRecord, error) {
	var records []models.ProgressionRecord
	err := s.DB.WithContext(ctx).Find(&records).Error
	return records, err
}

func (s *GormRecordStore) ListTransactions(ctx context.Context, userID string, page, size int) ([]models.CoinTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.CoinTransaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.CoinTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&entries).Error
	return entries, total, err
}

func (s *GormRecordStore) LatestSnapshot(ctx context.Context, period models.LeaderboardPeriod, dimension models.LeaderboardDimension) (*models.LeaderboardSnapshot, error) {
	var snapshot models.LeaderboardSnapshot
	err := s.DB.WithContext(ctx).
		Where("period = ? AND dimension = ?", period, dimension).
		Order("captured_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *GormRecordStore) SaveSnapshot(ctx context.Context, snapshot *models.LeaderboardSnapshot) error {
	return s.DB.WithContext(ctx).Create(snapshot).Error
}

// MemoryRecordStore backs tests and local development without Postgres. It
// enforces the same version semantics as the GORM store, including atomic
// record+ledger saves, and deep-copies records across the boundary so
// callers cannot alias its state.
type MemoryRecordStore struct {
	mu        sync.Mutex
	records   map[string]*models.ProgressionRecord // keyed by user id
	events    map[string]*models.ProcessedEvent
	ledger    map[string][]models.CoinTransaction
	unlocks   map[string][]models.UserAchievement
	snapshots []*models.LeaderboardSnapshot
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string]*models.ProgressionRecord),
		events:  make(map[string]*models.ProcessedEvent),
		ledger:  make(map[string][]models.CoinTransaction),
		unlocks: make(map[string][]models.UserAchievement),
	}
}

func (s *MemoryRecordStore) Load(_ context.Context, userID string) (*models.ProgressionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryRecordStore) Create(_ context.Context, rec *models.ProgressionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.UserID]; ok {
		return models.ErrConflict
	}
	s.records[rec.UserID] = rec.Clone()
	return nil
}

func (s *MemoryRecordStore) Save(_ context.Context, rec *models.ProgressionRecord, entries []models.CoinTransaction, unlocks []models.UserAchievement, event *models.ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[rec.UserID]
	if !ok {
		return models.ErrRecordNotFound
	}
	if stored.Version != rec.Version {
		return models.ErrConflict
	}
	rec.Version++
	s.records[rec.UserID] = rec.Clone()
	s.ledger[rec.UserID] = append(s.ledger[rec.UserID], entries...)
	s.unlocks[rec.UserID] = append(s.unlocks[rec.UserID], unlocks...)
	if event != nil {
		copied := *event
		s.events[event.ID] = &copied
	}
	return nil
}

func (s *MemoryRecordStore) LookupEvent(_ context.Context, eventID string) (*models.ProcessedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

func (s *MemoryRecordStore) UserAchievements(_ context.Context, userID string) ([]models.UserAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UserAchievement(nil), s.unlocks[userID]...), nil
}

func (s *MemoryRecordStore) ListRecords(_ context.Context) ([]models.ProgressionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]models.ProgressionRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, *rec.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

func (s *MemoryRecordStore) ListTransactions(_ context.Context, userID string, page, size int) ([]models.CoinTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	all := s.ledger[userID]
	total := int64(len(all))
	start := (page - 1) * size
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return append([]models.CoinTransaction(nil), all[start:end]...), total, nil
}

func (s *MemoryRecordStore) LatestSnapshot(_ context.Context, period models.LeaderboardPeriod, dimension models.LeaderboardDimension) (*models.LeaderboardSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].Period == period && s.snapshots[i].Dimension == dimension {
			copied := *s.snapshots[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryRecordStore) SaveSnapshot(_ context.Context, snapshot *models.LeaderboardSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snapshot
	s.snapshots = append(s.snapshots, &copied)
	return nil
}
