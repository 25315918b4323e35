package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the key-value settings store certificates read from.
type Store interface {
	GetValues(ctx context.Context) (map[string]string, error)
	PutValues(ctx context.Context, values map[string]string) error
}

type settingRow struct {
	Key       string `gorm:"column:setting_key;primaryKey"`
	Value     string `gorm:"column:setting_value"`
	UpdatedAt time.Time
}

func (settingRow) TableName() string { return "certificate_settings" }

// settingsSnapshot keeps every accepted update for auditing.
type settingsSnapshot struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Values    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (settingsSnapshot) TableName() string { return "certificate_settings_history" }

// GormStore keeps settings in Postgres, one row per key.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the store and migrates its tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&settingRow{}, &settingsSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate settings tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetValues(ctx context.Context) (map[string]string, error) {
	var rows []settingRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

func (s *GormStore) PutValues(ctx context.Context, values map[string]string) error {
	now := time.Now()
	rows := make([]settingRow, 0, len(values))
	snapshot := make(datatypes.JSONMap, len(values))
	for k, v := range values {
		rows = append(rows, settingRow{Key: k, Value: v, UpdatedAt: now})
		snapshot[k] = v
	}
	if len(rows) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
		}).Create(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		return tx.Create(&settingsSnapshot{ID: uuid.New(), Values: snapshot, CreatedAt: now}).Error
	})
}

// MemoryStore is an in-process Store, used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) GetValues(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) PutValues(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.values[k] = v
	}
	return nil
}
