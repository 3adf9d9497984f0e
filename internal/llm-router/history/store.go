// Package history keeps a record of every generation attempt.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const dbFileName = "history.db"

// Entry is one generation outcome. Prompts and responses are not stored,
// only their lengths.
type Entry struct {
	Id             uuid.UUID      `gorm:"primaryKey" json:"id"`
	RequestId      string         `json:"requestId,omitempty"`
	ProjectId      string         `gorm:"index" json:"projectId"`
	Provider       string         `json:"provider,omitempty"`
	Model          string         `json:"model,omitempty"`
	ServedBy       string         `json:"servedBy,omitempty"`
	Success        bool           `json:"success"`
	ErrorKind      string         `json:"errorKind,omitempty"`
	Details        pq.StringArray `gorm:"type:text[]" json:"details,omitempty"`
	PromptLength   int            `json:"promptLength"`
	ResponseLength int            `json:"responseLength"`
	DurationMs     int64          `json:"durationMs"`
	CreatedAt      time.Time      `gorm:"index" json:"createdAt"`
}

// Recorder is what the generation pipeline needs from a history backend.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

type Store struct {
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

// Open connects to the sqlite database under dir, creating dir if needed.
func Open(dir string) (*gorm.DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := gorm.Open(
		sqlite.Open(filepath.Join(dir, dbFileName)),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

// NewStore makes sure the history table exists. A zero retention keeps
// entries forever.
func NewStore(db *gorm.DB, retention time.Duration) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history table: %w", err)
	}
	return &Store{db: db, retention: retention, now: time.Now}, nil
}

func (s *Store) Record(ctx context.Context, entry *Entry) error {
	if entry.Id == uuid.Nil {
		entry.Id = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// Recent returns up to limit entries, newest first. An empty projectID
// matches every project.
func (s *Store) Recent(ctx context.Context, projectID string, limit int) ([]Entry, error) {
	var entries []Entry
	q := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Prune deletes entries older than the retention window and reports how many
// were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.retention)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Entry{})
	return res.RowsAffected, res.Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
