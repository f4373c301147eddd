package catalog

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds configuration for the download catalog.
type Config struct {
	// Enabled toggles history recording.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Path is the sqlite database file. Empty resolves to
	// "history.db" inside the event directory.
	Path string `mapstructure:"path" default:""`
}

// Outcome classifies what happened to one item during a cycle.
type Outcome string

const (
	// OutcomeAlreadyHave means a complete final file was already present.
	OutcomeAlreadyHave Outcome = "already_have"
	// OutcomeIncomplete means an undersized final file was deleted and
	// queued for re-download.
	OutcomeIncomplete Outcome = "incomplete"
	// OutcomeMatchedRelease means a relive item was satisfied by an
	// existing release and skipped.
	OutcomeMatchedRelease Outcome = "matched_release"
	// OutcomeDownloaded means the item was newly transferred.
	OutcomeDownloaded Outcome = "downloaded"
	// OutcomeFailed means the transfer exhausted its retry budget.
	OutcomeFailed Outcome = "failed"
	// OutcomeRemoved means a relive file was deleted because a release
	// superseded it.
	OutcomeRemoved Outcome = "removed"
)

// Cycle is one reconciliation pass over a single source.
type Cycle struct {
	ID         uint   `gorm:"primaryKey"`
	Event      string `gorm:"index"`
	Source     string // "releases", "relive" or "cleanup"
	StartedAt  time.Time
	FinishedAt time.Time

	Found       int
	AlreadyHave int
	Incomplete  int
	Matched     int
	Downloaded  int
	Failed      int
	Removed     int
}

// Item is the recorded outcome for one title within a cycle.
type Item struct {
	ID        uint `gorm:"primaryKey"`
	CycleID   uint `gorm:"index"`
	Title     string
	Outcome   Outcome
	SizeBytes int64
}

// Store persists cycle history in a local sqlite database.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the catalog at the given path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := db.AutoMigrate(&Cycle{}, &Item{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordCycle stores a finished cycle with its item outcomes in one
// transaction.
func (s *Store) RecordCycle(cycle *Cycle, items []Item) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cycle).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].CycleID = cycle.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// RecentCycles returns the newest cycles for an event, most recent first.
func (s *Store) RecentCycles(event string, limit int) ([]Cycle, error) {
	var cycles []Cycle
	err := s.db.
		Where("event = ?", event).
		Order("id DESC").
		Limit(limit).
		Find(&cycles).Error
	return cycles, err
}

// CycleItems returns the item outcomes recorded for one cycle.
func (s *Store) CycleItems(cycleID uint) ([]Item, error) {
	var items []Item
	err := s.db.Where("cycle_id = ?", cycleID).Order("id").Find(&items).Error
	return items, err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
