// Package store persists planted pins so they survive a restart.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/woozymasta/globepins/internal/pin"
)

// ErrNotFound is returned when no record matches the key.
var ErrNotFound = errors.New("pin record not found")

// PinRecord is the stored form of a pin.
type PinRecord struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Options   datatypes.JSONType[pin.Options]
	Key       string `gorm:"primaryKey"`
	Text      string
	Lat       float64
	Lon       float64
	Altitude  float64
}

// Store wraps a GORM SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// An empty path opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql interface: %w", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&PinRecord{}); err != nil {
		return nil, fmt.Errorf("migrate pins: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save inserts or replaces the record with the same key.
func (s *Store) Save(rec PinRecord) error {
	if err := s.db.Save(&rec).Error; err != nil {
		return fmt.Errorf("save pin %s: %w", rec.Key, err)
	}
	return nil
}

// Delete removes the record. Deleting a missing key returns ErrNotFound.
func (s *Store) Delete(key string) error {
	res := s.db.Delete(&PinRecord{}, "`key` = ?", key)
	if res.Error != nil {
		return fmt.Errorf("delete pin %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// UpdateAltitude stores a new target altitude.
func (s *Store) UpdateAltitude(key string, altitude float64) error {
	res := s.db.Model(&PinRecord{}).Where("`key` = ?", key).Update("altitude", altitude)
	if res.Error != nil {
		return fmt.Errorf("update pin %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// List returns all records, oldest first.
func (s *Store) List() ([]PinRecord, error) {
	var out []PinRecord
	if err := s.db.Order("created_at").Order("`key`").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	return out, nil
}
