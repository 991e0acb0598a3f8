package pagecache

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leafread/leafread/internal/entities"
)

// SQLiteStore is the preferred persistent backend, keeping cached results
// across restarts in the application database.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(key string) ([]byte, error) {
	var record entities.CacheRecord
	err := s.db.Where("key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.Value, nil
}

func (s *SQLiteStore) Set(key string, value []byte) error {
	record := entities.CacheRecord{Key: key, Value: value}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&record).Error
}

func (s *SQLiteStore) Remove(key string) error {
	return s.db.Where("key = ?", key).Delete(&entities.CacheRecord{}).Error
}

func (s *SQLiteStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.Model(&entities.CacheRecord{}).Pluck("key", &keys).Error
	return keys, err
}

// SelectStore probes the persistent backend once at construction and falls
// back to an in-memory store when it is unavailable. The probe is a full
// set/get/remove round-trip: a database that opens but cannot write is as
// useless to the cache as no database at all.
func SelectStore(db *gorm.DB, log *zap.Logger) Store {
	if log == nil {
		log = zap.NewNop()
	}
	if db == nil {
		log.Warn("pagination cache: no database, using in-memory store")
		return NewMemoryStore()
	}

	store := NewSQLiteStore(db)
	if err := probe(store); err != nil {
		log.Warn("pagination cache: persistent store unavailable, using in-memory store", zap.Error(err))
		return NewMemoryStore()
	}
	return store
}

func probe(store Store) error {
	const key = "pagination_probe"
	if err := store.Set(key, []byte("ok")); err != nil {
		return fmt.Errorf("probe write: %w", err)
	}
	if _, err := store.Get(key); err != nil {
		return fmt.Errorf("probe read: %w", err)
	}
	if err := store.Remove(key); err != nil {
		return fmt.Errorf("probe remove: %w", err)
	}
	return nil
}
