package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/accounthub/internal/models"
)

var errDatabaseStoreNil = errors.New("cache: database store not initialised")

// DatabaseStore implements the cache Store interface using the primary SQL database.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// IncrementWithTTL atomically increments a counter for the supplied key.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errDatabaseStoreNil
	}
	if window <= 0 {
		window = defaultCounterWindow
	}

	now := s.now()
	var (
		count  int64
		expiry time.Time
	)

	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			count, expiry = 1, now.Add(window)
			return tx.Create(&models.CacheEntry{Key: key, Value: []byte("1"), ExpiresAt: expiry}).Error
		}
		if err != nil {
			return err
		}

		if entry.Expired(now) || entry.ExpiresAt.IsZero() {
			count, expiry = 1, now.Add(window)
		} else {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count, expiry = current+1, entry.ExpiresAt
		}
		entry.Value = []byte(strconv.FormatInt(count, 10))
		entry.ExpiresAt = expiry
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("cache: database increment: %w", err)
	}

	return count, expiry.Sub(now), nil
}

// Set upserts the value for a given key with expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errDatabaseStoreNil
	}

	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}

	return s.db.WithContext(ensureContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves a value by key. Expired rows are removed on read.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errDatabaseStoreNil
	}
	ctx = ensureContext(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: database get: %w", err)
	}

	if entry.Expired(s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNil
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ensureContext(ctx)).Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// Prune deletes every entry that expired before now and returns the number removed.
func (s *DatabaseStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNil
	}
	res := s.db.WithContext(ensureContext(ctx)).
		Where("expires_at > ? AND expires_at < ?", time.Time{}, now).
		Delete(&models.CacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("cache: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (s *DatabaseStore) Close() error {
	return nil
}
