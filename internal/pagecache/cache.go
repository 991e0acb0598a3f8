package pagecache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leafread/leafread/internal/pagination"
)

const (
	// DefaultTTL is how long a cached result stays valid. Expiry is checked
	// lazily at read time; an expired entry behaves as absent.
	DefaultTTL = 7 * 24 * time.Hour

	// DefaultMaxEntries caps the number of stored results; exceeding it
	// evicts oldest-by-timestamp entries down to the cap.
	DefaultMaxEntries = 50

	keyPrefix = "pagination_v"
)

// Entry is the persisted cache record value.
type Entry struct {
	Data      *pagination.PagedBook `json:"data"`
	Timestamp time.Time             `json:"timestamp"`
	Metadata  EntryMetadata         `json:"metadata"`
}

type EntryMetadata struct {
	ConfigHash string `json:"config_hash"`
	Version    string `json:"version"`
}

// Cache memoizes full pagination results keyed by book id plus a
// fingerprint of the shape-affecting configuration. All storage failures
// are absorbed and logged; callers see them as cache misses.
type Cache struct {
	store      Store
	ttl        time.Duration
	maxEntries int
	log        *zap.Logger
	now        func() time.Time
}

func New(store Store, ttl time.Duration, maxEntries int, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{store: store, ttl: ttl, maxEntries: maxEntries, log: log, now: time.Now}
}

// Key derives the storage key for one (book, config) pair. Only the
// configuration fields that affect output shape participate in the hash, so
// unrelated option changes never invalidate the cache.
func (c *Cache) Key(bookID string, opts pagination.Options) string {
	return fmt.Sprintf("%s%s_%s_%s", keyPrefix, pagination.Version, bookID, fingerprint(opts))
}

func fingerprint(opts pagination.Options) string {
	b := opts.ParagraphsPerPage
	canonical := fmt.Sprintf("min=%d;max=%d;preferred=%d;words=%d;chapter=%d;wpm=%d",
		b.Min, b.Max, b.Preferred, opts.WordsPerPage, opts.PagesPerChapter, opts.WordsPerMinute)
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%x", sum[:8])
}

// Get returns the cached result for (bookID, opts), treating expired
// entries as absent and purging them opportunistically.
func (c *Cache) Get(bookID string, opts pagination.Options) (*pagination.PagedBook, bool) {
	key := c.Key(bookID, opts)

	raw, err := c.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("pagination cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Warn("pagination cache entry corrupted, purging", zap.String("key", key), zap.Error(err))
		_ = c.store.Remove(key)
		return nil, false
	}

	if c.now().Sub(entry.Timestamp) > c.ttl {
		_ = c.store.Remove(key)
		return nil, false
	}
	if entry.Data == nil {
		_ = c.store.Remove(key)
		return nil, false
	}
	return entry.Data, true
}

// Set stores a pagination result. A write failure (quota and the like)
// triggers exactly one evict-oldest-then-retry attempt; a second failure is
// logged and absorbed so the caller still gets its uncached result.
func (c *Cache) Set(bookID string, opts pagination.Options, book *pagination.PagedBook) {
	key := c.Key(bookID, opts)

	entry := Entry{
		Data:      book,
		Timestamp: c.now(),
		Metadata: EntryMetadata{
			ConfigHash: fingerprint(opts),
			Version:    pagination.Version,
		},
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.log.Warn("pagination cache entry not serializable", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.enforceCap(key); err != nil {
		c.log.Warn("pagination cache eviction failed", zap.Error(err))
	}

	if err := c.store.Set(key, raw); err != nil {
		c.log.Warn("pagination cache write failed, evicting and retrying", zap.String("key", key), zap.Error(err))
		if evictErr := c.evictOldest(1); evictErr != nil {
			c.log.Warn("pagination cache retry eviction failed", zap.Error(evictErr))
		}
		if err := c.store.Set(key, raw); err != nil {
			c.log.Warn("pagination cache write failed after eviction, giving up", zap.String("key", key), zap.Error(err))
		}
	}
}

// enforceCap makes room for one incoming entry so the stored count never
// exceeds maxEntries. Overwrites of an existing key need no room.
func (c *Cache) enforceCap(incoming string) error {
	keys, err := c.cacheKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == incoming {
			return nil
		}
	}
	if len(keys) < c.maxEntries {
		return nil
	}
	return c.evictOldest(len(keys) - c.maxEntries + 1)
}

// evictOldest removes n entries, oldest timestamp first. Entries whose
// value no longer unmarshals sort as oldest and go first.
func (c *Cache) evictOldest(n int) error {
	keys, err := c.cacheKeys()
	if err != nil {
		return err
	}

	type aged struct {
		key string
		at  time.Time
	}
	entries := make([]aged, 0, len(keys))
	for _, key := range keys {
		var at time.Time
		if raw, err := c.store.Get(key); err == nil {
			var entry Entry
			if err := json.Unmarshal(raw, &entry); err == nil {
				at = entry.Timestamp
			}
		}
		entries = append(entries, aged{key: key, at: at})
	}

	for ; n > 0 && len(entries) > 0; n-- {
		oldest := 0
		for i := 1; i < len(entries); i++ {
			if entries[i].at.Before(entries[oldest].at) {
				oldest = i
			}
		}
		if err := c.store.Remove(entries[oldest].key); err != nil {
			return err
		}
		entries = append(entries[:oldest], entries[oldest+1:]...)
	}
	return nil
}

// RemoveExpired purges every entry past its TTL and reports how many were
// removed. The scheduler calls this periodically; lazy expiry at read time
// still applies between sweeps.
func (c *Cache) RemoveExpired() (int, error) {
	keys, err := c.cacheKeys()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		raw, err := c.store.Get(key)
		if err != nil {
			continue
		}
		var entry Entry
		expired := json.Unmarshal(raw, &entry) != nil || c.now().Sub(entry.Timestamp) > c.ttl
		if !expired {
			continue
		}
		if err := c.store.Remove(key); err != nil {
			c.log.Warn("pagination cache sweep: remove failed", zap.String("key", key), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// Clear drops every cached pagination result.
func (c *Cache) Clear() (int, error) {
	keys, err := c.cacheKeys()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		if err := c.store.Remove(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Stats reports the current entry count and how many of those are already
// past their TTL.
type Stats struct {
	Entries    int `json:"entries"`
	Expired    int `json:"expired"`
	MaxEntries int `json:"max_entries"`
}

func (c *Cache) Stats() (Stats, error) {
	keys, err := c.cacheKeys()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Entries: len(keys), MaxEntries: c.maxEntries}
	for _, key := range keys {
		raw, err := c.store.Get(key)
		if err != nil {
			continue
		}
		var entry Entry
		if json.Unmarshal(raw, &entry) != nil || c.now().Sub(entry.Timestamp) > c.ttl {
			stats.Expired++
		}
	}
	return stats, nil
}

// cacheKeys filters the store down to this cache's key namespace so a
// shared store can hold unrelated records.
func (c *Cache) cacheKeys() ([]string, error) {
	keys, err := c.store.Keys()
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, key := range keys {
		if strings.HasPrefix(key, keyPrefix) {
			out = append(out, key)
		}
	}
	return out, nil
}
