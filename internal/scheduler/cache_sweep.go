// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/leafread/leafread/internal/pagecache"
)

// CacheSweepScheduler periodically purges expired pagination cache entries.
// Expiry is still checked lazily at read time; the sweep just stops dead
// entries from occupying the store between reads.
type CacheSweepScheduler struct {
	cache    *pagecache.Cache
	schedule string
	log      *zap.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	isRunning bool
}

func NewCacheSweepScheduler(cache *pagecache.Cache, schedule string, log *zap.Logger) *CacheSweepScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheSweepScheduler{
		cache:    cache,
		schedule: schedule,
		log:      log,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the periodic sweep.
func (s *CacheSweepScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.cache == nil {
		s.log.Info("cache sweep scheduler: cache disabled, not starting")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("invalid cache sweep schedule %q: %w", s.schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	s.log.Info("cache sweep scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler, waiting for a sweep in flight.
func (s *CacheSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.log.Info("cache sweep scheduler stopped")
}

func (s *CacheSweepScheduler) runSweep() {
	removed, err := s.cache.RemoveExpired()
	if err != nil {
		s.log.Warn("cache sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.log.Info("cache sweep removed expired entries", zap.Int("removed", removed))
	}
}
