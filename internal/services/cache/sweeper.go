package cache

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Sweeper periodically purges expired entries from registered stores.
// On-access expiry already guarantees no stale reads; the sweep only
// reclaims memory held by entries nothing is reading anymore.
type Sweeper struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	stores  []*Store
	running bool
}

// NewSweeper creates a sweeper on the given cron schedule
// (e.g. "@every 2m").
func NewSweeper(schedule string, logger arbor.ILogger) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Register adds stores to the sweep rotation.
func (s *Sweeper) Register(stores ...*Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores = append(s.stores, stores...)
}

// Start begins the background sweep.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("stores", len(s.stores)).Msg("Cache sweeper started")
}

// Stop halts the background sweep. Running sweeps complete first.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Cache sweeper stopped")
}

func (s *Sweeper) sweep() {
	s.mu.Lock()
	stores := make([]*Store, len(s.stores))
	copy(stores, s.stores)
	s.mu.Unlock()

	total := 0
	for _, store := range stores {
		if dropped := store.PurgeExpired(); dropped > 0 {
			s.logger.Debug().
				Str("store", store.Name()).
				Int("dropped", dropped).
				Msg("Purged expired cache entries")
			total += dropped
		}
	}
	if total > 0 {
		s.logger.Debug().Int("total", total).Msg("Cache sweep completed")
	}
}
