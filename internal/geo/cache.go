package geo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/job-recommender/internal/logger"
)

const DefaultCacheTTL = 24 * time.Hour

// Store keeps lookups by normalized location string.
type Store interface {
	Get(ctx context.Context, key string) (Lookup, bool, error)
	Set(ctx context.Context, key string, lookup Lookup, ttl time.Duration) error
}

// CachedGeocoder serves repeated locations from a Store. Found and not-found
// lookups are both cached; failed lookups are not.
type CachedGeocoder struct {
	next   Geocoder
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// NewCachedGeocoder wraps next with store. A non-positive ttl uses DefaultCacheTTL.
func NewCachedGeocoder(next Geocoder, store Store, ttl time.Duration, log *zap.Logger) *CachedGeocoder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &CachedGeocoder{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger.OrNop(log),
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (Lookup, error) {
	key := NormalizeQuery(query)
	if key == "" {
		return NotFound, nil
	}

	lookup, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("geocode cache read failed", zap.String(logger.FieldLocation, key), zap.Error(err))
	} else if ok {
		c.logger.Debug("geocode cache hit", zap.String(logger.FieldLocation, key))
		return lookup, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// shared by every caller of key; no single caller's cancellation applies
		lookupCtx := context.WithoutCancel(ctx)

		lookup, err := c.next.Geocode(lookupCtx, query)
		if err != nil {
			return NotFound, err
		}

		if err := c.store.Set(lookupCtx, key, lookup, c.ttl); err != nil {
			c.logger.Warn("geocode cache write failed", zap.String(logger.FieldLocation, key), zap.Error(err))
		}

		return lookup, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return NotFound, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		return NotFound, res.Err
	}

	if res.Shared {
		c.logger.Debug("geocode lookup shared", zap.String(logger.FieldLocation, key))
	}

	return res.Val.(Lookup), nil
}

type memoryEntry struct {
	lookup    Lookup
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are ignored on read and
// removed by Purge.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Lookup, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok || !m.now().Before(entry.expiresAt) {
		return NotFound, false, nil
	}

	return entry.lookup, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, lookup Lookup, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{lookup: lookup, expiresAt: m.now().Add(ttl)}
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (m *MemoryStore) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}

	return removed
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
