package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/ports"
	"github.com/mdenis/trailposter/internal/pkg/metrics"
)

// LayerCache memoizes external layer fetches for the active poster session,
// keyed by (area, kind). An area change invalidates every kind; fetch
// failures are never cached, so the next Get retries. Concurrent Gets for
// the same pending key share a single in-flight fetch.
//
// The cache is the only shared mutable state in the pipeline. It is owned by
// the session, replaced wholesale on new-track load via Reset.
type LayerCache struct {
	fetcher ports.LayerFetcher
	store   ports.PayloadStore // optional durable second level, may be nil
	areaTol float64
	ttlSecs int

	mu      sync.Mutex
	hasArea bool
	area    domain.Area
	entries map[domain.LayerKind]*domain.LayerPayload

	group singleflight.Group
}

// NewLayerCache creates a new LayerCache. store may be nil.
func NewLayerCache(fetcher ports.LayerFetcher, store ports.PayloadStore, areaTol float64, ttlSecs int) *LayerCache {
	return &LayerCache{
		fetcher: fetcher,
		store:   store,
		areaTol: areaTol,
		ttlSecs: ttlSecs,
		entries: make(map[domain.LayerKind]*domain.LayerPayload),
	}
}

// Get returns the payload for (area, kind), fetching on miss. The cached
// payload instance is returned as-is on a hit; callers must not mutate it.
func (c *LayerCache) Get(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error) {
	c.mu.Lock()
	if c.hasArea && !c.area.Equal(area, c.areaTol) {
		// New geographic footprint: every layer depends on the area.
		c.entries = make(map[domain.LayerKind]*domain.LayerPayload)
		c.hasArea = false
	}
	if !c.hasArea {
		c.area = area
		c.hasArea = true
	}
	if p, ok := c.entries[kind]; ok {
		c.mu.Unlock()
		metrics.CacheHits.WithLabelValues(string(kind)).Inc()
		return p, nil
	}
	c.mu.Unlock()

	key := cacheKey(area, kind)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, area, kind, key)
	})
	if err != nil {
		var unavailable *domain.DataUnavailableError
		if !errors.As(err, &unavailable) {
			err = &domain.DataUnavailableError{Kind: kind, Err: err}
		}
		return nil, err
	}

	payload := v.(*domain.LayerPayload)

	c.mu.Lock()
	if c.hasArea && c.area.Equal(area, c.areaTol) {
		c.entries[kind] = payload
	}
	c.mu.Unlock()

	return payload, nil
}

// Reset drops all cached entries. Called when a new track is loaded.
func (c *LayerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[domain.LayerKind]*domain.LayerPayload)
	c.hasArea = false
}

func (c *LayerCache) load(ctx context.Context, area domain.Area, kind domain.LayerKind, key string) (*domain.LayerPayload, error) {
	// Counted here rather than in Get so coalesced callers sharing this
	// flight record one miss, keeping hit/miss in step with LayerFetches.
	metrics.CacheMisses.WithLabelValues(string(kind)).Inc()

	if c.store != nil {
		if data, err := c.store.Get(ctx, key); err == nil {
			var p domain.LayerPayload
			if err := json.Unmarshal(data, &p); err == nil {
				return &p, nil
			}
		}
	}

	start := time.Now()
	metrics.LayerFetches.WithLabelValues(string(kind)).Inc()
	payload, err := c.fetcher.Fetch(ctx, area, kind)
	metrics.LayerFetchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LayerFetchErrors.WithLabelValues(string(kind)).Inc()
		return nil, err
	}
	if payload.FetchedAt.IsZero() {
		payload.FetchedAt = time.Now()
	}

	if c.store != nil {
		if data, err := json.Marshal(payload); err == nil {
			if err := c.store.Set(ctx, key, data, c.ttlSecs); err != nil {
				slog.Debug("payload store write failed", "kind", kind, "error", err)
			}
		}
	}

	return payload, nil
}

func cacheKey(area domain.Area, kind domain.LayerKind) string {
	return fmt.Sprintf("layer:%s:%.5f:%.5f:%.5f:%.5f",
		kind, area.MinLat, area.MinLon, area.MaxLat, area.MaxLon)
}
