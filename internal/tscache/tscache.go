// Package tscache implements the block timestamp cache (§4.5, C5): a
// map from block hash to Unix timestamp, bulk-prefetched so the event
// updater (C4) never serializes one RPC per event during past-events
// replay.
package tscache

import (
	"context"
	"fmt"
	"sync"

	"github.com/stablex/driver/internal/domain"
)

// Cache is owned solely by the event updater — per §5, "the timestamp
// cache is owned solely by C4 — no sharing" — but its map access is still
// guarded by a mutex because prepare_cache issues its fetches
// concurrently.
type Cache struct {
	clock domain.Clock

	mu    sync.Mutex
	times map[[32]byte]uint64
}

// New builds a cache over the given Clock.
func New(clock domain.Clock) *Cache {
	return &Cache{
		clock: clock,
		times: make(map[[32]byte]uint64),
	}
}

// PrepareCache issues one parallel batch of RPCs for every hash in
// hashes not already cached, then populates the map. It does not itself
// fail on an individual RPC error so that a single bad hash doesn't block
// the whole prefetch; BlockTimestamp falls back to a single RPC for any
// hash that didn't make it in, per §4.5 ("a cache miss after
// prepare_cache still falls back to a single RPC; never fails silently").
func (c *Cache) PrepareCache(ctx context.Context, hashes map[[32]byte]struct{}) error {
	missing := make([][32]byte, 0, len(hashes))
	c.mu.Lock()
	for h := range hashes {
		if _, ok := c.times[h]; !ok {
			missing = append(missing, h)
		}
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}

	type result struct {
		hash [32]byte
		ts   uint64
		err  error
	}
	results := make(chan result, len(missing))

	var wg sync.WaitGroup
	for _, h := range missing {
		wg.Add(1)
		go func(h [32]byte) {
			defer wg.Done()
			ts, err := c.clock.BlockTimestamp(ctx, h)
			results <- result{hash: h, ts: ts, err: err}
		}(h)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	for r := range results {
		if r.err != nil {
			// Leave this hash uncached; BlockTimestamp will retry it
			// individually on demand.
			continue
		}
		c.times[r.hash] = r.ts
	}
	return nil
}

// BlockTimestamp returns the cached timestamp for hash, fetching it from
// the Clock on a cache miss.
func (c *Cache) BlockTimestamp(ctx context.Context, hash [32]byte) (uint64, error) {
	c.mu.Lock()
	ts, ok := c.times[hash]
	c.mu.Unlock()
	if ok {
		return ts, nil
	}

	ts, err := c.clock.BlockTimestamp(ctx, hash)
	if err != nil {
		return 0, fmt.Errorf("%w: block timestamp for %x: %v", domain.ErrRPC, hash, err)
	}

	c.mu.Lock()
	c.times[hash] = ts
	c.mu.Unlock()
	return ts, nil
}
