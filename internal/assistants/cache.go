package assistants

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"voicedash/internal/provider"
	"voicedash/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// defaultNegativeTTL bounds how long a "no such assistant" answer is
// remembered. Assistants can be created after a first miss, so negative
// results must expire; positive entries never do.
const defaultNegativeTTL = 5 * time.Minute

const (
	redisKeyMeta    = "assistant:meta:"
	redisKeyMissing = "assistant:missing:"
)

// Fleet-wide cap on concurrent prewarm fetches. Every replica shares the
// same provider rate limit, so the cap lives in Redis, not in the process.
const (
	prewarmCapKey   = "assistant:prewarm:cap"
	prewarmCapLimit = 16
	prewarmCapTTL   = 30 * time.Second
)

// Cache memoizes assistant metadata for the lifetime of the process.
//
// It is an explicit dependency, not a package-level singleton, so tests can
// run with isolated instances. Expected cardinality is tens to low hundreds
// of assistants, so there is no eviction and no size bound.
//
// Concurrent lookups for the same id share one provider fetch. An optional
// Redis client adds a shared second level: positive entries are stored
// without expiry, misses with a short TTL.
type Cache struct {
	source provider.AssistantSource
	rdb    *redis.Client
	negTTL time.Duration

	mu       sync.Mutex
	entries  map[string]provider.Assistant
	inflight map[string]*fetchResult
}

type fetchResult struct {
	done chan struct{}
	a    provider.Assistant
	ok   bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithRedis enables the shared second level. A nil client is ignored.
func WithRedis(rdb *redis.Client) Option {
	return func(c *Cache) { c.rdb = rdb }
}

// WithNegativeTTL overrides how long misses are remembered in Redis.
func WithNegativeTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.negTTL = ttl
		}
	}
}

func NewCache(source provider.AssistantSource, opts ...Option) *Cache {
	c := &Cache{
		source:   source,
		negTTL:   defaultNegativeTTL,
		entries:  map[string]provider.Assistant{},
		inflight: map[string]*fetchResult{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek reads the in-process cache without triggering any fetch.
// Normalization uses this so it stays a pure function of its inputs.
func (c *Cache) Peek(id string) (provider.Assistant, bool) {
	if id == "" {
		return provider.Assistant{}, false
	}
	c.mu.Lock()
	a, ok := c.entries[id]
	c.mu.Unlock()
	return a, ok
}

// Put seeds an entry directly. Tests and the orchestrator use it when
// assistant metadata arrives embedded in another payload.
func (c *Cache) Put(id string, a provider.Assistant) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.entries[id] = a
	c.mu.Unlock()
}

// Lookup returns metadata for one assistant, fetching it on a miss.
// A provider 404 yields (zero, false) and is not stored in the process
// cache; only the Redis layer remembers it, and only for negTTL.
func (c *Cache) Lookup(ctx context.Context, id string) (provider.Assistant, bool) {
	if id == "" {
		return provider.Assistant{}, false
	}

	c.mu.Lock()
	if a, ok := c.entries[id]; ok {
		c.mu.Unlock()
		return a, true
	}
	if f, ok := c.inflight[id]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.a, f.ok
		case <-ctx.Done():
			return provider.Assistant{}, false
		}
	}
	f := &fetchResult{done: make(chan struct{})}
	c.inflight[id] = f
	c.mu.Unlock()

	f.a, f.ok = c.fetch(ctx, id)

	c.mu.Lock()
	if f.ok {
		c.entries[id] = f.a
	}
	delete(c.inflight, id)
	c.mu.Unlock()
	close(f.done)

	return f.a, f.ok
}

// Prewarm resolves a batch of ids ahead of normalization so a large call
// list does not pay one lookup per record. Fetches run with a small
// concurrency cap to keep provider rate-limit exposure predictable.
func (c *Cache) Prewarm(ctx context.Context, ids []string) {
	const maxConcurrent = 4

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	seen := map[string]struct{}{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			release, ok := c.acquireFleetSlot(ctx)
			if !ok {
				// Prewarm is an optimization: when the fleet is already at
				// the cap, skip and let the next Lookup fetch lazily.
				return
			}
			defer release()
			c.Lookup(ctx, id)
		}(id)
	}
	wg.Wait()
}

// acquireFleetSlot takes one slot of the shared prewarm cap. Redis trouble
// never blocks prewarm; the cap degrades to the local semaphore.
func (c *Cache) acquireFleetSlot(ctx context.Context) (release func(), ok bool) {
	if c.rdb == nil {
		return func() {}, true
	}
	got, err := utils.AcquireConcurrencyCap(ctx, c.rdb, prewarmCapKey, prewarmCapLimit, prewarmCapTTL)
	if err != nil {
		slog.Debug("prewarm cap acquire failed", "err", err)
		return func() {}, true
	}
	if !got {
		return nil, false
	}
	return func() {
		_ = utils.ReleaseConcurrencyCap(ctx, c.rdb, prewarmCapKey)
	}, true
}

func (c *Cache) fetch(ctx context.Context, id string) (provider.Assistant, bool) {
	if a, ok, decided := c.fromRedis(ctx, id); decided {
		return a, ok
	}
	if c.source == nil {
		return provider.Assistant{}, false
	}

	a, err := c.source.GetAssistant(ctx, id)
	if err != nil {
		slog.Warn("assistant metadata fetch failed", "assistant_id", id, "err", err)
		return provider.Assistant{}, false
	}
	if a == nil {
		c.storeMissing(ctx, id)
		return provider.Assistant{}, false
	}
	c.storeMeta(ctx, id, *a)
	return *a, true
}

// fromRedis consults the shared layer. The third return reports whether
// Redis had an authoritative answer (hit or recent miss).
func (c *Cache) fromRedis(ctx context.Context, id string) (provider.Assistant, bool, bool) {
	if c.rdb == nil {
		return provider.Assistant{}, false, false
	}

	raw, err := c.rdb.Get(ctx, redisKeyMeta+id).Bytes()
	if err == nil {
		var a provider.Assistant
		if err := json.Unmarshal(raw, &a); err == nil {
			return a, true, true
		}
		slog.Debug("dropping unreadable cached assistant", "assistant_id", id, "err", err)
	} else if err != redis.Nil {
		slog.Debug("assistant cache read failed", "assistant_id", id, "err", err)
		return provider.Assistant{}, false, false
	}

	n, err := c.rdb.Exists(ctx, redisKeyMissing+id).Result()
	if err == nil && n > 0 {
		return provider.Assistant{}, false, true
	}
	return provider.Assistant{}, false, false
}

func (c *Cache) storeMeta(ctx context.Context, id string, a provider.Assistant) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, redisKeyMeta+id, raw, 0).Err(); err != nil {
		slog.Debug("assistant cache write failed", "assistant_id", id, "err", err)
	}
}

func (c *Cache) storeMissing(ctx context.Context, id string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, redisKeyMissing+id, "1", c.negTTL).Err(); err != nil {
		slog.Debug("assistant miss marker write failed", "assistant_id", id, "err", err)
	}
}
