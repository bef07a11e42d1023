package source

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"sourcetrace/internal/domain/post"
	"sourcetrace/internal/domain/tracking"
)

// Gateway wraps a platform client with a session-scoped call budget, a
// rate limiter and a read-through cache. One Gateway serves exactly one
// tracing session; the budget counter is never shared across sessions.
type Gateway struct {
	client  tracking.SourceClient
	limiter *rate.Limiter
	budget  int64
	used    int64

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	single *post.Post
	many   []post.Post
}

// NewGateway creates a gateway for a single tracing session
func NewGateway(client tracking.SourceClient, cfg tracking.Config) *Gateway {
	count := cfg.RateLimit.Count
	window := cfg.RateLimit.Window
	if count <= 0 {
		count = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	return &Gateway{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(count)), count),
		budget:  int64(cfg.Budget),
		cache:   make(map[string]cacheEntry),
	}
}

// CallsUsed returns the number of budget units consumed so far
func (g *Gateway) CallsUsed() int {
	return int(atomic.LoadInt64(&g.used))
}

// FetchPostByID returns a single post, or nil if the platform has none
func (g *Gateway) FetchPostByID(ctx context.Context, id string) (*post.Post, error) {
	key := "post:" + id

	if entry, ok := g.lookup(key); ok {
		return entry.single, nil
	}

	if err := g.acquire(ctx); err != nil {
		return nil, err
	}

	p, err := g.client.FetchPostByID(ctx, id)
	if err != nil {
		log.Printf("source unavailable fetching post %s: %v", id, err)
		return nil, fmt.Errorf("%w: %v", tracking.ErrSourceUnavailable, err)
	}

	g.store(key, cacheEntry{single: p})
	return p, nil
}

// FetchTimeline returns up to maxResults recent posts for a handle
func (g *Gateway) FetchTimeline(ctx context.Context, handle string, maxResults int) ([]post.Post, error) {
	key := fmt.Sprintf("timeline:%s:%d", handle, maxResults)

	if entry, ok := g.lookup(key); ok {
		return entry.many, nil
	}

	if err := g.acquire(ctx); err != nil {
		return nil, err
	}

	posts, err := g.client.FetchTimeline(ctx, handle, maxResults)
	if err != nil {
		log.Printf("source unavailable fetching timeline %s: %v", handle, err)
		return nil, fmt.Errorf("%w: %v", tracking.ErrSourceUnavailable, err)
	}

	g.store(key, cacheEntry{many: posts})
	return posts, nil
}

// SearchTerm returns up to maxResults posts matching a term, restricted to
// posts before the given time when before is non-nil
func (g *Gateway) SearchTerm(ctx context.Context, term string, maxResults int, before *time.Time) ([]post.Post, error) {
	key := fmt.Sprintf("search:%s:%d:", term, maxResults)
	if before != nil {
		key += fmt.Sprintf("%d", before.UnixNano())
	}

	if entry, ok := g.lookup(key); ok {
		return entry.many, nil
	}

	if err := g.acquire(ctx); err != nil {
		return nil, err
	}

	posts, err := g.client.SearchTerm(ctx, term, maxResults, before)
	if err != nil {
		log.Printf("source unavailable searching %q: %v", term, err)
		return nil, fmt.Errorf("%w: %v", tracking.ErrSourceUnavailable, err)
	}

	g.store(key, cacheEntry{many: posts})
	return posts, nil
}

// acquire waits for a rate-limit slot and debits one budget unit. The
// budget check runs before the wait so an exhausted session fails fast
// instead of queueing, and the debit is a compare-and-swap so concurrent
// callers can never drive the counter past the budget.
func (g *Gateway) acquire(ctx context.Context) error {
	if atomic.LoadInt64(&g.used) >= g.budget {
		return tracking.ErrBudgetExceeded
	}

	// A deadline that cannot accommodate the wait is treated exactly like
	// an exhausted budget: the pending call is abandoned.
	if err := g.limiter.Wait(ctx); err != nil {
		return tracking.ErrBudgetExceeded
	}

	for {
		used := atomic.LoadInt64(&g.used)
		if used >= g.budget {
			return tracking.ErrBudgetExceeded
		}
		if atomic.CompareAndSwapInt64(&g.used, used, used+1) {
			return nil
		}
	}
}

func (g *Gateway) lookup(key string) (cacheEntry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.cache[key]
	return entry, ok
}

func (g *Gateway) store(key string, entry cacheEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache[key] = entry
}
