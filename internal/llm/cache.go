package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jonathan/fixmytext/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
)

// CachingClient serves repeated identical requests from memory.
// Only successful responses are cached.
type CachingClient struct {
	next  Client
	store *gocache.Cache
}

// NewCachingClient wraps next with a response cache.
func NewCachingClient(next Client, ttl time.Duration) *CachingClient {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachingClient{
		next:  next,
		store: gocache.New(ttl, 2*ttl),
	}
}

// Generate returns a cached reply when available
func (c *CachingClient) Generate(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	return c.lookup("text", systemPrompt, text, tier, func() (string, error) {
		return c.next.Generate(ctx, systemPrompt, text, tier)
	})
}

// GenerateJSON returns a cached reply when available
func (c *CachingClient) GenerateJSON(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	return c.lookup("json", systemPrompt, text, tier, func() (string, error) {
		return c.next.GenerateJSON(ctx, systemPrompt, text, tier)
	})
}

func (c *CachingClient) lookup(mode, systemPrompt, text string, tier ModelTier, call func() (string, error)) (string, error) {
	key := cacheKey(mode, c.next.Model(tier), systemPrompt, text)
	if v, ok := c.store.Get(key); ok {
		metrics.LLMCacheHitCount.Inc()
		return v.(string), nil
	}

	out, err := call()
	if err != nil {
		return "", err
	}
	c.store.SetDefault(key, out)
	return out, nil
}

// Model delegates to the wrapped client
func (c *CachingClient) Model(tier ModelTier) string {
	return c.next.Model(tier)
}

// Close flushes the cache and closes the wrapped client
func (c *CachingClient) Close() error {
	c.store.Flush()
	return c.next.Close()
}

func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
