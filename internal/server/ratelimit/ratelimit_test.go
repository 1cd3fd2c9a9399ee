package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedClock(l *Limiter, start time.Time) *time.Time {
	now := start
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled: true,
		Endpoints: []EndpointConfig{
			{Path: "/process", Method: "POST", Limit: 6, Window: time.Minute, Burst: 2},
		},
	})
	defer l.Stop()
	now := fixedClock(l, time.Unix(1_700_000_000, 0))

	ok, info := l.Allow("127.0.0.1", "/process", "POST")
	assert.True(t, ok)
	assert.Equal(t, 6, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("127.0.0.1", "/process", "POST")
	assert.True(t, ok)

	ok, info = l.Allow("127.0.0.1", "/process", "POST")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, 10*time.Second, info.RetryAfter, float64(time.Millisecond))

	// One token every ten seconds
	*now = now.Add(10 * time.Second)
	ok, _ = l.Allow("127.0.0.1", "/process", "POST")
	assert.True(t, ok)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer l.Stop()
	fixedClock(l, time.Unix(1_700_000_000, 0))

	ok, _ := l.Allow("a", "/hotkey", "POST")
	assert.True(t, ok)
	ok, _ = l.Allow("a", "/hotkey", "POST")
	assert.False(t, ok)
	ok, _ = l.Allow("b", "/hotkey", "POST")
	assert.True(t, ok)
}

func TestLimiter_Disabled(t *testing.T) {
	for _, cfg := range []*Config{nil, ConfigFor(0)} {
		l := NewLimiter(cfg)
		for range 100 {
			ok, info := l.Allow("x", "/process", "POST")
			require.True(t, ok)
			assert.Zero(t, info.Limit)
		}
		l.Stop()
	}
}

func TestLimiter_HealthAndMetricsUnlimited(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer l.Stop()

	for range 10 {
		ok, _ := l.Allow("x", "/health", "GET")
		assert.True(t, ok)
		ok, _ = l.Allow("x", "/metrics", "GET")
		assert.True(t, ok)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer l.Stop()

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/events", "GET"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowed.Load())
}

func TestLimiter_EvictIdle(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute})
	defer l.Stop()
	now := fixedClock(l, time.Unix(1_700_000_000, 0))

	l.Allow("old", "/hotkey", "POST")
	*now = now.Add(2 * time.Hour)
	l.Allow("new", "/hotkey", "POST")

	assert.Equal(t, 1, l.evictIdle(now.Add(-time.Hour)))
	assert.Len(t, l.buckets, 1)
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, CleanupInterval: time.Millisecond})
	l.Stop()
	l.Stop()
}

func TestConfigFor(t *testing.T) {
	cfg := ConfigFor(120)
	require.True(t, cfg.Enabled)
	assert.Equal(t, 120, cfg.DefaultLimit)

	ep := MatchEndpoint("/process/stream", "POST", cfg.Endpoints)
	require.NotNil(t, ep)
	assert.Equal(t, 12, ep.Limit)
	assert.Equal(t, 3, ep.Burst)

	small := MatchEndpoint("/process", "POST", DefaultEndpointConfigs(5))
	require.NotNil(t, small)
	assert.Equal(t, 1, small.Limit)
	assert.Equal(t, 1, small.Burst)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/process", Method: "POST", Limit: 1},
		{Path: "/events/", Method: "GET", Limit: 2},
	}

	tests := []struct {
		path, method string
		wantLimit    int
		wantNil      bool
	}{
		{"/process", "POST", 1, false},
		{"/process", "GET", 0, true},
		{"/events/outcomes", "GET", 2, false},
		{"/health", "GET", 0, false},
		{"/unknown", "POST", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}
