package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestBucket_TakeAndRefill(t *testing.T) {
	start := time.Unix(0, 0)
	b := newBucket(2, 1.0, start)

	assert.True(t, b.take(start))
	assert.True(t, b.take(start))
	assert.False(t, b.take(start))
	assert.Equal(t, time.Second, b.retryAfter())

	assert.True(t, b.take(start.Add(time.Second)))
	assert.False(t, b.take(start.Add(time.Second)))

	// refill is capped at capacity
	b.refill(start.Add(time.Hour))
	remaining, reset := b.remaining(start.Add(time.Hour))
	assert.Equal(t, 2, remaining)
	assert.Equal(t, start.Add(time.Hour), reset)
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("127.0.0.1", "/report/status/x", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/report/status/x", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Positive(t, info.RetryAfter)
	assert.True(t, info.ResetTime.After(l.now()))
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{
		Enabled: true,
		Rules:   []Rule{{Method: "POST", Path: "/report/generate", Limit: 60, Window: time.Minute, Burst: 1}},
	})

	allowed, _ := l.Allow("c", "/report/generate", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("c", "/report/generate", "POST")
	require.False(t, allowed)

	clock.advance(time.Second)
	allowed, _ = l.Allow("c", "/report/generate", "POST")
	assert.True(t, allowed)
}

func TestLimiter_PrefixRuleSharesBucketAcrossIDs(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Rules:         []Rule{{Method: "GET", Path: "/report/events/", Limit: 2, Window: time.Hour}},
	})

	allowed, _ := l.Allow("c", "/report/events/a", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/report/events/b", "GET")
	assert.True(t, allowed)
	allowed, info := l.Allow("c", "/report/events/c", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 2, info.Limit)

	// another client has its own bucket
	allowed, _ = l.Allow("d", "/report/events/a", "GET")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", "/x", "GET")
		assert.True(t, allowed)
		assert.Equal(t, 0, info.Limit)
	}
	allowed, _ := l.Allow("10.0.0.2", "/x", "GET")
	assert.False(t, allowed)

	off, _ := newTestLimiter(t, &Config{Enabled: false})
	for i := 0; i < 5; i++ {
		allowed, _ := off.Allow("10.0.0.3", "/x", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	for i := 0; i < 20; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute})

	var wg sync.WaitGroup
	var allowedCount atomic.Int32
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/x", "GET"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), allowedCount.Load())
}

func TestLimiter_SweepDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTTL: time.Hour})

	l.Allow("old", "/x", "GET")
	clock.advance(50 * time.Minute)
	l.Allow("fresh", "/x", "GET")
	clock.advance(20 * time.Minute)

	assert.Equal(t, 1, l.sweep())
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	allowed, info := l.Allow("c", "/report/status/x", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)

	allowed, info = l.Allow("c", "/report/generate", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 20, info.Limit)
}

func TestMatchRule(t *testing.T) {
	rules := []Rule{
		{Method: "GET", Path: "/report/", Limit: 5, Window: time.Minute},
		{Method: "GET", Path: "/report/status/x", Limit: 7, Window: time.Minute},
	}

	assert.Equal(t, 7, MatchRule("/report/status/x", "GET", rules).Limit)
	assert.Equal(t, 5, MatchRule("/report/status/y", "GET", rules).Limit)
	assert.Nil(t, MatchRule("/report/status/y", "POST", rules))
	assert.True(t, MatchRule("/health", "GET", rules).Unlimited())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "50")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1 , ,10.0.0.2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)
	assert.NotEmpty(t, cfg.Rules)

	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "many")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "RATE_LIMIT_DEFAULT_LIMIT")

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
}
