package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

func fp(pattern string) Fingerprint {
	return Fingerprint{Command: "find", PatternOrRule: pattern, Language: langs.Python, Paths: []string{"/proj"}}
}

func TestCacheHitAndMiss(t *testing.T) {
	c := New(DefaultConfig())
	_, ok := c.Get(fp("foo()"))
	assert.False(t, ok)

	want := []matcher.MatchRecord{{File: "a.py", Text: "foo()"}}
	c.Put(fp("foo()"), want)

	got, ok := c.Get(fp("foo()"))
	require.True(t, ok)
	assert.Equal(t, want, got)

	stats := c.StatsSnapshot()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCacheBoundEviction(t *testing.T) {
	c := New(Config{Capacity: 2, TTL: time.Minute, Enabled: true})
	c.Put(fp("a"), []matcher.MatchRecord{{File: "a"}})
	c.Put(fp("b"), []matcher.MatchRecord{{File: "b"}})
	c.Put(fp("c"), []matcher.MatchRecord{{File: "c"}})

	stats := c.StatsSnapshot()
	assert.LessOrEqual(t, stats.Size, 2)
	assert.Equal(t, int64(1), stats.Evictions)

	_, ok := c.Get(fp("a"))
	assert.False(t, ok, "least-recently-used entry should have been evicted")
}

func TestCacheLRURecencyRefresh(t *testing.T) {
	c := New(Config{Capacity: 2, TTL: time.Minute, Enabled: true})
	c.Put(fp("a"), []matcher.MatchRecord{{File: "a"}})
	c.Put(fp("b"), []matcher.MatchRecord{{File: "b"}})

	// Touch "a" so it becomes more recently used than "b".
	_, _ = c.Get(fp("a"))
	c.Put(fp("c"), []matcher.MatchRecord{{File: "c"}})

	_, okA := c.Get(fp("a"))
	_, okB := c.Get(fp("b"))
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(Config{Capacity: 10, TTL: 10 * time.Millisecond, Enabled: true})
	c.Put(fp("a"), []matcher.MatchRecord{{File: "a"}})
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(fp("a"))
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	c := New(Config{Capacity: 10, TTL: time.Minute, Enabled: false})
	c.Put(fp("a"), []matcher.MatchRecord{{File: "a"}})
	_, ok := c.Get(fp("a"))
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	c := New(DefaultConfig())
	c.Put(fp("a"), []matcher.MatchRecord{{File: "a"}})
	c.Clear()
	assert.Equal(t, 0, c.StatsSnapshot().Size)
}

func TestFingerprintStableAcrossPathOrder(t *testing.T) {
	f1 := Fingerprint{Command: "find", PatternOrRule: "x", Paths: []string{"b", "a"}}
	f2 := Fingerprint{Command: "find", PatternOrRule: "x", Paths: []string{"a", "b"}}
	assert.Equal(t, f1.Digest(), f2.Digest())
}
