package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	return New(Options{Enabled: true, Dir: t.TempDir(), TTL: ttl})
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"+entryExt))
	require.NoError(t, err)
	return len(matches)
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, time.Hour)

	require.True(t, c.Put("local", "https://ex.com/p?b=2&a=1", "https://ex.com/final", "Title", "T"))

	text, ok := c.Get("local", "https://EX.com/p/?a=1&b=2&utm_source=x")
	require.True(t, ok)
	assert.Equal(t, "T", text)

	// 不同引擎互不命中
	_, ok = c.Get("jina", "https://ex.com/p?a=1&b=2")
	assert.False(t, ok)

	// 引擎名大小写不敏感，缺省为 local
	_, ok = c.Get("", "https://ex.com/p?a=1&b=2")
	assert.True(t, ok)
	assert.Equal(t, 1, countEntries(t, c.Dir()))
}

func TestExpiredEntryIsRemovedOnRead(t *testing.T) {
	c := newTestCache(t, time.Minute)
	require.True(t, c.Put("local", "https://ex.com/a", "", "", "hello"))

	fp := c.pathFor("local", NormalizeURL("https://ex.com/a"))
	old := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(fp, old, old))

	_, ok := c.Get("local", "https://ex.com/a")
	assert.False(t, ok)
	_, err := os.Stat(fp)
	assert.True(t, os.IsNotExist(err))
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := newTestCache(t, 0)
	require.True(t, c.Put("local", "https://ex.com/a", "", "", "hello"))

	fp := c.pathFor("local", NormalizeURL("https://ex.com/a"))
	old := time.Now().Add(-365 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(fp, old, old))

	text, ok := c.Get("local", "https://ex.com/a")
	require.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 0, c.SweepExpired())
}

func TestPutRejects(t *testing.T) {
	c := newTestCache(t, time.Hour)
	assert.False(t, c.Put("local", "https://ex.com/a", "", "", "   \n"))
	assert.False(t, c.Put("local", "not a url", "", "", "text"))

	disabled := New(Options{Dir: t.TempDir(), TTL: time.Hour})
	assert.False(t, disabled.Put("local", "https://ex.com/a", "", "", "text"))
	_, ok := disabled.Get("local", "https://ex.com/a")
	assert.False(t, ok)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	c := newTestCache(t, time.Hour)
	fp := c.pathFor("local", NormalizeURL("https://ex.com/a"))
	require.NoError(t, os.WriteFile(fp, []byte("{broken"), 0o644))

	_, ok := c.Get("local", "https://ex.com/a")
	assert.False(t, ok)
}

func TestSweepExpiredAndClearAll(t *testing.T) {
	c := newTestCache(t, time.Minute)
	require.True(t, c.Put("local", "https://ex.com/1", "", "", "one"))
	require.True(t, c.Put("local", "https://ex.com/2", "", "", "two"))
	require.True(t, c.Put("local", "https://ex.com/3", "", "", "three"))

	old := time.Now().Add(-time.Hour)
	fp := c.pathFor("local", NormalizeURL("https://ex.com/1"))
	require.NoError(t, os.Chtimes(fp, old, old))

	// 非条目文件不受影响
	other := filepath.Join(c.Dir(), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	assert.Equal(t, 1, c.SweepExpired())
	assert.Equal(t, 2, countEntries(t, c.Dir()))

	// ClearAll 不受 enabled 影响
	disabled := New(Options{Dir: c.Dir()})
	assert.Equal(t, 2, disabled.ClearAll())
	assert.Equal(t, 0, countEntries(t, c.Dir()))
	_, err := os.Stat(other)
	assert.NoError(t, err)
}

func TestPutTriggersThrottledSweep(t *testing.T) {
	c := New(Options{Enabled: true, Dir: t.TempDir(), TTL: time.Minute, SweepInterval: time.Hour})

	stale := filepath.Join(c.Dir(), "stale"+entryExt)
	require.NoError(t, os.WriteFile(stale, []byte(`{}`), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.True(t, c.Put("local", "https://ex.com/a", "", "", "a"))
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	// 间隔内不再清理
	stale2 := filepath.Join(c.Dir(), "stale2"+entryExt)
	require.NoError(t, os.WriteFile(stale2, []byte(`{}`), 0o644))
	require.NoError(t, os.Chtimes(stale2, old, old))
	require.True(t, c.Put("local", "https://ex.com/b", "", "", "b"))
	_, err = os.Stat(stale2)
	assert.NoError(t, err)
}

func TestNewFromConfig(t *testing.T) {
	ttl, sweep := 10, 0
	c := NewFromConfig(config.CacheConfig{Enabled: true, Dir: t.TempDir(), TTLSeconds: &ttl, SweepIntervalSeconds: &sweep})
	assert.True(t, c.Enabled())
	assert.Equal(t, 10*time.Second, c.ttl)
	assert.Nil(t, c.sweeper)
}
