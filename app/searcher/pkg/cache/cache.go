package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/logger"
)

const (
	entryVersion  = 1
	entryExt      = ".json"
	defaultEngine = "local"
)

// Entry 缓存文件内容
type Entry struct {
	Version       int    `json:"v"`
	Engine        string `json:"engine"`
	NormalizedURL string `json:"normalized_url"`
	SourceURL     string `json:"source_url"`
	FinalURL      string `json:"final_url"`
	Title         string `json:"title"`
	ExtractedText string `json:"extracted_text"`
	CreatedUTC    string `json:"created_utc"`
}

// Options 缓存参数
type Options struct {
	Enabled       bool
	Dir           string
	TTL           time.Duration // <=0 表示永不过期
	SweepInterval time.Duration // <=0 表示不做顺带清理
}

// Cache 基于本地文件系统的正文缓存
//
// 每个条目一个文件，文件名为 sha1(engine:normalized_url)。
// 过期以文件 mtime 判断；所有文件系统错误都被吞掉，缓存退化为未命中。
type Cache struct {
	enabled bool
	dir     string
	ttl     time.Duration
	sweeper *rate.Sometimes
	now     func() time.Time
}

// New 创建缓存
func New(opts Options) *Cache {
	c := &Cache{
		enabled: opts.Enabled,
		dir:     opts.Dir,
		ttl:     opts.TTL,
		now:     time.Now,
	}
	if opts.SweepInterval > 0 {
		c.sweeper = &rate.Sometimes{Interval: opts.SweepInterval}
	}
	return c
}

// NewFromConfig 按 service.cache 配置创建缓存
func NewFromConfig(cfg config.CacheConfig) *Cache {
	opts := Options{Enabled: cfg.Enabled, Dir: cfg.Dir}
	if cfg.TTLSeconds != nil {
		opts.TTL = time.Duration(*cfg.TTLSeconds) * time.Second
	}
	if cfg.SweepIntervalSeconds != nil {
		opts.SweepInterval = time.Duration(*cfg.SweepIntervalSeconds) * time.Second
	}
	return New(opts)
}

// Enabled 是否启用
func (c *Cache) Enabled() bool { return c != nil && c.enabled }

// Dir 缓存目录
func (c *Cache) Dir() string { return c.dir }

// Get 查询缓存，过期条目在读取时被删除
func (c *Cache) Get(engine, rawURL string) (string, bool) {
	if !c.Enabled() || rawURL == "" {
		return "", false
	}
	c.maybeSweep()

	normalized := NormalizeURL(rawURL)
	if normalized == "" || !c.ensureDir() {
		return "", false
	}

	fp := c.pathFor(engine, normalized)
	st, err := os.Stat(fp)
	if err != nil {
		return "", false
	}
	if c.expired(st.ModTime()) {
		_ = os.Remove(fp)
		return "", false
	}

	raw, err := os.ReadFile(fp)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		logger.Log.Debugf("缓存文件损坏 %s: %v", fp, err)
		return "", false
	}
	if e.ExtractedText == "" {
		return "", false
	}
	return e.ExtractedText, true
}

// Put 写入缓存；先写临时文件再 rename，中途失败不会破坏已有条目
func (c *Cache) Put(engine, rawURL, finalURL, title, text string) bool {
	if !c.Enabled() {
		return false
	}
	c.maybeSweep()

	normalized := NormalizeURL(rawURL)
	if normalized == "" || strings.TrimSpace(text) == "" || !c.ensureDir() {
		return false
	}

	payload, err := json.Marshal(Entry{
		Version:       entryVersion,
		Engine:        engineKey(engine),
		NormalizedURL: normalized,
		SourceURL:     rawURL,
		FinalURL:      finalURL,
		Title:         title,
		ExtractedText: text,
		CreatedUTC:    c.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return false
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		logger.Log.Warnf("创建缓存临时文件失败: %v", err)
		return false
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(payload)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		return false
	}
	if err := os.Rename(tmpName, c.pathFor(engine, normalized)); err != nil {
		logger.Log.Warnf("写入缓存失败: %v", err)
		_ = os.Remove(tmpName)
		return false
	}
	return true
}

// ClearAll 删除全部缓存条目，与是否启用无关
func (c *Cache) ClearAll() int {
	return c.removeWhere(func(os.FileInfo) bool { return true })
}

// SweepExpired 删除 mtime 超过 TTL 的条目
func (c *Cache) SweepExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	return c.removeWhere(func(fi os.FileInfo) bool { return c.expired(fi.ModTime()) })
}

func (c *Cache) maybeSweep() {
	if c.sweeper == nil {
		return
	}
	c.sweeper.Do(func() {
		if n := c.SweepExpired(); n > 0 {
			logger.Log.Debugf("缓存清理完成，删除 %d 个过期条目", n)
		}
	})
}

func (c *Cache) removeWhere(match func(os.FileInfo) bool) int {
	if !c.ensureDir() {
		return 0
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, de := range entries {
		if !de.Type().IsRegular() || !strings.HasSuffix(de.Name(), entryExt) {
			continue
		}
		fi, err := de.Info()
		if err != nil || !match(fi) {
			continue
		}
		if os.Remove(filepath.Join(c.dir, de.Name())) == nil {
			removed++
		}
	}
	return removed
}

func (c *Cache) expired(mtime time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(mtime) > c.ttl
}

func (c *Cache) ensureDir() bool {
	if c.dir == "" {
		return false
	}
	return os.MkdirAll(c.dir, 0o755) == nil
}

func (c *Cache) pathFor(engine, normalized string) string {
	sum := sha1.Sum([]byte(engineKey(engine) + ":" + normalized))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+entryExt)
}

func engineKey(engine string) string {
	e := strings.ToLower(strings.TrimSpace(engine))
	if e == "" {
		return defaultEngine
	}
	return e
}
