package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvCacheDir 覆盖 service.cache.dir 的环境变量
const EnvCacheDir = "WEBSEARCH_CACHE_DIR"

// 后端强制选择策略
const (
	ForcedModeOnly   = "only"   // 强制后仅使用该后端，禁用时无候选
	ForcedModePrefer = "prefer" // 强制后优先该后端，禁用时回退到配置顺序
)

// 内置默认值
const (
	DefaultMaxResults                   = 10
	DefaultMaxSnippetChars              = 600
	DefaultMaxRenderContentCharsPerItem = 2000
	DefaultMaxDownloadBytesPerPage      = 2000000
	DefaultMaxExtractCharsPerPage       = 300000
	DefaultMaxRedirects                 = 5
	DefaultSearchTimeoutMs              = 6000
	DefaultFetchTimeoutMs               = 8000
	DefaultCacheDir                     = ".cache/websearch"
	DefaultCacheTTLSeconds              = 86400
	DefaultCacheSweepIntervalSeconds    = 1800
	DefaultFetchEngine                  = "local"
	DefaultJinaBaseURL                  = "https://r.jina.ai/"
	DefaultDuckDuckGoBaseURL            = "https://api.duckduckgo.com/"
)

// DefaultAllowedContentTypes 默认允许抓取的内容类型
var DefaultAllowedContentTypes = []string{"text/html", "application/xhtml+xml", "text/plain"}

// DefaultBackendOrder 默认后端顺序
var DefaultBackendOrder = []string{"searxng", "duckduckgo"}

// Config 项目配置结构体
type Config struct {
	Service  ServiceConfig  `yaml:"service" json:"service"`
	Backends BackendsConfig `yaml:"backends" json:"backends"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// ServiceConfig 服务相关配置
type ServiceConfig struct {
	Listen     ListenConfig   `yaml:"listen" json:"listen"`
	Limits     LimitsConfig   `yaml:"limits" json:"limits"`
	TimeoutsMs TimeoutsConfig `yaml:"timeouts_ms" json:"timeouts_ms"`
	Cache      CacheConfig    `yaml:"cache" json:"cache"`
	Fetch      FetchConfig    `yaml:"fetch" json:"fetch"`
}

// ListenConfig 监听配置
type ListenConfig struct {
	TCP *TCPConfig `yaml:"tcp" json:"tcp"`
}

// TCPConfig TCP 监听地址
type TCPConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// Addr 返回 host:port
func (c *TCPConfig) Addr() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LimitsConfig 默认预算
type LimitsConfig struct {
	MaxResults                   int      `yaml:"max_results" json:"max_results"`
	MaxSnippetChars              int      `yaml:"max_snippet_chars" json:"max_snippet_chars"`
	MaxContextChars              int      `yaml:"max_context_chars" json:"max_context_chars"`
	MaxRenderContentCharsPerItem int      `yaml:"max_render_content_chars_per_item" json:"max_render_content_chars_per_item"`
	MaxFetchPages                int      `yaml:"max_fetch_pages" json:"max_fetch_pages"`
	MaxDownloadBytesPerPage      int64    `yaml:"max_download_bytes_per_page" json:"max_download_bytes_per_page"`
	MaxExtractCharsPerPage       int      `yaml:"max_extract_chars_per_page" json:"max_extract_chars_per_page"`
	AllowedContentTypes          []string `yaml:"allowed_content_types" json:"allowed_content_types"`
	MaxRedirects                 *int     `yaml:"max_redirects" json:"max_redirects"`
}

// TimeoutsConfig 超时配置（毫秒）
type TimeoutsConfig struct {
	Search int `yaml:"search" json:"search"`
	Fetch  int `yaml:"fetch" json:"fetch"`
}

// CacheConfig 正文缓存配置
type CacheConfig struct {
	Enabled              bool   `yaml:"enabled" json:"enabled"`
	Dir                  string `yaml:"dir" json:"dir"`
	TTLSeconds           *int   `yaml:"ttl_s" json:"ttl_s"`                       // <=0 表示永不过期
	SweepIntervalSeconds *int   `yaml:"sweep_interval_s" json:"sweep_interval_s"` // <=0 表示不做顺带清理
	SweepCron            string `yaml:"sweep_cron" json:"sweep_cron"`             // 例如 "@every 30m"，为空不启用
}

// FetchConfig 抓取配置
type FetchConfig struct {
	Engine  string        `yaml:"engine" json:"engine"`
	Proxy   ProxyConfig   `yaml:"proxy" json:"proxy"`
	Jina    JinaConfig    `yaml:"jina" json:"jina"`
	Headers HeadersConfig `yaml:"headers" json:"headers"`
}

// ProxyConfig 代理配置
type ProxyConfig struct {
	SocksURL string `yaml:"socks_url" json:"socks_url"`
}

// JinaConfig 远程阅读器配置
type JinaConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"api_key"`
}

// HeadersConfig 抓取请求头覆盖
type HeadersConfig struct {
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	Accept         string `yaml:"accept" json:"accept"`
	AcceptLanguage string `yaml:"accept_language" json:"accept_language"`
}

// BackendsConfig 搜索后端配置
type BackendsConfig struct {
	Order      []string      `yaml:"order" json:"order"`
	SearXNG    BackendConfig `yaml:"searxng" json:"searxng"`
	DuckDuckGo BackendConfig `yaml:"duckduckgo" json:"duckduckgo"`
}

// BackendConfig 单个后端配置
type BackendConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	ForcedMode string        `yaml:"forced_mode" json:"forced_mode"`
	QPS        float64       `yaml:"qps" json:"qps"` // <=0 不限流
	Burst      int           `yaml:"burst" json:"burst"`
	Breaker    BreakerConfig `yaml:"breaker" json:"breaker"`
}

// BreakerConfig 熔断配置；MaxFailures 为 0 时不启用
type BreakerConfig struct {
	MaxFailures     uint32 `yaml:"max_failures" json:"max_failures"`
	OpenSeconds     int    `yaml:"open_s" json:"open_s"`
	IntervalSeconds int    `yaml:"interval_s" json:"interval_s"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (copy configs/searcher.example.yaml to configs/searcher.yaml)", path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg.WithDefaults(), nil
}

// Validate 校验服务启动所必需的配置
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("invalid config: empty")
	}
	if c.Service.Listen.TCP == nil || c.Service.Listen.TCP.Port <= 0 {
		return fmt.Errorf("invalid config: service.listen.tcp is required")
	}
	return nil
}

// WithDefaults 填充缺省值；nil 配置同样得到一份完整的默认配置
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	c.Service.Limits = c.Service.Limits.withDefaults()
	c.Service.TimeoutsMs = c.Service.TimeoutsMs.withDefaults()
	c.Service.Cache = c.Service.Cache.withDefaults()
	c.Service.Fetch = c.Service.Fetch.withDefaults()
	if len(c.Backends.Order) == 0 {
		c.Backends.Order = append([]string{}, DefaultBackendOrder...)
	}
	c.Backends.SearXNG = c.Backends.SearXNG.withDefaults(ForcedModePrefer, "")
	c.Backends.DuckDuckGo = c.Backends.DuckDuckGo.withDefaults(ForcedModeOnly, DefaultDuckDuckGoBaseURL)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return c
}

func (c LimitsConfig) withDefaults() LimitsConfig {
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MaxSnippetChars <= 0 {
		c.MaxSnippetChars = DefaultMaxSnippetChars
	}
	if c.MaxContextChars < 0 {
		c.MaxContextChars = 0
	}
	if c.MaxRenderContentCharsPerItem <= 0 {
		c.MaxRenderContentCharsPerItem = DefaultMaxRenderContentCharsPerItem
	}
	if c.MaxFetchPages < 0 {
		c.MaxFetchPages = 0
	}
	if c.MaxDownloadBytesPerPage <= 0 {
		c.MaxDownloadBytesPerPage = DefaultMaxDownloadBytesPerPage
	}
	if c.MaxExtractCharsPerPage <= 0 {
		c.MaxExtractCharsPerPage = DefaultMaxExtractCharsPerPage
	}
	if len(c.AllowedContentTypes) == 0 {
		c.AllowedContentTypes = append([]string{}, DefaultAllowedContentTypes...)
	}
	if c.MaxRedirects == nil || *c.MaxRedirects < 0 {
		n := DefaultMaxRedirects
		c.MaxRedirects = &n
	}
	return c
}

func (c TimeoutsConfig) withDefaults() TimeoutsConfig {
	if c.Search <= 0 {
		c.Search = DefaultSearchTimeoutMs
	}
	if c.Fetch <= 0 {
		c.Fetch = DefaultFetchTimeoutMs
	}
	return c
}

func (c CacheConfig) withDefaults() CacheConfig {
	if env := strings.TrimSpace(os.Getenv(EnvCacheDir)); env != "" {
		c.Dir = env
	}
	if strings.TrimSpace(c.Dir) == "" {
		c.Dir = DefaultCacheDir
	}
	if !filepath.IsAbs(c.Dir) {
		if abs, err := filepath.Abs(strings.TrimSpace(c.Dir)); err == nil {
			c.Dir = abs
		}
	}
	if c.TTLSeconds == nil {
		n := DefaultCacheTTLSeconds
		c.TTLSeconds = &n
	}
	if c.SweepIntervalSeconds == nil {
		n := DefaultCacheSweepIntervalSeconds
		c.SweepIntervalSeconds = &n
	}
	return c
}

func (c FetchConfig) withDefaults() FetchConfig {
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	if c.Engine == "" {
		c.Engine = DefaultFetchEngine
	}
	c.Proxy.SocksURL = strings.TrimSpace(c.Proxy.SocksURL)
	c.Jina.BaseURL = strings.TrimSpace(c.Jina.BaseURL)
	if c.Jina.BaseURL == "" {
		c.Jina.BaseURL = DefaultJinaBaseURL
	}
	c.Jina.APIKey = strings.TrimSpace(c.Jina.APIKey)
	return c
}

func (c BackendConfig) withDefaults(forcedMode, baseURL string) BackendConfig {
	c.ForcedMode = strings.ToLower(strings.TrimSpace(c.ForcedMode))
	if c.ForcedMode != ForcedModeOnly && c.ForcedMode != ForcedModePrefer {
		c.ForcedMode = forcedMode
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = baseURL
	}
	return c
}
