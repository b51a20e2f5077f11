package factory

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/duckduckgo"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/logger"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/search"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/searxng"
)

// Backend 已装配的搜索后端
type Backend struct {
	Name       string
	Enabled    bool
	ForcedMode string // config.ForcedModeOnly / config.ForcedModePrefer
	Searcher   search.Searcher
}

// Registry 后端注册表，保存默认顺序与各后端状态
type Registry struct {
	order    []string
	backends map[string]*Backend
}

// NewRegistry 用给定顺序和后端创建注册表
func NewRegistry(order []string, backends ...*Backend) *Registry {
	r := &Registry{backends: make(map[string]*Backend, len(backends))}
	for _, b := range backends {
		if b == nil {
			continue
		}
		if b.ForcedMode == "" {
			b.ForcedMode = config.ForcedModePrefer
		}
		r.backends[b.Name] = b
	}
	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := r.backends[name]; !ok {
			logger.Log.Warnf("backends.order 中的未知后端已忽略: %s", name)
			continue
		}
		r.order = append(r.order, name)
	}
	return r
}

// NewRegistryFromConfig 根据配置创建全部后端
func NewRegistryFromConfig(cfg config.BackendsConfig) (*Registry, error) {
	var backends []*Backend
	for name, bc := range map[string]config.BackendConfig{
		search.BackendSearXNG:    cfg.SearXNG,
		search.BackendDuckDuckGo: cfg.DuckDuckGo,
	} {
		s, err := NewSearcher(name, bc)
		if err != nil {
			return nil, err
		}
		backends = append(backends, &Backend{
			Name:       name,
			Enabled:    bc.Enabled,
			ForcedMode: bc.ForcedMode,
			Searcher:   s,
		})
	}
	return NewRegistry(cfg.Order, backends...), nil
}

// NewSearcher 根据后端名创建搜索实例，并按配置套上限流与熔断
func NewSearcher(provider string, cfg config.BackendConfig) (search.Searcher, error) {
	var s search.Searcher
	switch provider {
	case search.BackendSearXNG:
		// base_url 为空时不在此处报错，请求时返回 BackendError 以便回退
		s = searxng.NewClient(cfg.BaseURL)

	case search.BackendDuckDuckGo:
		s = duckduckgo.NewClient(cfg.BaseURL)

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}

	if cfg.QPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s = search.WithRateLimit(s, rate.NewLimiter(rate.Limit(cfg.QPS), burst))
	}
	s = search.WithCircuitBreaker(s, search.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		Interval:    time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
	})
	return s, nil
}

// Lookup 按名称查找后端
func (r *Registry) Lookup(name string) (*Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// Order 配置的默认顺序（已剔除未知后端）
func (r *Registry) Order() []string {
	return append([]string(nil), r.order...)
}

// Candidates 计算本次请求的候选顺序
//
// forced 为空时使用默认顺序。强制的后端启用时：only 只用它，prefer 把它提到最前。
// 强制的后端禁用时返回说明：only 没有候选，prefer 回退到默认顺序。
// 未知后端同样回退到默认顺序。
func (r *Registry) Candidates(forced string) ([]string, string) {
	order := r.Order()
	if forced == "" {
		return order, ""
	}

	b, ok := r.backends[forced]
	if !ok {
		return order, fmt.Sprintf("Unknown backend: %s", forced)
	}
	if !b.Enabled {
		note := fmt.Sprintf("Requested backend '%s' is disabled", forced)
		if b.ForcedMode == config.ForcedModeOnly {
			return nil, note
		}
		return order, note
	}

	if b.ForcedMode == config.ForcedModeOnly {
		return []string{forced}, ""
	}
	out := []string{forced}
	for _, name := range order {
		if name != forced {
			out = append(out, name)
		}
	}
	return out, ""
}
