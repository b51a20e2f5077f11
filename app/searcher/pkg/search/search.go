package search

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

// 后端标识
const (
	BackendSearXNG    = "searxng"
	BackendDuckDuckGo = "duckduckgo"
)

// ItemTypeWebResult 搜索结果条目类型
const ItemTypeWebResult = "web_result"

// Searcher 定义通用的搜索接口
type Searcher interface {
	Name() string
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query      string
	MaxResults int
	Timeout    time.Duration // 硬超时，<=0 时不额外限制
}

// DefaultMaxResults 未指定 MaxResults 时的条数
const DefaultMaxResults = 10

// Limit 返回本次请求的结果条数上限；0 取默认值，负数表示不返回结果
func (r *Request) Limit() int {
	switch {
	case r.MaxResults == 0:
		return DefaultMaxResults
	case r.MaxResults < 0:
		return 0
	default:
		return r.MaxResults
	}
}

// Response 通用搜索响应
type Response struct {
	Items []model.SearchResultItem
}

// BackendError 后端不可达、非 2xx 或超时
type BackendError struct {
	Provider string
	Err      error
}

// NewBackendError 包装后端错误
func NewBackendError(provider string, err error) *BackendError {
	return &BackendError{Provider: provider, Err: err}
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s request failed: %v", DisplayName(e.Provider), e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// DisplayName 后端的展示名称
func DisplayName(backend string) string {
	switch backend {
	case BackendSearXNG:
		return "SearXNG"
	case BackendDuckDuckGo:
		return "DuckDuckGo"
	default:
		return backend
	}
}

// Hostname 提取 URL 的主机名，解析失败返回空字符串
func Hostname(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// WithTimeout 按请求的硬超时派生 context
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
