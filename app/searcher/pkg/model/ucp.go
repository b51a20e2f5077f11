package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// SchemaUCP 响应信封版本
const SchemaUCP = "ucp-1"

// SearchRequest /v1/search 请求体
type SearchRequest struct {
	Query       Query            `json:"query"`
	Want        *Want            `json:"want,omitempty"`
	Budget      *BudgetOverrides `json:"budget,omitempty"`
	Constraints *Constraints     `json:"constraints,omitempty"`
	Policy      *Policy          `json:"policy,omitempty"` // 旧版字段，仅保留 backend
}

// Query 兼容 "query": "..." 与 "query": {"text": "..."} 两种写法
type Query struct {
	Text string
}

// UnmarshalJSON 实现 json.Unmarshaler
func (q *Query) UnmarshalJSON(data []byte) error {
	q.Text = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		q.Text = strings.TrimSpace(s)
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Text json.RawMessage `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		var s string
		if json.Unmarshal(obj.Text, &s) == nil {
			q.Text = strings.TrimSpace(s)
		}
	}
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Text)
}

// Want 控制响应中包含哪些部分，缺省均为 true
type Want struct {
	Items        *bool `json:"items,omitempty"`
	RenderedText *bool `json:"rendered_text,omitempty"`
}

// BudgetOverrides 请求侧的预算覆盖，nil 表示使用配置默认值
type BudgetOverrides struct {
	MaxResults                   *int              `json:"max_results,omitempty"`
	MaxSnippetChars              *int              `json:"max_snippet_chars,omitempty"`
	MaxContextChars              *int              `json:"max_context_chars,omitempty"`
	MaxRenderContentCharsPerItem *int              `json:"max_render_content_chars_per_item,omitempty"`
	MaxFetchPages                *int              `json:"max_fetch_pages,omitempty"`
	MaxDownloadBytesPerPage      *int64            `json:"max_download_bytes_per_page,omitempty"`
	MaxExtractCharsPerPage       *int              `json:"max_extract_chars_per_page,omitempty"`
	AllowedContentTypes          []string          `json:"allowed_content_types,omitempty"`
	MaxRedirects                 *int              `json:"max_redirects,omitempty"`
	PerRequestTimeoutMs          *TimeoutOverrides `json:"per_request_timeout_ms,omitempty"`
}

// TimeoutOverrides 单次请求的超时覆盖（毫秒）
type TimeoutOverrides struct {
	Search *int `json:"search,omitempty"`
	Fetch  *int `json:"fetch,omitempty"`
}

// Constraints 请求约束
type Constraints struct {
	Backend     string  `json:"backend,omitempty"`
	SearchMode  string  `json:"search_mode,omitempty"`
	PickIDs     PickIDs `json:"pick_ids,omitempty"`
	FetchEngine string  `json:"fetch_engine,omitempty"`
}

// Policy 旧版请求约束
type Policy struct {
	Backend string `json:"backend,omitempty"`
}

// PickIDs 结果下标列表；非整数元素在解码时被忽略
type PickIDs []int

// UnmarshalJSON 实现 json.Unmarshaler
func (p *PickIDs) UnmarshalJSON(data []byte) error {
	*p = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// 不是数组时按未提供处理
		return nil
	}
	out := make(PickIDs, 0, len(raw))
	for _, r := range raw {
		if n, ok := parsePickID(r); ok {
			out = append(out, n)
		}
	}
	*p = out
	return nil
}

func parsePickID(r json.RawMessage) (int, bool) {
	if bytes.Equal(bytes.TrimSpace(r), []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(r, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Trunc(f)), true
	}
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return leadingInt(s)
	}
	return 0, false
}

// leadingInt 解析字符串开头的十进制整数（可带符号），忽略其后的内容，如 "3abc" -> 3、"1.5" -> 1
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SearchResponse /v1/search 响应信封
type SearchResponse struct {
	Schema       string             `json:"schema"`
	CreatedUTC   string             `json:"created_utc"`
	RequestID    string             `json:"request_id"`
	Producer     Producer           `json:"producer"`
	Request      *SearchRequest     `json:"request"`
	Meta         Meta               `json:"meta"`
	Usage        Usage              `json:"usage"`
	Items        []SearchResultItem `json:"items"`
	RenderedText *string            `json:"rendered_text,omitempty"`
}

// Producer 响应生产者信息
type Producer struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Meta 本次请求的执行信息
type Meta struct {
	BackendUsed  string `json:"backend_used"`
	FallbackUsed bool   `json:"fallback_used"`
	PickApplied  bool   `json:"pick_applied"`
	PickIDs      []int  `json:"pick_ids"`
	ModeUsed     string `json:"mode_used"`
	TimingMs     Timing `json:"timing_ms"`
	Note         string `json:"note,omitempty"`
}

// Timing 各阶段耗时（毫秒）
type Timing struct {
	Search int64 `json:"search"`
	Fetch  int64 `json:"fetch"`
	Total  int64 `json:"total"`
}

// Usage 资源使用统计；缓存相关字段仅在 full 模式下输出
type Usage struct {
	ResultsReturned int  `json:"results_returned"`
	ContextChars    int  `json:"context_chars"`
	FetchPagesUsed  int  `json:"fetch_pages_used"`
	CacheHits       *int `json:"cache_hits,omitempty"`
	CacheMisses     *int `json:"cache_misses,omitempty"`
	CacheWrites     *int `json:"cache_writes,omitempty"`
}
