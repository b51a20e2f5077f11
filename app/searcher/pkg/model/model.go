package model

import (
	"time"
	"unicode/utf8"
)

// 抓取状态
const (
	FetchStatusFetched = "fetched"
	FetchStatusSkipped = "skipped"
	FetchStatusFailed  = "failed"
)

// 跳过 / 失败原因
const (
	ReasonBudget            = "budget"
	ReasonContentType       = "content_type"
	ReasonTooLarge          = "too_large"
	ReasonTimeout           = "timeout"
	ReasonError             = "error"
	ReasonMaxRedirects      = "max_redirects"
	ReasonProxyInitFailed   = "proxy_init_failed"
	ReasonMissingFetchSocks = "missing_fetch_socks"
)

// 搜索模式
const (
	ModeSimple = "simple"
	ModeFull   = "full"
)

// ContentTypeCache 缓存命中时写入 FetchOutcome.ContentType 的标记
const ContentTypeCache = "cache"

// SearchResultItem 单条搜索结果
type SearchResultItem struct {
	Type    string        `json:"type"`
	Rank    int           `json:"rank"` // 从 1 开始，保持后端返回顺序
	Title   string        `json:"title"`
	URL     string        `json:"url"`
	Domain  string        `json:"domain"`
	Engines []string      `json:"engines"`
	Snippet string        `json:"snippet"`
	Source  string        `json:"source"`
	Fetch   *FetchOutcome `json:"fetch,omitempty"`
}

// FetchOutcome 单条结果的抓取结论
type FetchOutcome struct {
	Status          string `json:"status"`
	SkipReason      string `json:"skip_reason"`
	ContentType     string `json:"content_type"`
	DownloadedBytes int64  `json:"downloaded_bytes"`
	Truncated       bool   `json:"truncated"`
	ExtractedChars  int    `json:"extracted_chars"`
	FinalURL        string `json:"final_url"`
	Redirects       int    `json:"redirects"`
	Text            string `json:"text"`
}

// Fetched 是否拿到了可用正文
func (o *FetchOutcome) Fetched() bool {
	return o != nil && o.Status == FetchStatusFetched
}

// Budget 单次请求解析后的资源预算，解析完成后不再修改
type Budget struct {
	MaxResults                   int
	MaxSnippetChars              int
	MaxContextChars              int // 0 表示不限制
	MaxRenderContentCharsPerItem int
	MaxFetchPages                int
	MaxDownloadBytesPerPage      int64
	MaxExtractCharsPerPage       int
	AllowedContentTypes          []string
	MaxRedirects                 int
	SearchTimeout                time.Duration
	FetchTimeout                 time.Duration
}

// TruncateChars 按字符（rune）截取前 n 个字符，n<=0 时原样返回
func TruncateChars(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
