package engine

import (
	"time"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

// ResolveBudget 合并请求覆盖与配置默认值；请求中出现且非 null 的字段优先
func ResolveBudget(limits config.LimitsConfig, timeouts config.TimeoutsConfig, o *model.BudgetOverrides) model.Budget {
	maxRedirects := config.DefaultMaxRedirects
	if limits.MaxRedirects != nil {
		maxRedirects = *limits.MaxRedirects
	}
	allowed := limits.AllowedContentTypes
	if len(allowed) == 0 {
		allowed = config.DefaultAllowedContentTypes
	}

	searchMs, fetchMs := timeouts.Search, timeouts.Fetch
	if searchMs <= 0 {
		searchMs = config.DefaultSearchTimeoutMs
	}
	if fetchMs <= 0 {
		fetchMs = config.DefaultFetchTimeoutMs
	}

	b := model.Budget{
		MaxResults:                   limits.MaxResults,
		MaxSnippetChars:              limits.MaxSnippetChars,
		MaxContextChars:              limits.MaxContextChars,
		MaxRenderContentCharsPerItem: limits.MaxRenderContentCharsPerItem,
		MaxFetchPages:                limits.MaxFetchPages,
		MaxDownloadBytesPerPage:      limits.MaxDownloadBytesPerPage,
		MaxExtractCharsPerPage:       limits.MaxExtractCharsPerPage,
		AllowedContentTypes:          allowed,
		MaxRedirects:                 maxRedirects,
		SearchTimeout:                millis(searchMs),
		FetchTimeout:                 millis(fetchMs),
	}
	if o == nil {
		return b
	}

	override(&b.MaxResults, o.MaxResults)
	override(&b.MaxSnippetChars, o.MaxSnippetChars)
	override(&b.MaxContextChars, o.MaxContextChars)
	override(&b.MaxRenderContentCharsPerItem, o.MaxRenderContentCharsPerItem)
	override(&b.MaxFetchPages, o.MaxFetchPages)
	override(&b.MaxDownloadBytesPerPage, o.MaxDownloadBytesPerPage)
	override(&b.MaxExtractCharsPerPage, o.MaxExtractCharsPerPage)
	override(&b.MaxRedirects, o.MaxRedirects)
	if o.AllowedContentTypes != nil {
		b.AllowedContentTypes = o.AllowedContentTypes
	}
	// 非正数的超时覆盖视为未提供，网络调用始终带超时
	if t := o.PerRequestTimeoutMs; t != nil {
		if t.Search != nil && *t.Search > 0 {
			b.SearchTimeout = millis(*t.Search)
		}
		if t.Fetch != nil && *t.Fetch > 0 {
			b.FetchTimeout = millis(*t.Fetch)
		}
	}

	if b.MaxContextChars < 0 {
		b.MaxContextChars = 0
	}
	if b.MaxRedirects < 0 {
		b.MaxRedirects = 0
	}
	return b
}

func override[T int | int64](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
