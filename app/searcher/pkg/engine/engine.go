package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/cache"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/fetcher"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/logger"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/render"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/search"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/search/factory"
)

// 响应中的生产者信息
const (
	ProducerName    = "searcher-service"
	ProducerVersion = "0.1.1"
)

// PageFetcher 页面抓取
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, b model.Budget, engine string) *model.FetchOutcome
}

// ContentCache 正文缓存
type ContentCache interface {
	Get(engine, rawURL string) (string, bool)
	Put(engine, rawURL, finalURL, title, text string) bool
	ClearAll() int
	SweepExpired() int
}

// Engine 查询到上下文包的编排器
type Engine struct {
	cfg      *config.Config
	registry *factory.Registry
	fetcher  PageFetcher
	cache    ContentCache
	now      func() time.Time
	newID    func() string
}

// NewEngine 创建引擎实例
func NewEngine(cfg *config.Config, registry *factory.Registry, f PageFetcher, c ContentCache) *Engine {
	return &Engine{
		cfg:      cfg.WithDefaults(),
		registry: registry,
		fetcher:  f,
		cache:    c,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewEngineFromConfig 根据配置装配后端、抓取器与缓存
func NewEngineFromConfig(cfg *config.Config) (*Engine, error) {
	cfg = cfg.WithDefaults()
	registry, err := factory.NewRegistryFromConfig(cfg.Backends)
	if err != nil {
		return nil, fmt.Errorf("搜索后端初始化失败: %w", err)
	}
	return NewEngine(cfg, registry, fetcher.NewFromConfig(cfg.Service.Fetch), cache.NewFromConfig(cfg.Service.Cache)), nil
}

// ClearCache 清空正文缓存，返回删除的条目数
func (e *Engine) ClearCache() int {
	return e.cache.ClearAll()
}

// SweepCache 清理过期缓存
func (e *Engine) SweepCache() int {
	return e.cache.SweepExpired()
}

// run 单次请求的执行状态
type run struct {
	budget      model.Budget
	mode        string
	fetchEngine string
	pickIDs     []int

	items        []model.SearchResultItem
	backendUsed  string
	fallbackUsed bool
	pickApplied  bool
	note         string

	searchMs, fetchMs int64
	cacheHits         int
	cacheMisses       int
	cacheWrites       int
}

// Search 执行一次搜索请求；后端与抓取失败都体现在响应中，不返回 error
func (e *Engine) Search(ctx context.Context, req *model.SearchRequest) *model.SearchResponse {
	t0 := e.now()
	if req == nil {
		req = &model.SearchRequest{}
	}

	r := &run{
		budget:      ResolveBudget(e.cfg.Service.Limits, e.cfg.Service.TimeoutsMs, req.Budget),
		mode:        searchMode(req),
		fetchEngine: e.fetchEngine(req),
		pickIDs:     pickIDs(req),
	}

	query := req.Query.Text
	if query == "" {
		r.note = "Empty query"
		r.mode = model.ModeSimple
		r.pickIDs = []int{}
		return e.envelope(req, r, t0)
	}

	// 1. 搜索（按候选顺序回退）
	ts := e.now()
	e.searchWithFallback(ctx, query, forcedBackend(req), r)
	r.searchMs = e.now().Sub(ts).Milliseconds()

	if len(r.items) == 0 && r.note == "" {
		switch r.backendUsed {
		case search.BackendDuckDuckGo:
			r.note = "DuckDuckGo returned no instant answers"
		case search.BackendSearXNG:
			r.note = "SearXNG returned no results"
		default:
			r.note = "No results returned by backend"
		}
	}

	// 2. 摘要截断与 pick
	for i := range r.items {
		r.items[i].Snippet = model.TruncateChars(r.items[i].Snippet, r.budget.MaxSnippetChars)
	}
	r.items, r.pickApplied = applyPick(r.items, r.pickIDs)

	// 3. 抓取正文
	if r.mode == model.ModeFull && r.budget.MaxFetchPages > 0 && len(r.items) > 0 {
		tf := e.now()
		e.fetchLoop(ctx, r)
		r.fetchMs = e.now().Sub(tf).Milliseconds()
	} else {
		for i := range r.items {
			if r.items[i].Fetch == nil {
				r.items[i].Fetch = &model.FetchOutcome{Status: model.FetchStatusSkipped}
			}
		}
	}

	return e.envelope(req, r, t0)
}

func (e *Engine) searchWithFallback(ctx context.Context, query, forced string, r *run) {
	order, note := e.registry.Candidates(forced)
	r.note = note

	for _, name := range order {
		b, ok := e.registry.Lookup(name)
		if !ok || !b.Enabled {
			continue
		}

		resp, err := b.Searcher.Search(ctx, &search.Request{
			Query:      query,
			MaxResults: r.budget.MaxResults,
			Timeout:    r.budget.SearchTimeout,
		})
		if err != nil {
			logger.Log.Warnf("搜索后端 [%s] 失败: %v", name, err)
			r.note = err.Error()
			r.fallbackUsed = true
			continue
		}

		r.backendUsed = name
		if resp != nil {
			r.items = resp.Items
		}
		logger.Log.Debugf("搜索后端 [%s] 返回 %d 条结果", name, len(r.items))
		return
	}
}

// fetchLoop 逐条抓取，受 max_fetch_pages 约束；缓存命中同样计入页数
func (e *Engine) fetchLoop(ctx context.Context, r *run) {
	used := 0
	for i := range r.items {
		it := &r.items[i]
		if used >= r.budget.MaxFetchPages {
			it.Fetch = &model.FetchOutcome{Status: model.FetchStatusSkipped, SkipReason: model.ReasonBudget}
			continue
		}
		if it.URL == "" {
			it.Fetch = &model.FetchOutcome{Status: model.FetchStatusFailed, SkipReason: model.ReasonError}
			continue
		}

		if text, ok := e.cache.Get(r.fetchEngine, it.URL); ok {
			r.cacheHits++
			used++
			it.Fetch = &model.FetchOutcome{
				Status:         model.FetchStatusFetched,
				ContentType:    model.ContentTypeCache,
				ExtractedChars: utf8.RuneCountInString(text),
				FinalURL:       it.URL,
				Text:           text,
			}
			logger.Log.WithField("url", it.URL).WithField("engine", r.fetchEngine).Info("cache hit")
			continue
		}
		r.cacheMisses++

		out := e.fetcher.Fetch(ctx, it.URL, r.budget, r.fetchEngine)
		if out == nil {
			out = &model.FetchOutcome{Status: model.FetchStatusFailed, SkipReason: model.ReasonError}
		}
		if out.FinalURL == "" {
			out.FinalURL = it.URL
		}
		it.Fetch = out
		if !out.Fetched() {
			logger.Log.Debugf("抓取 %s: %s/%s", it.URL, out.Status, out.SkipReason)
			continue
		}

		used++
		if strings.TrimSpace(out.Text) != "" && e.cache.Put(r.fetchEngine, it.URL, out.FinalURL, it.Title, out.Text) {
			r.cacheWrites++
			logger.Log.WithField("url", it.URL).WithField("engine", r.fetchEngine).Info("cache write")
		}
	}
}

func (e *Engine) envelope(req *model.SearchRequest, r *run, t0 time.Time) *model.SearchResponse {
	var rendered *string
	if wantFlag(req, func(w *model.Want) *bool { return w.RenderedText }) {
		text := render.ContextPack(r.items, render.Limits{
			MaxContextChars:        r.budget.MaxContextChars,
			MaxSnippetChars:        r.budget.MaxSnippetChars,
			MaxContentCharsPerItem: r.budget.MaxRenderContentCharsPerItem,
		})
		rendered = &text
	}

	items := r.items
	if items == nil || !wantFlag(req, func(w *model.Want) *bool { return w.Items }) {
		items = []model.SearchResultItem{}
	}

	resp := &model.SearchResponse{
		Schema:     model.SchemaUCP,
		CreatedUTC: e.now().UTC().Format(time.RFC3339Nano),
		RequestID:  e.newID(),
		Producer:   model.Producer{Name: ProducerName, Version: ProducerVersion},
		Request:    req,
		Meta: model.Meta{
			BackendUsed:  r.backendUsed,
			FallbackUsed: r.fallbackUsed,
			PickApplied:  r.pickApplied,
			PickIDs:      r.pickIDs,
			ModeUsed:     r.mode,
			TimingMs: model.Timing{
				Search: r.searchMs,
				Fetch:  r.fetchMs,
				Total:  e.now().Sub(t0).Milliseconds(),
			},
			Note: r.note,
		},
		Usage: model.Usage{
			ResultsReturned: len(items),
		},
		Items:        items,
		RenderedText: rendered,
	}
	if rendered != nil {
		resp.Usage.ContextChars = utf8.RuneCountInString(*rendered)
	}

	if r.mode == model.ModeFull {
		for _, it := range r.items {
			if it.Fetch.Fetched() {
				resp.Usage.FetchPagesUsed++
			}
		}
		hits, misses, writes := r.cacheHits, r.cacheMisses, r.cacheWrites
		resp.Usage.CacheHits = &hits
		resp.Usage.CacheMisses = &misses
		resp.Usage.CacheWrites = &writes
	}
	return resp
}

func (e *Engine) fetchEngine(req *model.SearchRequest) string {
	if req.Constraints != nil {
		if v := strings.ToLower(strings.TrimSpace(req.Constraints.FetchEngine)); v != "" {
			return v
		}
	}
	if v := strings.ToLower(strings.TrimSpace(e.cfg.Service.Fetch.Engine)); v != "" {
		return v
	}
	return fetcher.EngineLocal
}

func forcedBackend(req *model.SearchRequest) string {
	if req.Constraints != nil {
		if v := strings.TrimSpace(req.Constraints.Backend); v != "" {
			return v
		}
	}
	if req.Policy != nil {
		return strings.TrimSpace(req.Policy.Backend)
	}
	return ""
}

func searchMode(req *model.SearchRequest) string {
	if req.Constraints != nil && strings.TrimSpace(req.Constraints.SearchMode) == model.ModeFull {
		return model.ModeFull
	}
	return model.ModeSimple
}

// pickIDs 去重并丢弃负数，保留请求中的顺序
func pickIDs(req *model.SearchRequest) []int {
	out := []int{}
	if req.Constraints == nil {
		return out
	}
	seen := make(map[int]struct{}, len(req.Constraints.PickIDs))
	for _, id := range req.Constraints.PickIDs {
		if id < 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// applyPick 按下标挑选并重排结果，越界下标被忽略
func applyPick(items []model.SearchResultItem, ids []int) ([]model.SearchResultItem, bool) {
	if len(ids) == 0 {
		return items, false
	}
	out := make([]model.SearchResultItem, 0, len(ids))
	for _, idx := range ids {
		if idx < len(items) {
			out = append(out, items[idx])
		}
	}
	return out, true
}

func wantFlag(req *model.SearchRequest, field func(*model.Want) *bool) bool {
	if req.Want == nil {
		return true
	}
	v := field(req.Want)
	return v == nil || *v
}
