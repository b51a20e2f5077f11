package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/search"
)

const maxResponseBody = 4 << 20

// Client SearXNG API 客户端
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient 创建一个新的 SearXNG 客户端，超时由每次请求单独控制
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{},
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// SearchResponse SearXNG 响应结构
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult SearXNG 单条结果；不同版本的引擎字段形状不同
type SearchResult struct {
	Title   string          `json:"title"`
	URL     string          `json:"url"`
	Content string          `json:"content"`
	Snippet string          `json:"snippet"`
	Engine  string          `json:"engine"`
	Engines json.RawMessage `json:"engines"`
}

// EngineList 将 engines / engine 归并为有序列表
func (r SearchResult) EngineList() []string {
	if len(r.Engines) > 0 {
		var list []any
		if err := json.Unmarshal(r.Engines, &list); err == nil {
			out := make([]string, 0, len(list))
			for _, v := range list {
				s := stringify(v)
				if s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	if r.Engine != "" {
		return []string{r.Engine}
	}
	var single string
	if len(r.Engines) > 0 && json.Unmarshal(r.Engines, &single) == nil && single != "" {
		return []string{single}
	}
	return []string{}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (c *Client) Name() string {
	return search.BackendSearXNG
}

// Search 执行搜索
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	resp, err := c.doSearch(ctx, req)
	if err != nil {
		return nil, search.NewBackendError(c.Name(), err)
	}

	limit := req.Limit()
	results := resp.Results
	if len(results) > limit {
		results = results[:limit]
	}

	items := make([]model.SearchResultItem, 0, len(results))
	for i, r := range results {
		snippet := r.Content
		if snippet == "" {
			snippet = r.Snippet
		}
		items = append(items, model.SearchResultItem{
			Type:    search.ItemTypeWebResult,
			Rank:    i + 1,
			Title:   r.Title,
			URL:     r.URL,
			Domain:  search.Hostname(r.URL),
			Engines: r.EngineList(),
			Snippet: snippet,
			Source:  search.BackendSearXNG,
		})
	}

	return &search.Response{Items: items}, nil
}

func (c *Client) doSearch(ctx context.Context, req *search.Request) (*SearchResponse, error) {
	if c.baseURL == "" {
		return nil, errors.New("SearXNG base_url is empty")
	}
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("q", req.Query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	ctx, cancel := search.WithTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("SearXNG HTTP %d", res.StatusCode)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBody)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	return &searchResp, nil
}
