package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/search"
)

const (
	// DefaultBaseURL DuckDuckGo Instant Answer API
	DefaultBaseURL = "https://api.duckduckgo.com/"

	defaultInstantTitle = "DuckDuckGo Instant Answer"
	maxResponseBody     = 4 << 20
)

// Client DuckDuckGo Instant Answer 客户端
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient 创建客户端，baseURL 为空时使用官方地址
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// InstantAnswer Instant Answer API 响应（只取用到的字段）
type InstantAnswer struct {
	Answer        json.RawMessage `json:"Answer"`
	AbstractText  string          `json:"AbstractText"`
	Definition    string          `json:"Definition"`
	Heading       string          `json:"Heading"`
	AbstractURL   string          `json:"AbstractURL"`
	AnswerType    string          `json:"AnswerType"`
	RelatedTopics []RelatedTopic  `json:"RelatedTopics"`
}

// RelatedTopic 相关主题；分组条目没有 Text / FirstURL，会被跳过
type RelatedTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// answerText Answer 字段可能是字符串也可能是对象，只接受字符串
func (a *InstantAnswer) answerText() string {
	var s string
	if len(a.Answer) > 0 && json.Unmarshal(a.Answer, &s) == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func (c *Client) Name() string {
	return search.BackendDuckDuckGo
}

// Search 执行搜索
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	ia, err := c.doSearch(ctx, req)
	if err != nil {
		return nil, search.NewBackendError(c.Name(), err)
	}

	limit := req.Limit()
	return &search.Response{Items: normalize(ia, limit)}, nil
}

// normalize 即时答案作为第 1 条，相关主题依次续排名次
func normalize(ia *InstantAnswer, limit int) []model.SearchResultItem {
	items := make([]model.SearchResultItem, 0, limit)

	heading := strings.TrimSpace(ia.Heading)
	abstractURL := strings.TrimSpace(ia.AbstractURL)
	answerType := strings.TrimSpace(ia.AnswerType)

	snippet := ia.answerText()
	if snippet == "" {
		snippet = strings.TrimSpace(ia.AbstractText)
	}
	if snippet == "" {
		snippet = strings.TrimSpace(ia.Definition)
	}

	if snippet != "" {
		title := heading
		if title == "" {
			title = defaultInstantTitle
		}
		engines := []string{search.BackendDuckDuckGo}
		if answerType != "" {
			engines = []string{search.BackendDuckDuckGo + ":" + answerType}
		}
		items = append(items, model.SearchResultItem{
			Type:    search.ItemTypeWebResult,
			Rank:    1,
			Title:   title,
			URL:     abstractURL,
			Domain:  search.Hostname(abstractURL),
			Engines: engines,
			Snippet: snippet,
			Source:  search.BackendDuckDuckGo,
		})
	}

	for _, topic := range ia.RelatedTopics {
		if len(items) >= limit {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		title, _, _ := strings.Cut(topic.Text, " - ")
		items = append(items, model.SearchResultItem{
			Type:    search.ItemTypeWebResult,
			Rank:    len(items) + 1,
			Title:   title,
			URL:     topic.FirstURL,
			Domain:  search.Hostname(topic.FirstURL),
			Engines: []string{search.BackendDuckDuckGo},
			Snippet: topic.Text,
			Source:  search.BackendDuckDuckGo,
		})
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (c *Client) doSearch(ctx context.Context, req *search.Request) (*InstantAnswer, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", req.Query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
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
		return nil, fmt.Errorf("DuckDuckGo HTTP %d", res.StatusCode)
	}

	var ia InstantAnswer
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBody)).Decode(&ia); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	return &ia, nil
}
