package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/logger"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

// 抓取引擎
const (
	EngineLocal = "local"
	EngineJina  = "jina"
)

// 默认请求头
const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	DefaultAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Options 抓取器参数
type Options struct {
	Engine         string
	ProxyURL       string
	JinaBaseURL    string
	JinaAPIKey     string
	UserAgent      string
	Accept         string
	AcceptLanguage string
}

// Fetcher 页面抓取与正文提取
type Fetcher struct {
	engine      string
	jinaBaseURL string
	jinaAPIKey  string
	headers     http.Header
	proxyError  string

	client       *http.Client // 不自动跟随重定向
	readerClient *http.Client
}

// New 创建抓取器；代理配置错误不会返回 error，而是让之后每次抓取以对应原因失败
func New(opts Options) *Fetcher {
	tr, reason := newTransport(opts.ProxyURL)
	if reason != "" {
		logger.Log.Warnf("抓取代理不可用 (%s): %s", reason, opts.ProxyURL)
	}

	engine := strings.ToLower(strings.TrimSpace(opts.Engine))
	if engine == "" {
		engine = EngineLocal
	}
	jinaBase := strings.TrimSpace(opts.JinaBaseURL)
	if jinaBase == "" {
		jinaBase = config.DefaultJinaBaseURL
	}

	h := http.Header{}
	h.Set("User-Agent", firstNonEmpty(opts.UserAgent, DefaultUserAgent))
	h.Set("Accept", firstNonEmpty(opts.Accept, DefaultAccept))
	if v := strings.TrimSpace(opts.AcceptLanguage); v != "" {
		h.Set("Accept-Language", v)
	}

	return &Fetcher{
		engine:      engine,
		jinaBaseURL: jinaBase,
		jinaAPIKey:  strings.TrimSpace(opts.JinaAPIKey),
		headers:     h,
		proxyError:  reason,
		client: &http.Client{
			Transport: tr,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		readerClient: &http.Client{Transport: tr},
	}
}

// NewFromConfig 按 service.fetch 配置创建抓取器
func NewFromConfig(cfg config.FetchConfig) *Fetcher {
	return New(Options{
		Engine:         cfg.Engine,
		ProxyURL:       cfg.Proxy.SocksURL,
		JinaBaseURL:    cfg.Jina.BaseURL,
		JinaAPIKey:     cfg.Jina.APIKey,
		UserAgent:      cfg.Headers.UserAgent,
		Accept:         cfg.Headers.Accept,
		AcceptLanguage: cfg.Headers.AcceptLanguage,
	})
}

// DefaultEngine 配置的默认抓取引擎
func (f *Fetcher) DefaultEngine() string {
	return f.engine
}

// Fetch 抓取并提取正文；所有结果都以 FetchOutcome 返回，不返回 error
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, b model.Budget, engine string) *model.FetchOutcome {
	out := &model.FetchOutcome{
		Status:     model.FetchStatusFailed,
		SkipReason: model.ReasonError,
		FinalURL:   rawURL,
	}
	if f.proxyError != "" {
		out.SkipReason = f.proxyError
		return out
	}

	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" {
		engine = f.engine
	}
	if engine == EngineJina {
		return f.fetchViaReader(ctx, rawURL, b, out)
	}
	return f.fetchLocal(ctx, rawURL, b, out)
}

func (f *Fetcher) fetchLocal(ctx context.Context, rawURL string, b model.Budget, out *model.FetchOutcome) *model.FetchOutcome {
	cur := rawURL
	for {
		hopCtx, cancel := withTimeout(ctx, b.FetchTimeout)
		req, err := f.newRequest(hopCtx, cur)
		if err != nil {
			cancel()
			return out
		}
		resp, err := f.client.Do(req)
		if err != nil {
			out.SkipReason = classify(hopCtx, err)
			cancel()
			return out
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			loc := resp.Header.Get("Location")
			if loc != "" {
				resp.Body.Close()
				cancel()
				if out.Redirects >= b.MaxRedirects {
					out.SkipReason = model.ReasonMaxRedirects
					return out
				}
				next, err := resolveLocation(cur, loc)
				if err != nil {
					out.SkipReason = model.ReasonError
					return out
				}
				out.Redirects++
				cur = next
				out.FinalURL = cur
				continue
			}
			// 没有 Location 的重定向在当前 URL 结束
		}

		// 正文读取同样受本跳超时约束
		defer cancel()
		defer resp.Body.Close()
		return f.readLocal(hopCtx, resp, cur, b, out)
	}
}

func (f *Fetcher) readLocal(ctx context.Context, resp *http.Response, pageURL string, b model.Budget, out *model.FetchOutcome) *model.FetchOutcome {
	out.ContentType = normalizeContentType(resp.Header.Get("Content-Type"))
	if !isAllowedType(out.ContentType, b.AllowedContentTypes) {
		out.Status = model.FetchStatusSkipped
		out.SkipReason = model.ReasonContentType
		return out
	}

	maxBytes := b.MaxDownloadBytesPerPage
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		out.Status = model.FetchStatusSkipped
		out.SkipReason = model.ReasonTooLarge
		return out
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		out.SkipReason = classify(ctx, err)
		return out
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		data = data[:maxBytes]
		out.Truncated = true
	}
	out.DownloadedBytes = int64(len(data))

	raw := strings.ToValidUTF8(string(data), string(utf8.RuneError))
	text := model.TruncateChars(extractText(raw, out.ContentType, pageURL), b.MaxExtractCharsPerPage)

	out.Status = model.FetchStatusFetched
	out.SkipReason = ""
	out.Text = text
	out.ExtractedChars = utf8.RuneCountInString(text)
	return out
}

func (f *Fetcher) newRequest(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header = f.headers.Clone()
	return req, nil
}

func resolveLocation(base, loc string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	next, err := b.Parse(loc)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}

func normalizeContentType(value string) string {
	ct, _, _ := strings.Cut(strings.ToLower(value), ";")
	return strings.TrimSpace(ct)
}

func isAllowedType(ct string, allowed []string) bool {
	if ct == "" {
		return false
	}
	for _, a := range allowed {
		if normalizeContentType(a) == ct {
			return true
		}
	}
	return false
}

// classify 将传输层错误归为 timeout 或 error
func classify(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return model.ReasonTimeout
	}
	return model.ReasonError
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
