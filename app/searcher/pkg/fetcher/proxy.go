package fetcher

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

// newTransport 构建底层 Transport；proxyURL 为空时直连
//
// 返回的 reason 非空表示代理不可用，此时所有抓取都应直接失败而不是静默直连。
func newTransport(proxyURL string) (*http.Transport, string) {
	tr := &http.Transport{
		Proxy:                 nil,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		tr.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
		return tr, ""
	}

	dialer, reason := socksDialer(proxyURL)
	if reason != "" {
		return tr, reason
	}
	tr.DialContext = dialer
	return tr, ""
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// socksDialer 解析 scheme://[user[:pass]@]host:port 形式的 SOCKS 代理
func socksDialer(raw string) (dialFunc, string) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" || u.Port() == "" {
		return nil, model.ReasonProxyInitFailed
	}

	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h":
	case "socks4", "socks4a":
		// x/net/proxy 只实现了 SOCKS5
		return nil, model.ReasonMissingFetchSocks
	default:
		return nil, model.ReasonProxyInitFailed
	}
	u.Scheme = strings.ToLower(u.Scheme)

	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, model.ReasonProxyInitFailed
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, ""
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, ""
}
