package server

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/web_searcher/app/searcher/internal/conf"
	"github.com/iWorld-y/web_searcher/app/searcher/internal/service"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

const (
	OperationSearch     = "/searcher.v1.Searcher/Search"
	OperationClearCache = "/searcher.v1.Searcher/ClearCache"
)

func NewHTTPServer(c *conf.Server, sc *config.Config, s *service.SearcherService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if addr := listenAddr(c, sc); addr != "" {
		opts = append(opts, http.Address(addr))
	}
	opts = append(opts, http.Timeout(serverTimeout(c)))

	srv := http.NewServer(opts...)
	RegisterSearcherHTTPServer(srv, s)
	srv.HandleFunc("/healthz", s.Health)
	return srv
}

// listenAddr server.http.addr 优先，否则使用 searcher.service.listen.tcp
func listenAddr(c *conf.Server, sc *config.Config) string {
	if c != nil && c.Http != nil && c.Http.Addr != "" {
		return c.Http.Addr
	}
	if sc != nil {
		return sc.Service.Listen.TCP.Addr()
	}
	return ""
}

// serverTimeout 未配置或无法解析时返回 0，由请求自身的搜索与抓取超时约束
func serverTimeout(c *conf.Server) time.Duration {
	if c == nil || c.Http == nil || c.Http.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Http.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func RegisterSearcherHTTPServer(s *http.Server, srv *service.SearcherService) {
	r := s.Route("/")
	r.POST("/v1/search", _Searcher_Search0_HTTP_Handler(srv))
	r.POST("/v1/cache/clear", _Searcher_ClearCache0_HTTP_Handler(srv))
}

func _Searcher_Search0_HTTP_Handler(srv *service.SearcherService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in model.SearchRequest
		if err := ctx.Bind(&in); err != nil {
			return errors.BadRequest("INVALID_REQUEST", err.Error())
		}
		http.SetOperation(ctx, OperationSearch)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Search(ctx, req.(*model.SearchRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*model.SearchResponse))
	}
}

func _Searcher_ClearCache0_HTTP_Handler(srv *service.SearcherService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.ClearCacheRequest
		if err := ctx.Bind(&in); err != nil {
			return errors.BadRequest("INVALID_REQUEST", err.Error())
		}
		http.SetOperation(ctx, OperationClearCache)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ClearCache(ctx, req.(*service.ClearCacheRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*service.ClearCacheReply))
	}
}
