package service

import (
	"context"
	"encoding/json"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/engine"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

// ClearCacheRequest /v1/cache/clear 请求体（无字段）
type ClearCacheRequest struct{}

// ClearCacheReply /v1/cache/clear 响应
type ClearCacheReply struct {
	OK      bool `json:"ok"`
	Cleared int  `json:"cleared"`
}

type SearcherService struct {
	eng *engine.Engine
	log *log.Helper
}

func NewSearcherService(eng *engine.Engine, logger log.Logger) *SearcherService {
	return &SearcherService{
		eng: eng,
		log: log.NewHelper(logger),
	}
}

func (s *SearcherService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	resp := s.eng.Search(ctx, req)
	s.log.Infof("search query=%q backend=%s mode=%s results=%d total_ms=%d",
		req.Query.Text, resp.Meta.BackendUsed, resp.Meta.ModeUsed, resp.Usage.ResultsReturned, resp.Meta.TimingMs.Total)
	return resp, nil
}

func (s *SearcherService) ClearCache(ctx context.Context, _ *ClearCacheRequest) (*ClearCacheReply, error) {
	cleared := s.eng.ClearCache()
	s.log.Infof("cache cleared: %d entries", cleared)
	return &ClearCacheReply{OK: true, Cleared: cleared}, nil
}

// Health 存活检查
func (s *SearcherService) Health(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
