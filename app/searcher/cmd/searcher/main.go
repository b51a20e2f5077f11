package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/engine"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/logger"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/model"
)

func main() {
	var (
		cfgPath    string
		query      string
		mode       string
		backend    string
		fetchEng   string
		pick       string
		pages      int
		asJSON     bool
		clearCache bool
	)
	flag.StringVar(&cfgPath, "c", "app/searcher/configs/searcher.yaml", "config path")
	flag.StringVar(&cfgPath, "config", "app/searcher/configs/searcher.yaml", "config path")
	flag.StringVar(&query, "q", "", "search query")
	flag.StringVar(&mode, "mode", model.ModeSimple, "search mode: simple | full")
	flag.StringVar(&backend, "backend", "", "force a backend: searxng | duckduckgo")
	flag.StringVar(&fetchEng, "engine", "", "fetch engine: local | jina")
	flag.StringVar(&pick, "pick", "", "comma separated result indexes, eg: 0,2")
	flag.IntVar(&pages, "pages", -1, "max fetch pages (-1 uses config)")
	flag.BoolVar(&asJSON, "json", false, "print the full JSON envelope")
	flag.BoolVar(&clearCache, "clear-cache", false, "remove all cached pages and exit")
	flag.Parse()

	// 1. 加载配置
	_ = godotenv.Load()
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 2. 初始化日志；控制台日志写到 stderr，stdout 只输出结果
	if err = logger.InitLoggerTo(os.Stderr, cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	// 3. 初始化引擎
	eng, err := engine.NewEngineFromConfig(cfg)
	if err != nil {
		logger.Log.Fatalf("初始化引擎失败: %v", err)
	}

	if clearCache {
		fmt.Printf("cleared %d cache entries\n", eng.ClearCache())
		return
	}

	req, err := buildRequest(query, mode, backend, fetchEng, pick, pages)
	if err != nil {
		log.Fatalf("参数错误: %v", err)
	}

	// 4. 执行搜索
	resp := eng.Search(context.Background(), req)
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			log.Fatalf("输出失败: %v", err)
		}
		return
	}
	if resp.RenderedText != nil {
		fmt.Println(*resp.RenderedText)
	}
	if resp.Meta.Note != "" {
		fmt.Fprintf(os.Stderr, "note: %s\n", resp.Meta.Note)
	}
}

func buildRequest(query, mode, backend, fetchEng, pick string, pages int) (*model.SearchRequest, error) {
	req := &model.SearchRequest{
		Query: model.Query{Text: strings.TrimSpace(query)},
		Constraints: &model.Constraints{
			Backend:     backend,
			SearchMode:  mode,
			FetchEngine: fetchEng,
		},
	}
	if pages >= 0 {
		req.Budget = &model.BudgetOverrides{MaxFetchPages: &pages}
	}
	for _, part := range strings.Split(pick, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid pick index %q", part)
		}
		req.Constraints.PickIDs = append(req.Constraints.PickIDs, n)
	}
	return req, nil
}
