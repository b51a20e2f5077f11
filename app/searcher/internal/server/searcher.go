package server

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/iWorld-y/web_searcher/app/searcher/pkg/config"
	"github.com/iWorld-y/web_searcher/app/searcher/pkg/engine"
	sLogger "github.com/iWorld-y/web_searcher/app/searcher/pkg/logger"
)

// NewSearchEngine 初始化搜索引擎；配置了 sweep_cron 时按计划清理过期缓存
func NewSearchEngine(c *config.Config, logger log.Logger) (*engine.Engine, func(), error) {
	helper := log.NewHelper(logger)
	c = c.WithDefaults()

	// 初始化日志
	if err := sLogger.InitLogger(c.Log.Level, c.Log.File); err != nil {
		helper.Errorf("Failed to init searcher logger: %v", err)
		_ = sLogger.InitLogger("info", "") // 降级处理
	}

	// 初始化核心引擎
	eng, err := engine.NewEngineFromConfig(c)
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		return nil, nil, err
	}

	var sched *cron.Cron
	if spec := c.Service.Cache.SweepCron; spec != "" {
		sched = cron.New()
		if _, err := sched.AddFunc(spec, func() {
			if n := eng.SweepCache(); n > 0 {
				helper.Infof("cache sweep removed %d expired entries", n)
			}
		}); err != nil {
			return nil, nil, fmt.Errorf("invalid service.cache.sweep_cron %q: %w", spec, err)
		}
		sched.Start()
		helper.Infof("cache sweep scheduled: %s", spec)
	}

	cleanup := func() {
		if sched != nil {
			<-sched.Stop().Done()
		}
		helper.Info("Cleaning up searcher engine")
	}

	return eng, cleanup, nil
}
