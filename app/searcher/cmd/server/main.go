package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/joho/godotenv"

	"github.com/iWorld-y/web_searcher/app/searcher/internal/conf"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 服务名称
	Name string = "searcher"
	// Version 服务版本号
	Version string

	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "app/searcher/configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	bc, err := loadBootstrap(flagconf)
	if err != nil {
		panic(err)
	}

	app, cleanup, err := initApp(bc.Server, bc.Searcher, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}

// loadBootstrap 读取 kratos 配置并补齐 searcher 段的默认值
func loadBootstrap(path string) (*conf.Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(path)))
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, fmt.Errorf("scan config %s: %w", path, err)
	}
	bc.Searcher = bc.Searcher.WithDefaults()

	// 未配置 server.http.addr 时，监听地址来自 searcher.service.listen.tcp
	if bc.Server == nil || bc.Server.Http == nil || bc.Server.Http.Addr == "" {
		if err := bc.Searcher.Validate(); err != nil {
			return nil, err
		}
	}
	return &bc, nil
}
