package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/web_searcher/app/searcher/internal/service"
)

// ProviderSet 是搜索服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,

	// Engine providers
	NewSearchEngine,

	// Service providers
	service.NewSearcherService,
)
