package conf

import "github.com/iWorld-y/web_searcher/app/searcher/pkg/config"

type Bootstrap struct {
	Server   *Server
	Searcher *config.Config `json:"searcher"`
}

type Server struct {
	Http *HTTP
}

type HTTP struct {
	Addr    string
	Timeout string
}
