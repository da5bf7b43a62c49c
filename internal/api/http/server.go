// Package http 作用域管理器的 HTTP 接入层
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/scoped/internal/api/http/session"
	apiconfig "github.com/weisyn/scoped/internal/config/api"
	scopecore "github.com/weisyn/scoped/internal/core/scope"
	"github.com/weisyn/scoped/pkg/interfaces/config"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
)

// Server HTTP服务器
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        *apiconfig.Config
	logger     log.Logger

	listener net.Listener
}

// ServerParams 服务器依赖
type ServerParams struct {
	fx.In

	Lifecycle     fx.Lifecycle
	Provider      config.Provider
	Logger        log.Logger
	Manager       *scopecore.Manager
	Conversations *scopecore.ConversationManager
	Store         *session.Store
	Registry      *prometheus.Registry
}

// NewServer 创建HTTP服务器并注册生命周期钩子
func NewServer(p ServerParams) *Server {
	if p.Provider.GetEnvironment() != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := apiconfig.NewFromOptions(p.Provider.GetAPI())
	logger := p.Logger.With("module", "http")

	server := &Server{
		cfg:    cfg,
		logger: logger,
		router: NewRouter(RouterDeps{
			Config:        cfg,
			Logger:        logger,
			Manager:       p.Manager,
			Conversations: p.Conversations,
			Store:         p.Store,
			Registry:      p.Registry,
		}),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
	return server
}

// Start 监听配置地址并在后台提供服务；端口占用等错误同步返回
func (s *Server) Start() error {
	httpCfg := s.cfg.GetHTTP()
	addr := s.cfg.GetListenAddress()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 HTTP 地址失败 %s: %w", addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
	}

	s.startGoroutine()
	s.logger.Infof("HTTP服务器已启动: %s", ln.Addr())
	return nil
}

// Addr 实际监听地址，未启动时为空
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler 路由引擎
func (s *Server) Handler() http.Handler { return s.router }

// Stop 优雅关闭，等待活跃请求结束直至 ShutdownTimeout
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("正在关闭HTTP服务器")

	stopCtx, cancel := context.WithTimeout(ctx, s.cfg.GetHTTP().ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(stopCtx); err != nil {
		s.logger.Errorf("HTTP服务器关闭出错: %v", err)
		return err
	}

	s.logger.Info("HTTP服务器已关闭")
	return nil
}

func (s *Server) startGoroutine() {
	go func() {
		// 正常关闭时返回 http.ErrServerClosed
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP服务器运行失败: %v", err)
		}
	}()
}
