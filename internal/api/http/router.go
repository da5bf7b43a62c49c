package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/scoped/internal/api/http/handlers"
	"github.com/weisyn/scoped/internal/api/http/middleware"
	"github.com/weisyn/scoped/internal/api/http/session"
	apiconfig "github.com/weisyn/scoped/internal/config/api"
	scopecore "github.com/weisyn/scoped/internal/core/scope"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config        *apiconfig.Config
	Logger        log.Logger
	Manager       *scopecore.Manager
	Conversations *scopecore.ConversationManager
	Store         *session.Store
	Registry      *prometheus.Registry
}

// NewRouter 创建路由引擎
//
// 根路径挂健康检查与 /metrics；/api/v1 下的路由经过作用域中间件。
func NewRouter(deps RouterDeps) *gin.Engine {
	zl := deps.Logger.GetZapLogger()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.NewRequestID().Middleware(),
		middleware.NewLogger(deps.Logger).Middleware(),
		middleware.NewMetrics(deps.Registry, zl).Middleware(),
		middleware.ErrorHandler(zl),
	)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry})))
	handlers.NewHealthHandler(zl, deps.Manager, deps.Store).RegisterRoutes(router)

	httpCfg := deps.Config.GetHTTP()
	scopeMiddleware := middleware.NewScope(
		deps.Manager,
		deps.Store,
		deps.Config.GetSession().CookieName,
		httpCfg.ConversationGuard,
		deps.Logger,
	)

	v1 := router.Group("/api/v1")
	v1.Use(scopeMiddleware.Middleware())
	handlers.NewScopeHandler(deps.Manager, deps.Conversations, scopeMiddleware, zl).RegisterRoutes(v1)

	return router
}
