package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/scoped/internal/api/http/session"
	"github.com/weisyn/scoped/internal/api/http/types"
	scopecore "github.com/weisyn/scoped/internal/core/scope"
)

// HealthHandler 健康检查端点处理器
//
// - /health: 完整健康报告
// - /health/live: 存活检查（进程是否响应）
// - /health/ready: 就绪检查（作用域管理器已初始化且未停机）
type HealthHandler struct {
	logger    *zap.Logger
	startTime time.Time
	manager   *scopecore.Manager
	store     *session.Store
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger, manager *scopecore.Manager, store *session.Store) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		startTime: time.Now(),
		manager:   manager,
		store:     store,
	}
}

// RegisterRoutes 注册健康检查路由
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.GetHealth)
	r.GET("/health/live", h.GetLiveness)
	r.GET("/health/ready", h.GetReadiness)
}

// GetHealth GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ready := h.manager.IsRunning()
	resp := types.HealthResponse{
		Status:    "healthy",
		Liveness:  "alive",
		Readiness: "ready",
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Components: map[string]interface{}{
			"scope": map[string]interface{}{
				"running":               ready,
				"registeredSessions":    h.manager.Registry().Len(),
				"conversationSupported": h.manager.SupportsConversation(),
			},
			"sessions": map[string]interface{}{
				"live": h.store.Len(),
			},
		},
	}
	status := http.StatusOK
	if !ready {
		resp.Status = "unhealthy"
		resp.Readiness = "not_ready"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// GetLiveness GET /health/live
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// GetReadiness GET /health/ready
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	if !h.manager.IsRunning() {
		h.logger.Debug("readiness probe failed: scope manager not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
