package http

import (
	"context"

	"go.uber.org/fx"

	"github.com/weisyn/scoped/internal/api/http/session"
	apiconfig "github.com/weisyn/scoped/internal/config/api"
	logmod "github.com/weisyn/scoped/internal/core/infrastructure/log"
	scopecore "github.com/weisyn/scoped/internal/core/scope"
	"github.com/weisyn/scoped/pkg/interfaces/config"
	infraClock "github.com/weisyn/scoped/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// Module HTTP 模块：会话存储与服务器
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(
			ProvideSessionStore,
			NewServer,
		),
	)
}

// SessionStoreParams 会话存储依赖
type SessionStoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider
	Clock     infraClock.Clock
	Logger    log.Logger
	Manager   *scopecore.Manager
}

// ProvideSessionStore 创建会话存储并接到作用域管理器
func ProvideSessionStore(p SessionStoreParams) (*session.Store, error) {
	cfg := apiconfig.NewFromOptions(p.Provider.GetAPI())
	store, err := session.NewStore(cfg.GetSession(), p.Clock, logmod.NewModuleLogger(p.Logger, "session"))
	if err != nil {
		return nil, err
	}
	WireSessionStore(store, p.Manager)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// WireSessionStore 会话失效时结束 Session 作用域，标识轮换时迁移登记
//
// 请求内的失效已由 Scope 中间件先行结束作用域，此处的调用成为空操作；
// 空闲过期与停机失效走这里，在独立执行单元上同步销毁。
func WireSessionStore(store *session.Store, manager *scopecore.Manager) {
	store.OnInvalidate(func(s *session.Session) {
		u := scopecore.NewUnit()
		defer u.Release()
		manager.End(u, scope.SessionScoped, s)
	})
	store.OnIDChange(func(oldID, newID string) {
		manager.UpdateSessionIDMapping(oldID, newID)
	})
}
