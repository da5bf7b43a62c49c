// Package api 对外接入层
package api

import (
	"go.uber.org/fx"

	"github.com/weisyn/scoped/internal/api/http"
)

// Module 返回API模块
//
// fx.Invoke 保证服务器被构造，从而注册启动与停止钩子。
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),
		fx.Invoke(func(*http.Server) {}),
	)
}
