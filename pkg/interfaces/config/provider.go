package config

import (
	apiconfig "github.com/weisyn/scoped/internal/config/api"
	eventconfig "github.com/weisyn/scoped/internal/config/event"
	logconfig "github.com/weisyn/scoped/internal/config/log"
	scopeconfig "github.com/weisyn/scoped/internal/config/scope"
)

// Provider 配置提供者
//
// 每个 Get 方法返回已合并默认值的完整选项。
type Provider interface {
	GetLog() *logconfig.LogOptions
	GetEvent() *eventconfig.EventOptions
	GetScope() *scopeconfig.ScopeOptions
	GetAPI() *apiconfig.APIOptions

	// GetEnvironment 运行环境：dev | test | prod，未配置或非法值时为 prod
	GetEnvironment() string

	// GetAppName 应用名称
	GetAppName() string
}
