// Package config 提供应用配置管理功能
package config

import (
	"github.com/weisyn/scoped/internal/config/api"
	"github.com/weisyn/scoped/internal/config/event"
	"github.com/weisyn/scoped/internal/config/log"
	"github.com/weisyn/scoped/internal/config/scope"
	"github.com/weisyn/scoped/pkg/interfaces/config"
	"github.com/weisyn/scoped/pkg/types"
)

const (
	defaultAppName     = "scoped"
	defaultEnvironment = "prod"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者，appConfig 可以为 nil
func NewProvider(appConfig *types.AppConfig) config.Provider {
	return &Provider{appConfig: appConfig}
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	var user *types.UserLogConfig
	if p.appConfig != nil {
		user = p.appConfig.Log
	}
	options := log.New(user).GetOptions()

	// 开发环境默认打开 debug，显式配置的级别优先
	if p.GetEnvironment() == "dev" && (user == nil || user.Level == nil) {
		options.Level = string(types.DebugLevel)
	}
	return options
}

// GetEvent 获取事件配置
func (p *Provider) GetEvent() *event.EventOptions {
	var user *types.UserEventConfig
	if p.appConfig != nil {
		user = p.appConfig.Event
	}
	return event.New(user).GetOptions()
}

// GetScope 获取作用域配置
func (p *Provider) GetScope() *scope.ScopeOptions {
	var user *types.UserScopeConfig
	if p.appConfig != nil {
		user = p.appConfig.Scope
	}
	return scope.New(user).GetOptions()
}

// GetAPI 获取 HTTP 接入配置
func (p *Provider) GetAPI() *api.APIOptions {
	var user *types.UserAPIConfig
	if p.appConfig != nil {
		user = p.appConfig.API
	}
	return api.New(user).GetOptions()
}

// GetEnvironment 获取运行环境
func (p *Provider) GetEnvironment() string {
	if p.appConfig == nil || p.appConfig.Environment == nil {
		return defaultEnvironment
	}
	switch env := *p.appConfig.Environment; env {
	case "dev", "test", "prod":
		return env
	default:
		return defaultEnvironment
	}
}

// GetAppName 获取应用名称
func (p *Provider) GetAppName() string {
	if p.appConfig == nil || p.appConfig.AppName == nil || *p.appConfig.AppName == "" {
		return defaultAppName
	}
	return *p.appConfig.AppName
}
