// Package config 定义配置访问接口。
package config

import "github.com/weisyn/scoped/pkg/types"

// AppOptions 应用配置来源
type AppOptions interface {
	// GetAppConfig 获取用户配置，可能为 nil
	GetAppConfig() *types.AppConfig
}
