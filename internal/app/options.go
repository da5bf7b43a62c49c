package app

import (
	"github.com/weisyn/scoped/pkg/interfaces/config"
	"github.com/weisyn/scoped/pkg/types"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项，实现 config.AppOptions
type options struct {
	// 配置文件路径（.json / .yaml / .yml）
	configFilePath string

	// 嵌入的配置内容（优先级高于configFilePath），按 YAML 解析（JSON 是其子集）
	embeddedConfig []byte

	appConfig *types.AppConfig

	// API支持开关 (默认启用)
	enableAPI bool
}

var _ config.AppOptions = (*options)(nil)

// WithConfigFile 设置配置文件路径
func WithConfigFile(configPath string) Option {
	return func(o *options) {
		o.configFilePath = configPath
	}
}

// WithEmbeddedConfig 设置嵌入的配置内容（优先级高于WithConfigFile）
func WithEmbeddedConfig(configBytes []byte) Option {
	return func(o *options) {
		o.embeddedConfig = configBytes
	}
}

// WithAppConfig 直接使用已构造的配置，跳过文件加载
func WithAppConfig(appConfig *types.AppConfig) Option {
	return func(o *options) {
		o.appConfig = appConfig
	}
}

// WithScope 覆盖作用域配置
func WithScope(scope *types.UserScopeConfig) Option {
	return func(o *options) {
		if o.appConfig == nil {
			o.appConfig = &types.AppConfig{}
		}
		o.appConfig.Scope = scope
	}
}

// WithAPI 启用API模块
func WithAPI() Option {
	return func(o *options) {
		o.enableAPI = true
	}
}

// WithoutAPI 禁用API模块，只运行作用域管理器
func WithoutAPI() Option {
	return func(o *options) {
		o.enableAPI = false
	}
}

func newOptions(opts ...Option) *options {
	o := &options{enableAPI: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetAppConfig 实现 config.AppOptions
func (o *options) GetAppConfig() *types.AppConfig {
	return o.appConfig
}
