// Package types 定义面向用户的配置结构。
package types

// AppConfig 应用程序根配置
//
// 只描述配置文件（JSON / YAML）中可能出现的字段，全部使用指针：
// nil 表示“未配置”，由 internal/config/*/defaults.go 提供默认值。
type AppConfig struct {
	AppName     *string `json:"app_name,omitempty" yaml:"app_name,omitempty"`
	Environment *string `json:"environment,omitempty" yaml:"environment,omitempty"` // dev | test | prod

	Log   *UserLogConfig   `json:"log,omitempty" yaml:"log,omitempty"`
	Event *UserEventConfig `json:"event,omitempty" yaml:"event,omitempty"`
	Scope *UserScopeConfig `json:"scope,omitempty" yaml:"scope,omitempty"`
	API   *UserAPIConfig   `json:"api,omitempty" yaml:"api,omitempty"`
}

// UserLogConfig 用户日志配置
type UserLogConfig struct {
	Level     *string `json:"level,omitempty" yaml:"level,omitempty"`
	FilePath  *string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	ToConsole *bool   `json:"to_console,omitempty" yaml:"to_console,omitempty"`
}

// UserEventConfig 用户事件配置
type UserEventConfig struct {
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// AsyncDelivery 为 true 时生命周期通知异步投递给订阅者
	AsyncDelivery *bool `json:"async_delivery,omitempty" yaml:"async_delivery,omitempty"`
}

// UserScopeConfig 用户作用域配置
type UserScopeConfig struct {
	// ConversationUseGetParameter 从请求参数而不是原始查询串读取会话令牌
	ConversationUseGetParameter *bool   `json:"conversation_http_use_get_parameter,omitempty" yaml:"conversation_http_use_get_parameter,omitempty"`
	ConversationTokenName       *string `json:"conversation_token_name,omitempty" yaml:"conversation_token_name,omitempty"`
	AutoConversationCheck       *bool   `json:"auto_conversation_check,omitempty" yaml:"auto_conversation_check,omitempty"`
	SupportsConversation        *bool   `json:"supports_conversation,omitempty" yaml:"supports_conversation,omitempty"`

	// SessionContextType 会话上下文实现名称，空串使用默认实现
	SessionContextType    *string `json:"session_context_type,omitempty" yaml:"session_context_type,omitempty"`
	SessionRegistryShards *int    `json:"session_registry_shards,omitempty" yaml:"session_registry_shards,omitempty"`

	// 时长字段使用 Go duration 字符串，如 "30m"
	ConversationTimeout        *string `json:"conversation_timeout,omitempty" yaml:"conversation_timeout,omitempty"`
	ConversationReaperInterval *string `json:"conversation_reaper_interval,omitempty" yaml:"conversation_reaper_interval,omitempty"`
	EnableMetrics              *bool   `json:"enable_metrics,omitempty" yaml:"enable_metrics,omitempty"`
}

// UserAPIConfig 用户HTTP接入配置
type UserAPIConfig struct {
	Host *string `json:"host,omitempty" yaml:"host,omitempty"`
	Port *int    `json:"port,omitempty" yaml:"port,omitempty"`

	SessionCookieName  *string `json:"session_cookie_name,omitempty" yaml:"session_cookie_name,omitempty"`
	SessionMaxInactive *string `json:"session_max_inactive,omitempty" yaml:"session_max_inactive,omitempty"`
	ConversationGuard  *bool   `json:"conversation_guard,omitempty" yaml:"conversation_guard,omitempty"`
}
