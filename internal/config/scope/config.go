// Package scope 作用域生命周期配置
//
// 对应配置文件中的 scope 段。除 AutoConversationCheck 外，所有选项在
// 管理器创建后只读；AutoConversationCheck 只作为初始值，运行期由
// Manager.SetAutoConversationCheck 修改。
package scope

import (
	"time"

	"github.com/weisyn/scoped/pkg/types"
)

// ScopeOptions 作用域配置选项
type ScopeOptions struct {
	// === 长会话（conversation）传播 ===
	ConversationUseGetParameter bool          `json:"conversation_http_use_get_parameter"` // 令牌来源：参数 / 原始查询串
	ConversationTokenName       string        `json:"conversation_token_name"`             // 令牌名，默认 cid
	AutoConversationCheck       bool          `json:"auto_conversation_check"`             // 请求开始时自动关联
	SupportsConversation        bool          `json:"supports_conversation"`               // 关闭后 Conversation 作用域不受支持
	ConversationTimeout         time.Duration `json:"conversation_timeout"`                // 长会话空闲超时
	ConversationReaperInterval  time.Duration `json:"conversation_reaper_interval"`        // 过期清理周期，0 关闭

	// === 会话上下文 ===
	SessionContextType    string `json:"session_context_type"`    // 空串使用默认实现
	SessionRegistryShards int    `json:"session_registry_shards"` // 2 的幂，非 2 的幂向上取整

	EnableMetrics bool `json:"enable_metrics"`
}

// Config 作用域配置实现
type Config struct {
	options *ScopeOptions
}

// New 创建作用域配置，userConfig 为 *types.UserScopeConfig 或 nil
func New(userConfig interface{}) *Config {
	options := createDefaultScopeOptions()
	if uc, ok := userConfig.(*types.UserScopeConfig); ok && uc != nil {
		applyUserScopeConfig(options, uc)
	}
	return &Config{options: options}
}

// NewFromOptions 包装已合并的选项
func NewFromOptions(options *ScopeOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}

func createDefaultScopeOptions() *ScopeOptions {
	return &ScopeOptions{
		ConversationUseGetParameter: defaultUseGetParameter,
		ConversationTokenName:       defaultConversationTokenName,
		AutoConversationCheck:       defaultAutoConversationCheck,
		SupportsConversation:        defaultSupportsConversation,
		ConversationTimeout:         defaultConversationTimeout,
		ConversationReaperInterval:  defaultReaperInterval,
		SessionContextType:          defaultSessionContextType,
		SessionRegistryShards:       defaultRegistryShards,
		EnableMetrics:               defaultEnableMetrics,
	}
}

func applyUserScopeConfig(options *ScopeOptions, uc *types.UserScopeConfig) {
	if uc.ConversationUseGetParameter != nil {
		options.ConversationUseGetParameter = *uc.ConversationUseGetParameter
	}
	if uc.ConversationTokenName != nil && *uc.ConversationTokenName != "" {
		options.ConversationTokenName = *uc.ConversationTokenName
	}
	if uc.AutoConversationCheck != nil {
		options.AutoConversationCheck = *uc.AutoConversationCheck
	}
	if uc.SupportsConversation != nil {
		options.SupportsConversation = *uc.SupportsConversation
	}
	if uc.SessionContextType != nil {
		options.SessionContextType = *uc.SessionContextType
	}
	if uc.SessionRegistryShards != nil && *uc.SessionRegistryShards > 0 {
		options.SessionRegistryShards = *uc.SessionRegistryShards
	}
	if d, ok := parseDuration(uc.ConversationTimeout); ok && d > 0 {
		options.ConversationTimeout = d
	}
	if d, ok := parseDuration(uc.ConversationReaperInterval); ok && d >= 0 {
		options.ConversationReaperInterval = d
	}
	if uc.EnableMetrics != nil {
		options.EnableMetrics = *uc.EnableMetrics
	}
}

// parseDuration 非法值按未配置处理
func parseDuration(s *string) (time.Duration, bool) {
	if s == nil || *s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, false
	}
	return d, true
}

// GetOptions 获取完整选项
func (c *Config) GetOptions() *ScopeOptions {
	return c.options
}

// UseGetParameter 是否从请求参数读取会话令牌
func (c *Config) UseGetParameter() bool {
	return c.options.ConversationUseGetParameter
}

// GetConversationTokenName 会话令牌名
func (c *Config) GetConversationTokenName() string {
	return c.options.ConversationTokenName
}

// IsAutoConversationCheck 初始自动关联开关
func (c *Config) IsAutoConversationCheck() bool {
	return c.options.AutoConversationCheck
}

// SupportsConversation 是否支持 Conversation 作用域
func (c *Config) SupportsConversation() bool {
	return c.options.SupportsConversation
}

// GetConversationTimeout 长会话超时
func (c *Config) GetConversationTimeout() time.Duration {
	return c.options.ConversationTimeout
}

// GetReaperInterval 过期清理周期
func (c *Config) GetReaperInterval() time.Duration {
	return c.options.ConversationReaperInterval
}

// GetSessionContextType 会话上下文实现名称
func (c *Config) GetSessionContextType() string {
	return c.options.SessionContextType
}

// GetRegistryShards 会话注册表分片数
func (c *Config) GetRegistryShards() int {
	return c.options.SessionRegistryShards
}

// IsMetricsEnabled 是否注册 Prometheus 指标
func (c *Config) IsMetricsEnabled() bool {
	return c.options.EnableMetrics
}
