// Package event 事件总线配置
package event

import "github.com/weisyn/scoped/pkg/types"

// EventOptions 事件系统配置选项
type EventOptions struct {
	Enabled bool `json:"enabled"` // 关闭时发布与订阅均静默成功

	// AsyncDelivery 生命周期通知是否以异步订阅方式投递
	AsyncDelivery bool `json:"async_delivery"`

	// TopicPrefix 作用域生命周期主题前缀，完整主题为 <prefix>:<kind>:<phase>
	TopicPrefix string `json:"topic_prefix"`
}

// Config 事件配置实现
type Config struct {
	options *EventOptions
}

// New 创建事件配置，userConfig 为 *types.UserEventConfig 或 nil
func New(userConfig interface{}) *Config {
	options := &EventOptions{
		Enabled:       defaultEnabled,
		AsyncDelivery: defaultAsyncDelivery,
		TopicPrefix:   defaultTopicPrefix,
	}

	if uc, ok := userConfig.(*types.UserEventConfig); ok && uc != nil {
		if uc.Enabled != nil {
			options.Enabled = *uc.Enabled
		}
		if uc.AsyncDelivery != nil {
			options.AsyncDelivery = *uc.AsyncDelivery
		}
	}

	return &Config{options: options}
}

// NewFromOptions 包装已合并的选项
func NewFromOptions(options *EventOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}

// GetOptions 获取完整选项
func (c *Config) GetOptions() *EventOptions {
	return c.options
}

// IsEnabled 事件系统是否启用
func (c *Config) IsEnabled() bool {
	return c.options.Enabled
}

// IsAsyncDelivery 是否异步投递
func (c *Config) IsAsyncDelivery() bool {
	return c.options.AsyncDelivery
}

// GetTopicPrefix 主题前缀
func (c *Config) GetTopicPrefix() string {
	return c.options.TopicPrefix
}
