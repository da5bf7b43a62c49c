// Package api HTTP 接入配置
package api

import (
	"fmt"
	"time"

	"github.com/weisyn/scoped/pkg/types"
)

// APIOptions HTTP 接入配置选项
type APIOptions struct {
	HTTP    HTTPConfig    `json:"http"`
	Session SessionConfig `json:"session"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// ConversationGuard 在处理器之前执行长会话状态检查（忙 → 409，缺失 → 410）
	ConversationGuard bool `json:"conversation_guard"`
}

// SessionConfig HTTP 会话配置
type SessionConfig struct {
	CookieName  string        `json:"cookie_name"`
	MaxInactive time.Duration `json:"max_inactive"` // 空闲超时后会话被失效
	Shards      int           `json:"shards"`       // bigcache 分片数，须为 2 的幂
}

// Config API 配置实现
type Config struct {
	options *APIOptions
}

// New 创建 API 配置，userConfig 为 *types.UserAPIConfig 或 nil
func New(userConfig interface{}) *Config {
	options := &APIOptions{
		HTTP: HTTPConfig{
			Host:              defaultHTTPHost,
			Port:              defaultHTTPPort,
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
			ConversationGuard: defaultConversationGuard,
		},
		Session: SessionConfig{
			CookieName:  defaultSessionCookieName,
			MaxInactive: defaultSessionMaxInactive,
			Shards:      defaultSessionShards,
		},
	}

	if uc, ok := userConfig.(*types.UserAPIConfig); ok && uc != nil {
		if uc.Host != nil {
			options.HTTP.Host = *uc.Host
		}
		if uc.Port != nil && *uc.Port > 0 {
			options.HTTP.Port = *uc.Port
		}
		if uc.ConversationGuard != nil {
			options.HTTP.ConversationGuard = *uc.ConversationGuard
		}
		if uc.SessionCookieName != nil && *uc.SessionCookieName != "" {
			options.Session.CookieName = *uc.SessionCookieName
		}
		if uc.SessionMaxInactive != nil {
			if d, err := time.ParseDuration(*uc.SessionMaxInactive); err == nil && d > 0 {
				options.Session.MaxInactive = d
			}
		}
	}

	return &Config{options: options}
}

// NewFromOptions 包装已合并的选项
func NewFromOptions(options *APIOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}

// GetOptions 获取完整选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}

// GetListenAddress host:port
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.options.HTTP.Host, c.options.HTTP.Port)
}

// GetHTTP HTTP 服务配置
func (c *Config) GetHTTP() HTTPConfig {
	return c.options.HTTP
}

// GetSession 会话配置
func (c *Config) GetSession() SessionConfig {
	return c.options.Session
}
