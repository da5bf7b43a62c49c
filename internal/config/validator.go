package config

import (
	"fmt"
	"time"

	"github.com/weisyn/scoped/pkg/types"
)

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置验证失败 [%s]: %s", e.Field, e.Message)
}

// ValidateAppConfig 启动前校验用户配置
//
// 只拒绝会让组件行为不确定的值；未出现的字段一律由默认值补齐。
func ValidateAppConfig(cfg *types.AppConfig) error {
	if cfg == nil {
		return nil
	}

	if cfg.Log != nil && cfg.Log.Level != nil && !types.LogLevel(*cfg.Log.Level).IsValid() {
		return &ValidationError{Field: "log.level", Message: fmt.Sprintf("未知日志级别 %q", *cfg.Log.Level)}
	}

	if sc := cfg.Scope; sc != nil {
		if sc.SessionRegistryShards != nil && *sc.SessionRegistryShards <= 0 {
			return &ValidationError{Field: "scope.session_registry_shards", Message: "必须为正数"}
		}
		if err := validateDuration("scope.conversation_timeout", sc.ConversationTimeout, false); err != nil {
			return err
		}
		if err := validateDuration("scope.conversation_reaper_interval", sc.ConversationReaperInterval, true); err != nil {
			return err
		}
	}

	if ac := cfg.API; ac != nil {
		if ac.Port != nil && (*ac.Port <= 0 || *ac.Port > 65535) {
			return &ValidationError{Field: "api.port", Message: fmt.Sprintf("端口超出范围: %d", *ac.Port)}
		}
		if err := validateDuration("api.session_max_inactive", ac.SessionMaxInactive, false); err != nil {
			return err
		}
	}

	return nil
}

func validateDuration(field string, value *string, allowZero bool) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	if d < 0 || (d == 0 && !allowZero) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("非法时长 %s", *value)}
	}
	return nil
}
