package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scoped/pkg/types"
)

func TestGetEnvironment(t *testing.T) {
	t.Run("显式配置 dev", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{Environment: types.StringPtr("dev")})
		assert.Equal(t, "dev", provider.GetEnvironment())
	})

	t.Run("未配置时默认为 prod", func(t *testing.T) {
		assert.Equal(t, "prod", NewProvider(nil).GetEnvironment())
		assert.Equal(t, "prod", NewProvider(&types.AppConfig{}).GetEnvironment())
	})

	t.Run("无效值默认为 prod", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{Environment: types.StringPtr("staging")})
		assert.Equal(t, "prod", provider.GetEnvironment())
	})
}

func TestGetLog_DevEnvironmentDefaultsToDebug(t *testing.T) {
	provider := NewProvider(&types.AppConfig{Environment: types.StringPtr("dev")})
	assert.Equal(t, "debug", provider.GetLog().Level)

	explicit := NewProvider(&types.AppConfig{
		Environment: types.StringPtr("dev"),
		Log:         &types.UserLogConfig{Level: types.StringPtr("warn")},
	})
	assert.Equal(t, "warn", explicit.GetLog().Level)
}

func TestGetScope_Defaults(t *testing.T) {
	options := NewProvider(nil).GetScope()

	assert.False(t, options.ConversationUseGetParameter)
	assert.True(t, options.AutoConversationCheck)
	assert.True(t, options.SupportsConversation)
	assert.Equal(t, "cid", options.ConversationTokenName)
	assert.Equal(t, 30*time.Minute, options.ConversationTimeout)
	assert.Equal(t, "", options.SessionContextType)
	assert.Equal(t, 16, options.SessionRegistryShards)
}

func TestGetScope_UserOverrides(t *testing.T) {
	provider := NewProvider(&types.AppConfig{
		Scope: &types.UserScopeConfig{
			ConversationUseGetParameter: types.BoolPtr(true),
			AutoConversationCheck:       types.BoolPtr(false),
			SessionContextType:          types.StringPtr("bare"),
			ConversationTimeout:         types.StringPtr("5m"),
			ConversationReaperInterval:  types.StringPtr("not-a-duration"),
		},
	})
	options := provider.GetScope()

	assert.True(t, options.ConversationUseGetParameter)
	assert.False(t, options.AutoConversationCheck)
	assert.Equal(t, "bare", options.SessionContextType)
	assert.Equal(t, 5*time.Minute, options.ConversationTimeout)
	assert.Equal(t, time.Minute, options.ConversationReaperInterval, "非法时长应回落到默认值")
}

func TestGetAPI_UserOverrides(t *testing.T) {
	provider := NewProvider(&types.AppConfig{
		API: &types.UserAPIConfig{
			Port:               types.IntPtr(9090),
			SessionMaxInactive: types.StringPtr("90s"),
		},
	})
	options := provider.GetAPI()

	assert.Equal(t, 9090, options.HTTP.Port)
	assert.Equal(t, 90*time.Second, options.Session.MaxInactive)
	assert.Equal(t, "SCOPEDSESSIONID", options.Session.CookieName)
}

func TestValidateAppConfig(t *testing.T) {
	require.NoError(t, ValidateAppConfig(nil))
	require.NoError(t, ValidateAppConfig(&types.AppConfig{}))

	err := ValidateAppConfig(&types.AppConfig{Log: &types.UserLogConfig{Level: types.StringPtr("loud")}})
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "log.level", vErr.Field)

	err = ValidateAppConfig(&types.AppConfig{Scope: &types.UserScopeConfig{ConversationTimeout: types.StringPtr("0s")}})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "scope.conversation_timeout", vErr.Field)

	require.NoError(t, ValidateAppConfig(&types.AppConfig{
		Scope: &types.UserScopeConfig{ConversationReaperInterval: types.StringPtr("0s")},
	}), "清理周期为 0 表示关闭")

	err = ValidateAppConfig(&types.AppConfig{API: &types.UserAPIConfig{Port: types.IntPtr(70000)}})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "api.port", vErr.Field)
}
