package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	scopecore "github.com/weisyn/scoped/internal/core/scope"
	"github.com/weisyn/scoped/pkg/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile_YAML(t *testing.T) {
	path := writeFile(t, "scoped.yaml", `
environment: dev
scope:
  conversation_token_name: conv
  conversation_timeout: 10m
api:
  port: 9090
  conversation_guard: true
`)
	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Scope)
	assert.Equal(t, "dev", *cfg.Environment)
	assert.Equal(t, "conv", *cfg.Scope.ConversationTokenName)
	assert.Equal(t, "10m", *cfg.Scope.ConversationTimeout)
	assert.Equal(t, 9090, *cfg.API.Port)
	assert.True(t, *cfg.API.ConversationGuard)
}

func TestLoadConfigFile_JSONRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "scoped.json", `{"scope":{"conversation_token_name":"cid"}}`)
	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cid", *cfg.Scope.ConversationTokenName)

	path = writeFile(t, "bad.json", `{"scope":{"no_such_field":1}}`)
	_, err = LoadConfigFile(path)
	assert.Error(t, err)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadAppConfig_Precedence(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := loadAppConfig(newOptions())
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = loadAppConfig(newOptions(WithEmbeddedConfig([]byte(`{"app_name": "embedded"}`))))
	require.NoError(t, err)
	assert.Equal(t, "embedded", *cfg.AppName)

	fromFile := writeFile(t, "scoped.yaml", "app_name: file\n")
	cfg, err = loadAppConfig(newOptions(WithConfigFile(fromFile)))
	require.NoError(t, err)
	assert.Equal(t, "file", *cfg.AppName)

	fromEnv := writeFile(t, "env.yaml", "app_name: env\n")
	t.Setenv(EnvConfigPath, fromEnv)
	cfg, err = loadAppConfig(newOptions(WithConfigFile(fromFile)))
	require.NoError(t, err)
	assert.Equal(t, "env", *cfg.AppName)
}

func TestEnsureLogDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")
	logPath := filepath.Join(dir, "scoped.log")
	require.NoError(t, ensureLogDirectory(&types.AppConfig{Log: &types.UserLogConfig{FilePath: &logPath}}))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBootstrapApp_WithoutAPI(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	var manager *scopecore.Manager
	application, err := BootstrapApp(
		[]fx.Option{fx.Populate(&manager)},
		WithoutAPI(),
		WithScope(&types.UserScopeConfig{ConversationReaperInterval: types.StringPtr("0s")}),
	)
	require.NoError(t, err)
	require.NotNil(t, manager)
	assert.True(t, manager.IsRunning())

	require.NoError(t, application.Stop())
	assert.False(t, manager.IsRunning())
}
