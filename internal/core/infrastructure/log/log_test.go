package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logconfig "github.com/weisyn/scoped/internal/config/log"
	"github.com/weisyn/scoped/pkg/types"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	logger := NewWithCore(core, logconfig.New(nil)).(*Logger)
	return logger, logs
}

func TestLogger_LevelsAndFormatting(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)

	logger.Debug("不应输出")
	logger.Info("会话已创建")
	logger.Warnf("不支持的作用域: %s", "custom")
	logger.Errorf("延迟动作失败: %d", 3)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "会话已创建", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "不支持的作用域: custom", entries[1].Message)
	assert.Equal(t, "延迟动作失败: 3", entries[2].Message)
}

func TestLogger_WithAddsStructuredFields(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	child := logger.With("module", "scope", "shards", 16)
	child.Info("注册表就绪")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "scope", fields["module"])
	assert.EqualValues(t, 16, fields["shards"])
}

func TestLogger_WithOddArgsDropsDanglingKey(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)

	logger.With("module", "api", "dangling").Info("x")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "api", fields["module"])
	_, exists := fields["dangling"]
	assert.False(t, exists)
}

func TestNewModuleLogger(t *testing.T) {
	assert.Nil(t, NewModuleLogger(nil, "scope"))

	logger, logs := newObservedLogger(zapcore.InfoLevel)
	NewModuleLogger(logger, "session").Info("ok")
	assert.Equal(t, "session", logs.All()[0].ContextMap()["module"])
}

func TestNew_WritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "scoped.log")

	cfg := logconfig.New(&types.UserLogConfig{FilePath: types.StringPtr(path)})
	require.False(t, cfg.IsConsoleEnabled(), "指定文件路径时默认关闭控制台")

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("写入文件")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "写入文件")
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	logger, logs := newObservedLogger(zapcore.InfoLevel)
	SetLogger(logger)
	SetLogger(nil)

	GetLogger().Info("全局")
	GetLogger().With("k", "v").Info("派生")

	require.Len(t, logs.All(), 2)
	assert.Equal(t, "v", logs.All()[1].ContextMap()["k"])
}
