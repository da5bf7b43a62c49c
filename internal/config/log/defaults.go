package log

import "go.uber.org/zap/zapcore"

// 日志默认值
const (
	defaultLogLevel  = "info"
	defaultToConsole = true

	// 默认只输出到控制台；配置 file_path 后启用 lumberjack 轮转文件
	defaultFilePath = ""

	defaultMaxSize    = 100
	defaultMaxBackups = 10
	defaultMaxAge     = 30
	defaultCompress   = true

	defaultEnableCaller     = true
	defaultEnableStacktrace = true
)

var defaultLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"panic": zapcore.PanicLevel,
	"fatal": zapcore.FatalLevel,
}
