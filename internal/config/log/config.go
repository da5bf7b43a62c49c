// Package log 日志配置
package log

import (
	configtypes "github.com/weisyn/scoped/pkg/types"
	"go.uber.org/zap/zapcore"
)

// LogOptions 日志配置选项
type LogOptions struct {
	Level     string `json:"level"`      // debug, info, warn, error, fatal
	ToConsole bool   `json:"to_console"` // 是否输出到控制台
	FilePath  string `json:"file_path"`  // 为空时不写文件

	// 文件轮转（lumberjack）
	MaxSize    int  `json:"max_size"`    // MB
	MaxBackups int  `json:"max_backups"` // 份
	MaxAge     int  `json:"max_age"`     // 天
	Compress   bool `json:"compress"`

	EnableCaller     bool `json:"enable_caller"`
	EnableStacktrace bool `json:"enable_stacktrace"` // Error 级别及以上附带堆栈

	LevelMap map[string]zapcore.Level `json:"-"`
}

// Config 日志配置实现
type Config struct {
	options *LogOptions
}

// New 创建日志配置，userConfig 为 *types.UserLogConfig 或 nil
func New(userConfig interface{}) *Config {
	options := createDefaultLogOptions()
	if userConfig != nil {
		applyUserLogConfig(options, userConfig)
	}
	return &Config{options: options}
}

// NewFromOptions 直接包装已经合并好的选项
func NewFromOptions(options *LogOptions) *Config {
	if options == nil {
		return New(nil)
	}
	if options.LevelMap == nil {
		options.LevelMap = defaultLevelMap
	}
	return &Config{options: options}
}

func createDefaultLogOptions() *LogOptions {
	return &LogOptions{
		Level:            defaultLogLevel,
		ToConsole:        defaultToConsole,
		FilePath:         defaultFilePath,
		MaxSize:          defaultMaxSize,
		MaxBackups:       defaultMaxBackups,
		MaxAge:           defaultMaxAge,
		Compress:         defaultCompress,
		EnableCaller:     defaultEnableCaller,
		EnableStacktrace: defaultEnableStacktrace,
		LevelMap:         defaultLevelMap,
	}
}

func applyUserLogConfig(options *LogOptions, userConfig interface{}) {
	logConfig, ok := userConfig.(*configtypes.UserLogConfig)
	if !ok || logConfig == nil {
		return
	}
	if logConfig.Level != nil && configtypes.LogLevel(*logConfig.Level).IsValid() {
		options.Level = *logConfig.Level
	}
	if logConfig.FilePath != nil {
		options.FilePath = *logConfig.FilePath
		// 指定文件路径时默认关闭控制台输出，除非显式打开
		options.ToConsole = false
	}
	if logConfig.ToConsole != nil {
		options.ToConsole = *logConfig.ToConsole
	}
}

// GetOptions 获取完整选项
func (c *Config) GetOptions() *LogOptions {
	return c.options
}

// GetLevel 日志级别字符串
func (c *Config) GetLevel() string {
	return c.options.Level
}

// GetZapLevel 对应的 zap 级别，未知级别回落到 Info
func (c *Config) GetZapLevel() zapcore.Level {
	if level, exists := c.options.LevelMap[c.options.Level]; exists {
		return level
	}
	return zapcore.InfoLevel
}

func (c *Config) IsConsoleEnabled() bool     { return c.options.ToConsole }
func (c *Config) GetFilePath() string        { return c.options.FilePath }
func (c *Config) GetMaxSize() int            { return c.options.MaxSize }
func (c *Config) GetMaxBackups() int         { return c.options.MaxBackups }
func (c *Config) GetMaxAge() int             { return c.options.MaxAge }
func (c *Config) IsCompressionEnabled() bool { return c.options.Compress }
func (c *Config) IsCallerEnabled() bool      { return c.options.EnableCaller }
func (c *Config) IsStacktraceEnabled() bool  { return c.options.EnableStacktrace }

// CreateFileEncoder 文件输出使用 JSON 编码
func (c *Config) CreateFileEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(c.encoderConfig(zapcore.ISO8601TimeEncoder, zapcore.LowercaseLevelEncoder))
}

// CreateConsoleEncoder 控制台输出使用带颜色的文本编码
func (c *Config) CreateConsoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(c.encoderConfig(zapcore.TimeEncoderOfLayout("15:04:05.000"), zapcore.CapitalColorLevelEncoder))
}

func (c *Config) encoderConfig(timeEnc zapcore.TimeEncoder, levelEnc zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     timeEnc,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    levelEnc,
	}
}
