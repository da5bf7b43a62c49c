package types

// LogLevel 日志级别
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// IsValid 是否为可识别的级别
func (l LogLevel) IsValid() bool {
	switch l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel:
		return true
	}
	return false
}
