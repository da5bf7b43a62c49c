// Package log 定义作用域管理器使用的日志接口。
//
// 所有组件只依赖本接口；具体实现位于 internal/core/infrastructure/log，
// 基于 zap，并按 module 字段做子日志器派生。
package log

import "go.uber.org/zap"

// Logger 日志记录器
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})

	Info(msg string)
	Infof(format string, args ...interface{})

	Warn(msg string)
	Warnf(format string, args ...interface{})

	Error(msg string)
	Errorf(format string, args ...interface{})

	// Fatal 记录后退出进程，仅供 cmd 层使用
	Fatal(msg string)
	Fatalf(format string, args ...interface{})

	// With 派生带附加键值对的子日志器，参数按 key, value 成对给出
	With(args ...interface{}) Logger

	// Sync 刷新缓冲区
	Sync() error

	// GetZapLogger 暴露底层 zap 日志器，供需要原生字段 API 的调用方使用
	GetZapLogger() *zap.Logger
}
