// Package testutil 作用域生命周期测试辅助工具
//
// 只依赖 pkg/interfaces，可被 internal/core/scope 的包内测试与 HTTP 层测试共同引用。
package testutil

import (
	"time"

	scopeconfig "github.com/weisyn/scoped/internal/config/scope"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
)

// NewTestLogger 创建测试用的 Logger
func NewTestLogger() log.Logger {
	return &MockLogger{}
}

// NewTestBehavioralLogger 创建记录调用的 Logger
func NewTestBehavioralLogger() *BehavioralMockLogger {
	return &BehavioralMockLogger{logs: make([]string, 0)}
}

// NewTestScopeConfig 默认作用域配置，mutate 可就地修改选项
func NewTestScopeConfig(mutate func(o *scopeconfig.ScopeOptions)) *scopeconfig.Config {
	options := scopeconfig.New(nil).GetOptions()
	options.ConversationTimeout = time.Minute
	options.ConversationReaperInterval = 0
	if mutate != nil {
		mutate(options)
	}
	return scopeconfig.NewFromOptions(options)
}
