// Package clock 定义时间源接口。
package clock

import "time"

// Clock 统一时间源
//
// 会话超时与长会话（conversation）过期判断都经由此接口取时间，
// 测试中可替换为可手动推进的实现。
type Clock interface {
	// Now 当前时间
	Now() time.Time

	// Since 自 t 起经过的时长
	Since(t time.Time) time.Duration
}
