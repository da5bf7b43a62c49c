// Package clock 时间源实现
package clock

import (
	"time"

	infraClock "github.com/weisyn/scoped/pkg/interfaces/infrastructure/clock"
)

// SystemClock 系统时钟
type SystemClock struct{}

func NewSystemClock() infraClock.Clock { return SystemClock{} }

func (SystemClock) Now() time.Time                  { return time.Now() }
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }
