package clock

import (
	"sync"
	"time"

	infraClock "github.com/weisyn/scoped/pkg/interfaces/infrastructure/clock"
)

// MockClock 测试用时钟，时间只在 Advance 时前进
//
// 清理协程与测试协程会并发读写，因此带锁。
type MockClock struct {
	mu          sync.RWMutex
	currentTime time.Time
}

func NewMockClock(initial time.Time) *MockClock { return &MockClock{currentTime: initial} }

func (c *MockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

func (c *MockClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

// Advance 推进时间
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.currentTime = c.currentTime.Add(d)
	c.mu.Unlock()
}

var _ infraClock.Clock = (*MockClock)(nil)
