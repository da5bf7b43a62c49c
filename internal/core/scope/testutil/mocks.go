package testutil

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// MockLogger 空日志器，丢弃全部输出
type MockLogger struct{}

func (m *MockLogger) Debug(msg string)                          {}
func (m *MockLogger) Debugf(format string, args ...interface{}) {}
func (m *MockLogger) Info(msg string)                           {}
func (m *MockLogger) Infof(format string, args ...interface{})  {}
func (m *MockLogger) Warn(msg string)                           {}
func (m *MockLogger) Warnf(format string, args ...interface{})  {}
func (m *MockLogger) Error(msg string)                          {}
func (m *MockLogger) Errorf(format string, args ...interface{}) {}
func (m *MockLogger) Fatal(msg string)                          {}
func (m *MockLogger) Fatalf(format string, args ...interface{}) {}
func (m *MockLogger) With(args ...interface{}) log.Logger       { return m }
func (m *MockLogger) Sync() error                               { return nil }
func (m *MockLogger) GetZapLogger() *zap.Logger                 { return zap.NewNop() }

// BehavioralMockLogger 记录每条日志（已格式化，带级别前缀）
type BehavioralMockLogger struct {
	logs  []string
	mutex sync.Mutex
}

func (m *BehavioralMockLogger) record(level, msg string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logs = append(m.logs, level+": "+msg)
}

func (m *BehavioralMockLogger) Debug(msg string) { m.record("DEBUG", msg) }
func (m *BehavioralMockLogger) Debugf(format string, args ...interface{}) {
	m.record("DEBUG", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Info(msg string) { m.record("INFO", msg) }
func (m *BehavioralMockLogger) Infof(format string, args ...interface{}) {
	m.record("INFO", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Warn(msg string) { m.record("WARN", msg) }
func (m *BehavioralMockLogger) Warnf(format string, args ...interface{}) {
	m.record("WARN", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Error(msg string) { m.record("ERROR", msg) }
func (m *BehavioralMockLogger) Errorf(format string, args ...interface{}) {
	m.record("ERROR", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Fatal(msg string) { m.record("FATAL", msg) }
func (m *BehavioralMockLogger) Fatalf(format string, args ...interface{}) {
	m.record("FATAL", fmt.Sprintf(format, args...))
}

func (m *BehavioralMockLogger) With(args ...interface{}) log.Logger { return m }
func (m *BehavioralMockLogger) Sync() error                         { return nil }
func (m *BehavioralMockLogger) GetZapLogger() *zap.Logger           { return zap.NewNop() }

// GetLogs 获取所有日志记录
func (m *BehavioralMockLogger) GetLogs() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string{}, m.logs...)
}

// Contains 是否存在指定级别且包含 substr 的记录
func (m *BehavioralMockLogger) Contains(level, substr string) bool {
	for _, line := range m.GetLogs() {
		if strings.HasPrefix(line, level+": ") && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// ClearLogs 清空日志记录
func (m *BehavioralMockLogger) ClearLogs() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logs = m.logs[:0]
}

// RecordingSink 记录全部生命周期事件
type RecordingSink struct {
	mu     sync.Mutex
	events []scope.LifecycleEvent
}

// Fire 实现 scope.EventSink
func (s *RecordingSink) Fire(target any, kind scope.Kind, phase scope.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, scope.LifecycleEvent{Target: target, Kind: kind, Phase: phase})
}

// Events 已记录事件的副本
func (s *RecordingSink) Events() []scope.LifecycleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scope.LifecycleEvent{}, s.events...)
}

// Filter 指定类别与阶段的事件
func (s *RecordingSink) Filter(kind scope.Kind, phase scope.Phase) []scope.LifecycleEvent {
	var out []scope.LifecycleEvent
	for _, ev := range s.Events() {
		if ev.Kind == kind && ev.Phase == phase {
			out = append(out, ev)
		}
	}
	return out
}

// Count 指定类别与阶段的事件数
func (s *RecordingSink) Count(kind scope.Kind, phase scope.Phase) int {
	return len(s.Filter(kind, phase))
}

// Reset 清空记录
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// FakeSession 传输层会话句柄替身
type FakeSession struct {
	mu          sync.Mutex
	id          string
	invalidated int

	// OnInvalidate 失效时回调，通常用于模拟传输层通知管理器
	OnInvalidate func(s *FakeSession)
	// InvalidateErr Invalidate 的返回值
	InvalidateErr error
}

// NewFakeSession 创建会话句柄
func NewFakeSession(id string) *FakeSession {
	return &FakeSession{id: id}
}

func (s *FakeSession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetID 模拟会话标识轮换
func (s *FakeSession) SetID(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

// Invalidate 实现 scope.SessionHandle
func (s *FakeSession) Invalidate() error {
	s.mu.Lock()
	s.invalidated++
	cb := s.OnInvalidate
	s.mu.Unlock()
	if cb != nil {
		cb(s)
	}
	return s.InvalidateErr
}

// Invalidated 失效次数
func (s *FakeSession) Invalidated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

// FakeRequest 传输层请求句柄替身
type FakeRequest struct {
	Query  string
	Params map[string]string

	mu      sync.Mutex
	session *FakeSession
	// NewSession Session(true) 且尚无会话时调用
	NewSession func() *FakeSession
}

// NewFakeRequest 创建请求句柄，session 可以为 nil
func NewFakeRequest(query string, session *FakeSession) *FakeRequest {
	return &FakeRequest{Query: query, session: session, Params: map[string]string{}}
}

func (r *FakeRequest) QueryString() string { return r.Query }

func (r *FakeRequest) Parameter(name string) (string, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// Session 实现 scope.RequestHandle；未设置 NewSession 时 force 不会创建会话
func (r *FakeRequest) Session(force bool) scope.SessionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil && force && r.NewSession != nil {
		r.session = r.NewSession()
	}
	if r.session == nil {
		return nil
	}
	return r.session
}

var (
	_ log.Logger          = (*MockLogger)(nil)
	_ log.Logger          = (*BehavioralMockLogger)(nil)
	_ scope.EventSink     = (*RecordingSink)(nil)
	_ scope.SessionHandle = (*FakeSession)(nil)
	_ scope.RequestHandle = (*FakeRequest)(nil)
)
