package session

import (
	"sync"
	"time"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// Session HTTP 会话，实现 scope.SessionHandle
type Session struct {
	store *Store

	mu         sync.RWMutex
	id         string
	createdAt  time.Time
	lastAccess time.Time
	invalid    bool
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

func (s *Session) LastAccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

// Valid 会话是否仍有效
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.invalid
}

// Invalidate 失效会话；监听器负责结束对应的 Session 作用域
func (s *Session) Invalidate() error {
	return s.store.Invalidate(s.ID())
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) setID(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *Session) markInvalid() {
	s.mu.Lock()
	s.invalid = true
	s.mu.Unlock()
}

var _ scope.SessionHandle = (*Session)(nil)
