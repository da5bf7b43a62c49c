// Package session 基于 Cookie 的内存 HTTP 会话
//
// 会话对象保存在进程内映射中；bigcache 只作为空闲过期索引：每次访问以
// 会话标识为键重新写入，条目超过 MaxInactive 未被覆盖时由 bigcache 的清理
// 协程回调，随后在独立的工作协程中失效会话。失效与标识轮换通过监听器
// 通知作用域管理器。
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/google/uuid"

	apiconfig "github.com/weisyn/scoped/internal/config/api"
	infraClock "github.com/weisyn/scoped/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
)

var (
	// ErrSessionNotFound 会话不存在或已失效
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed 会话存储已关闭
	ErrStoreClosed = errors.New("session store closed")
)

const (
	minCleanWindow = time.Second
	expiredBacklog = 256
)

// idleMarker bigcache 中的占位值，只关心键与写入时间
var idleMarker = []byte{1}

// Store 会话存储
type Store struct {
	cfg    apiconfig.SessionConfig
	clock  infraClock.Clock
	logger log.Logger
	cache  *bigcache.BigCache

	mu       sync.RWMutex
	sessions map[string]*Session

	listenerMu   sync.RWMutex
	invalidation []func(*Session)
	idChange     []func(oldID, newID string)

	expired chan string
	cancel  context.CancelFunc
	done    chan struct{}
	closed  atomic.Bool
}

// NewStore 创建会话存储并启动过期处理协程
func NewStore(cfg apiconfig.SessionConfig, clock infraClock.Clock, logger log.Logger) (*Store, error) {
	if cfg.MaxInactive <= 0 {
		return nil, fmt.Errorf("session max inactive must be positive: %s", cfg.MaxInactive)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
		sessions: make(map[string]*Session),
		expired:  make(chan string, expiredBacklog),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	cacheConfig := bigcache.DefaultConfig(cfg.MaxInactive)
	if cfg.Shards > 0 {
		cacheConfig.Shards = cfg.Shards
	}
	cacheConfig.CleanWindow = cfg.MaxInactive / 4
	if cacheConfig.CleanWindow < minCleanWindow {
		cacheConfig.CleanWindow = minCleanWindow
	}
	cacheConfig.MaxEntrySize = len(idleMarker)
	cacheConfig.Verbose = false
	cacheConfig.OnRemoveWithReason = s.onRemove

	cache, err := bigcache.New(ctx, cacheConfig)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create session expiry index: %w", err)
	}
	s.cache = cache

	go s.expireLoop(ctx)
	return s, nil
}

// OnInvalidate 登记失效监听器（显式失效与空闲过期都会触发）
func (s *Store) OnInvalidate(fn func(*Session)) {
	s.listenerMu.Lock()
	s.invalidation = append(s.invalidation, fn)
	s.listenerMu.Unlock()
}

// OnIDChange 登记标识轮换监听器
func (s *Store) OnIDChange(fn func(oldID, newID string)) {
	s.listenerMu.Lock()
	s.idChange = append(s.idChange, fn)
	s.listenerMu.Unlock()
}

// Create 新建会话
func (s *Store) Create() (*Session, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	now := s.clock.Now()
	sess := &Session{store: s, id: uuid.NewString(), createdAt: now, lastAccess: now}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.touchIndex(sess.id)
	return sess, nil
}

// Get 按标识取会话并刷新访问时间；已空闲超时的会话在此处失效
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := s.clock.Now()
	if now.Sub(sess.LastAccess()) > s.cfg.MaxInactive {
		s.expire(id)
		return nil, false
	}
	sess.touch(now)
	s.touchIndex(id)
	return sess, true
}

// Invalidate 失效会话并通知监听器
func (s *Store) Invalidate(id string) error {
	sess, ok := s.remove(id)
	if !ok {
		return fmt.Errorf("%w: id=%s", ErrSessionNotFound, id)
	}
	s.notifyInvalidated(sess)
	return nil
}

// ChangeID 轮换会话标识，返回同一个会话对象
func (s *Store) ChangeID(oldID string) (*Session, error) {
	newID := uuid.NewString()

	s.mu.Lock()
	sess, ok := s.sessions[oldID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: id=%s", ErrSessionNotFound, oldID)
	}
	delete(s.sessions, oldID)
	s.sessions[newID] = sess
	sess.setID(newID)
	s.mu.Unlock()

	s.dropIndex(oldID)
	s.touchIndex(newID)

	s.listenerMu.RLock()
	listeners := append([]func(string, string){}, s.idChange...)
	s.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(oldID, newID)
	}
	return sess, nil
}

// Len 当前会话数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close 停止过期处理；已有会话保留，仍可被失效
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	<-s.done
	return s.cache.Close()
}

func (s *Store) remove(id string) (*Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	sess.markInvalid()
	s.dropIndex(id)
	return sess, true
}

func (s *Store) expire(id string) {
	sess, ok := s.remove(id)
	if !ok {
		return
	}
	if s.logger != nil {
		s.logger.Debugf("会话空闲过期 id=%s", id)
	}
	s.notifyInvalidated(sess)
}

func (s *Store) notifyInvalidated(sess *Session) {
	s.listenerMu.RLock()
	listeners := append([]func(*Session){}, s.invalidation...)
	s.listenerMu.RUnlock()
	for _, fn := range listeners {
		s.safeNotify(sess, fn)
	}
}

func (s *Store) safeNotify(sess *Session, fn func(*Session)) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Errorf("会话失效监听器异常 id=%s: %v", sess.ID(), r)
		}
	}()
	fn(sess)
}

func (s *Store) touchIndex(id string) {
	if s.closed.Load() {
		return
	}
	if err := s.cache.Set(id, idleMarker); err != nil && s.logger != nil {
		s.logger.Warnf("刷新会话过期索引失败 id=%s: %v", id, err)
	}
}

func (s *Store) dropIndex(id string) {
	if s.closed.Load() {
		return
	}
	if err := s.cache.Delete(id); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) && s.logger != nil {
		s.logger.Warnf("删除会话过期索引失败 id=%s: %v", id, err)
	}
}

// onRemove 在 bigcache 分片锁内被调用，只能转交，不能回调 cache
//
// 通道已满时另起 goroutine 投递；存储关闭后 expireLoop 不再接收，
// 投递随 done 关闭放弃。
func (s *Store) onRemove(key string, _ []byte, reason bigcache.RemoveReason) {
	if reason != bigcache.Expired || s.closed.Load() {
		return
	}
	select {
	case s.expired <- key:
	default:
		go func() {
			select {
			case s.expired <- key:
			case <-s.done:
			}
		}()
	}
}

func (s *Store) expireLoop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.expired:
			s.expire(id)
		}
	}
}
