package scope

import (
	"hash/fnv"
	"sync"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// SessionRegistry 会话标识到会话上下文的并发安全映射
//
// 按 fnv32 哈希分片，每个分片一把读写锁。同一会话标识在任一时刻只对应
// 一个上下文；重映射时按分片下标顺序加锁，避免两个方向的重映射互相等待。
type SessionRegistry struct {
	shards []*registryShard
	mask   uint32
}

type registryShard struct {
	mu       sync.RWMutex
	contexts map[string]scope.SessionContext
}

// NewSessionRegistry 创建注册表，分片数向上取整到 2 的幂
func NewSessionRegistry(shardCount int) *SessionRegistry {
	if shardCount <= 0 {
		shardCount = 1
	}
	n := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*registryShard, n)
	for i := range shards {
		shards[i] = &registryShard{contexts: make(map[string]scope.SessionContext)}
	}
	return &SessionRegistry{shards: shards, mask: n - 1}
}

func (r *SessionRegistry) shardIndex(id string) uint32 {
	return fnv32(id) & r.mask
}

func (r *SessionRegistry) shard(id string) *registryShard {
	return r.shards[r.shardIndex(id)]
}

// Get 按会话标识查找
func (r *SessionRegistry) Get(id string) (scope.SessionContext, bool) {
	sh := r.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	ctx, ok := sh.contexts[id]
	return ctx, ok
}

// AddIfAbsent 不存在时登记 ctx；返回最终登记的上下文以及本次是否新增
func (r *SessionRegistry) AddIfAbsent(id string, ctx scope.SessionContext) (scope.SessionContext, bool) {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if existing, ok := sh.contexts[id]; ok {
		return existing, false
	}
	sh.contexts[id] = ctx
	return ctx, true
}

// Remove 移除并返回登记项
func (r *SessionRegistry) Remove(id string) (scope.SessionContext, bool) {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	ctx, ok := sh.contexts[id]
	if ok {
		delete(sh.contexts, id)
	}
	return ctx, ok
}

// RemoveIf 仅当登记的正是 ctx 时移除
func (r *SessionRegistry) RemoveIf(id string, ctx scope.SessionContext) bool {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if existing, ok := sh.contexts[id]; ok && existing == ctx {
		delete(sh.contexts, id)
		return true
	}
	return false
}

// UpdateID 把 oldID 的登记迁移到 newID，并同步上下文自身的标识
//
// oldID 不存在时不做任何事并返回 false；newID 上已有的登记被覆盖。
func (r *SessionRegistry) UpdateID(oldID, newID string) bool {
	if oldID == newID {
		_, ok := r.Get(oldID)
		return ok
	}

	oi, ni := r.shardIndex(oldID), r.shardIndex(newID)
	first, second := oi, ni
	if first > second {
		first, second = second, first
	}
	r.shards[first].mu.Lock()
	defer r.shards[first].mu.Unlock()
	if second != first {
		r.shards[second].mu.Lock()
		defer r.shards[second].mu.Unlock()
	}

	ctx, ok := r.shards[oi].contexts[oldID]
	if !ok {
		return false
	}
	delete(r.shards[oi].contexts, oldID)
	r.shards[ni].contexts[newID] = ctx
	ctx.SetSessionID(newID)
	return true
}

// Snapshot 全部登记项的稳定快照，遍历期间的增删不影响结果
func (r *SessionRegistry) Snapshot() []scope.SessionContext {
	var out []scope.SessionContext
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, ctx := range sh.contexts {
			out = append(out, ctx)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Len 登记数量
func (r *SessionRegistry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.contexts)
		sh.mu.RUnlock()
	}
	return n
}

// Clear 清空全部登记
func (r *SessionRegistry) Clear() {
	for _, sh := range r.shards {
		sh.mu.Lock()
		sh.contexts = make(map[string]scope.SessionContext)
		sh.mu.Unlock()
	}
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo 返回不小于 v 的最小 2 的幂
func nextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
