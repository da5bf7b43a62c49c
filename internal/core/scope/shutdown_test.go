package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/scoped/internal/core/scope/testutil"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

func TestManager_ShutdownDestroysEverything(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.Init(nil)

	s1 := testutil.NewFakeSession("s1")
	s2 := testutil.NewFakeSession("s2")
	// s2 的传输层失效时回调管理器结束会话
	s2.OnInvalidate = func(s *testutil.FakeSession) {
		env.manager.End(NewUnit(), scope.SessionScoped, s)
	}
	id := beginLongRunning(t, env, s1, "c1")
	beginLongRunning(t, env, s2, "c2")

	// 没有句柄的会话上下文直接销毁
	bare := NewSessionContext(nil)
	bare.SetSessionID("bare")
	bare.SetActive(true)
	env.manager.Registry().AddIfAbsent("bare", bare)

	env.sink.Reset()
	env.manager.Shutdown()

	assert.Equal(t, 1, s1.Invalidated())
	assert.Equal(t, 1, s2.Invalidated())
	assert.Zero(t, env.manager.Registry().Len())
	assert.Zero(t, env.conversations.Len())
	assert.False(t, bare.IsActive())

	assert.Equal(t, 1, env.sink.Count(scope.ApplicationScoped, scope.Destroyed))
	assert.Equal(t, 3, env.sink.Count(scope.SessionScoped, scope.Destroyed))
	assert.Contains(t, env.targets(scope.ConversationScoped, scope.Destroyed), any(id))
	assert.Contains(t, env.targets(scope.ConversationScoped, scope.Destroyed), any("c2"))

	// 重复调用无副作用
	events := len(env.sink.Events())
	env.manager.Shutdown()
	assert.Len(t, env.sink.Events(), events)
}

func TestManager_ShutdownDestroysSessionQueuedByRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.Init(nil)

	sess := testutil.NewFakeSession("s1")
	req := testutil.NewFakeRequest("", sess)
	u := env.startRequest(req)
	ctx := u.Session()
	require.NotNil(t, ctx)

	env.manager.End(u, scope.SessionScoped, sess)
	require.Equal(t, 1, u.PendingReleasables())

	env.manager.Shutdown()
	assert.False(t, ctx.IsActive())
	assert.Zero(t, env.manager.Registry().Len())
	assert.Equal(t, []any{sess}, env.targets(scope.SessionScoped, scope.Destroyed))

	// 在途请求随后结束，排队的销毁不再重复
	env.endRequest(u, req)
	assert.Equal(t, 1, env.sink.Count(scope.SessionScoped, scope.Destroyed))
}

func TestManager_ShutdownContinuesAfterFailures(t *testing.T) {
	env := newTestEnv(t, nil)

	bad := testutil.NewFakeSession("bad")
	bad.OnInvalidate = func(*testutil.FakeSession) { panic("transport gone") }
	failing := testutil.NewFakeSession("failing")
	failing.InvalidateErr = errors.New("already invalid")
	good := testutil.NewFakeSession("good")

	contexts := map[string]scope.SessionContext{}
	for _, sess := range []*testutil.FakeSession{bad, failing, good} {
		u := NewUnit()
		env.manager.Start(u, scope.SessionScoped, sess)
		require.NotNil(t, u.Session())
		contexts[sess.ID()] = u.Session()
	}

	env.manager.Shutdown()

	for id, ctx := range contexts {
		assert.False(t, ctx.IsActive(), id)
	}
	assert.Zero(t, env.manager.Registry().Len())
	assert.Equal(t, 3, env.sink.Count(scope.SessionScoped, scope.Destroyed))
	assert.True(t, env.logger.Contains("ERROR", "transport gone"))
	assert.True(t, env.logger.Contains("WARN", "already invalid"))
}

func TestManager_InitAfterShutdownRearms(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.Shutdown()
	env.manager.Init(nil)

	env.sink.Reset()
	env.manager.Shutdown()
	assert.Equal(t, 1, env.sink.Count(scope.ApplicationScoped, scope.Destroyed))
}
