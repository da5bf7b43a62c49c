package scope

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scopeconfig "github.com/weisyn/scoped/internal/config/scope"
	"github.com/weisyn/scoped/internal/core/scope/testutil"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

type containerStartup struct{ handle string }

func (c containerStartup) ContainerHandle() any { return c.handle }

func TestNewManager_RequiresConfigAndLogger(t *testing.T) {
	_, err := NewManager(ManagerOptions{Logger: testutil.NewTestLogger()})
	assert.Error(t, err)
	_, err = NewManager(ManagerOptions{Config: testutil.NewTestScopeConfig(nil)})
	assert.Error(t, err)

	m, err := NewManager(ManagerOptions{Config: testutil.NewTestScopeConfig(nil), Logger: testutil.NewTestLogger()})
	require.NoError(t, err)
	assert.NotNil(t, m.Registry())
	assert.False(t, m.SupportsConversation())
}

func TestManager_RequestLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	req := testutil.NewFakeRequest("", nil)

	u := env.startRequest(req)
	rc := env.manager.CurrentContext(u, scope.RequestScoped, false)
	require.NotNil(t, rc)
	assert.True(t, rc.IsActive())
	assert.Equal(t, []any{req}, env.targets(scope.RequestScoped, scope.Initialized))

	// 没有令牌时绑定一个临时长会话，事件目标为请求
	conv := env.manager.CurrentContext(u, scope.ConversationScoped, false)
	require.NotNil(t, conv)
	assert.True(t, conv.IsActive())
	assert.Equal(t, []any{req}, env.targets(scope.ConversationScoped, scope.Initialized))
	assert.Empty(t, env.manager.ConversationID(u))

	require.NoError(t, rc.Set("k", "v"))
	env.endRequest(u, req)

	assert.False(t, rc.IsActive())
	assert.Nil(t, env.manager.CurrentContext(u, scope.RequestScoped, false))
	assert.Nil(t, env.manager.CurrentContext(u, scope.ConversationScoped, false))
	assert.Equal(t, []any{req}, env.targets(scope.RequestScoped, scope.Destroyed))
	assert.Equal(t, []any{req}, env.targets(scope.ConversationScoped, scope.Destroyed))
	assert.Zero(t, env.conversations.Len())
}

func TestManager_InternalRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	u := NewUnit()

	env.manager.Start(u, scope.RequestScoped, InternalRequest)
	require.NotNil(t, u.Request())
	assert.Nil(t, u.Request().Request())
	assert.Nil(t, u.Conversation())
	assert.Equal(t, []any{InternalRequest}, env.targets(scope.RequestScoped, scope.Initialized))

	env.manager.End(u, scope.RequestScoped, InternalRequest)
	assert.Nil(t, u.Request())
	assert.Equal(t, []any{InternalRequest}, env.targets(scope.RequestScoped, scope.Destroyed))
}

func TestManager_TimeoutOperationSkipsConversation(t *testing.T) {
	env := newTestEnv(t, nil)
	u := NewUnit()
	u.SetOperation(OperationTimeout)

	env.manager.Start(u, scope.RequestScoped, testutil.NewFakeRequest("", nil))
	assert.NotNil(t, u.Request())
	assert.Nil(t, u.Conversation())
	assert.Zero(t, env.sink.Count(scope.ConversationScoped, scope.Initialized))
}

func TestManager_TimeoutOperationSuppressesConversationStart(t *testing.T) {
	env := newTestEnv(t, nil)
	u := NewUnit()
	u.SetOperation(OperationTimeout)

	env.manager.Start(u, scope.ConversationScoped, nil)
	assert.Nil(t, u.Conversation())
	assert.Zero(t, env.conversations.Len())
	assert.Zero(t, env.sink.Count(scope.ConversationScoped, scope.Initialized))

	u.SetOperation(OperationBusiness)
	env.manager.Start(u, scope.ConversationScoped, nil)
	assert.NotNil(t, u.Conversation())
}

func TestManager_BareRequestFiresNoEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, param := range []any{nil, "not-a-request"} {
		u := NewUnit()
		env.manager.Start(u, scope.RequestScoped, param)
		require.NotNil(t, u.Request())
		env.manager.End(u, scope.RequestScoped, param)
		assert.Nil(t, u.Request())
	}

	assert.Zero(t, env.sink.Count(scope.RequestScoped, scope.Initialized))
	assert.Zero(t, env.sink.Count(scope.RequestScoped, scope.Destroyed))
}

func TestManager_SessionStartIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := testutil.NewFakeSession("s1")

	u1 := env.startRequest(testutil.NewFakeRequest("", sess))
	u2 := env.startRequest(testutil.NewFakeRequest("", sess))

	require.NotNil(t, u1.Session())
	assert.Same(t, u1.Session(), u2.Session())
	assert.True(t, u1.Session().IsActive())
	assert.Equal(t, "s1", u1.Session().SessionID())
	assert.Equal(t, []any{sess}, env.targets(scope.SessionScoped, scope.Initialized))
	assert.Equal(t, 1, env.manager.Registry().Len())
}

func TestManager_ConcurrentSessionStartFiresOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := testutil.NewFakeSession("shared")

	const workers = 32
	contexts := make([]scope.SessionContext, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := NewUnit()
			env.manager.Start(u, scope.SessionScoped, sess)
			contexts[i] = u.Session()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, env.sink.Count(scope.SessionScoped, scope.Initialized))
	for _, ctx := range contexts {
		assert.Same(t, contexts[0], ctx)
	}
}

func TestManager_SessionEndDeferredUntilRequestEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := testutil.NewFakeSession("s1")
	req := testutil.NewFakeRequest("", sess)

	u := env.startRequest(req)
	ctx := u.Session()
	require.NotNil(t, ctx)

	env.manager.End(u, scope.SessionScoped, sess)
	assert.Nil(t, u.Session(), "binding is cleared immediately")
	assert.Equal(t, 1, u.PendingReleasables())

	// 请求结束前仍可查询
	registered, ok := env.manager.Registry().Get("s1")
	require.True(t, ok)
	assert.Same(t, ctx, registered)
	assert.True(t, ctx.IsActive())
	assert.Zero(t, env.sink.Count(scope.SessionScoped, scope.Destroyed))

	// 同一请求内重复结束不会再次排队
	env.manager.End(u, scope.SessionScoped, sess)
	assert.Equal(t, 1, u.PendingReleasables())

	env.endRequest(u, req)
	assert.False(t, ctx.IsActive())
	assert.Zero(t, env.manager.Registry().Len())
	assert.Equal(t, []any{sess}, env.targets(scope.SessionScoped, scope.Destroyed))
}

func TestManager_ReleasedUnitStillDestroysQueuedSession(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := testutil.NewFakeSession("s1")
	u := env.startRequest(testutil.NewFakeRequest("", sess))
	ctx := u.Session()
	require.NotNil(t, ctx)

	env.manager.End(u, scope.SessionScoped, sess)
	require.Equal(t, 1, u.PendingReleasables())

	// 执行单元未经请求结束就被释放
	env.manager.Destroy(u, nil)
	assert.False(t, ctx.IsActive())
	assert.Zero(t, env.manager.Registry().Len())
	assert.Equal(t, []any{sess}, env.targets(scope.SessionScoped, scope.Destroyed))

	// 同一句柄的新会话可以正常结束
	u2 := NewUnit()
	env.manager.Start(u2, scope.SessionScoped, sess)
	fresh := u2.Session()
	require.NotNil(t, fresh)
	env.manager.End(NewUnit(), scope.SessionScoped, sess)
	assert.False(t, fresh.IsActive())
	assert.Zero(t, env.manager.Registry().Len())
	assert.Equal(t, 2, env.sink.Count(scope.SessionScoped, scope.Destroyed))
}

func TestManager_SessionEndWithoutRequestIsImmediate(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := testutil.NewFakeSession("s1")

	u := NewUnit()
	env.manager.Start(u, scope.SessionScoped, sess)
	ctx := u.Session()
	require.NotNil(t, ctx)

	env.manager.End(NewUnit(), scope.SessionScoped, sess)
	assert.False(t, ctx.IsActive())
	assert.Zero(t, env.manager.Registry().Len())
	assert.Equal(t, []any{sess}, env.targets(scope.SessionScoped, scope.Destroyed))

	// 已销毁后再结束无事件
	env.manager.End(u, scope.SessionScoped, sess)
	assert.Equal(t, 1, env.sink.Count(scope.SessionScoped, scope.Destroyed))
	assert.Nil(t, u.Session())
}

func TestManager_NilSessionHandleIsNoop(t *testing.T) {
	env := newTestEnv(t, nil)
	u := NewUnit()
	env.manager.Start(u, scope.SessionScoped, nil)
	assert.Nil(t, u.Session())
	assert.Empty(t, env.sink.Events())
}

func TestManager_DeferredActionsFIFOAndFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	req := testutil.NewFakeRequest("", nil)
	u := env.startRequest(req)

	var ran []int
	u.PushReleasable(func() error { ran = append(ran, 0); return nil })
	u.PushReleasable(func() error { ran = append(ran, 1); return errors.New("flush failed") })
	u.PushReleasable(func() error { ran = append(ran, 2); panic("boom") })
	u.PushReleasable(func() error { ran = append(ran, 3); return nil })

	env.endRequest(u, req)

	assert.Equal(t, []int{0, 1, 2, 3}, ran)
	assert.True(t, env.logger.Contains("ERROR", "flush failed"))
	assert.True(t, env.logger.Contains("ERROR", "panic: boom"))
	assert.Equal(t, 1, env.sink.Count(scope.RequestScoped, scope.Destroyed))
	assert.Nil(t, u.Request())
}

func TestManager_ApplicationInitializedOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	startup := containerStartup{handle: "container-1"}

	env.manager.Start(nil, scope.ApplicationScoped, startup)
	env.manager.Start(nil, scope.ApplicationScoped, "other")
	assert.Equal(t, []any{"container-1"}, env.targets(scope.ApplicationScoped, scope.Initialized))

	app := env.manager.CurrentContext(nil, scope.ApplicationScoped, false)
	require.NotNil(t, app)
	require.NoError(t, app.Set("config", 1))

	env.manager.End(nil, scope.ApplicationScoped, nil)
	assert.Equal(t, []any{"container-1"}, env.targets(scope.ApplicationScoped, scope.Destroyed))
	assert.True(t, app.IsActive())
	_, ok, err := app.Get("config")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_ApplicationTargetFallsBackToContext(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.Start(nil, scope.ApplicationScoped, nil)
	assert.Equal(t, []any{env.manager.Application()}, env.targets(scope.ApplicationScoped, scope.Initialized))
}

func TestManager_SingletonAndDependent(t *testing.T) {
	env := newTestEnv(t, nil)

	env.manager.Start(nil, scope.SingletonScoped, nil)
	singleton := env.manager.CurrentContext(nil, scope.SingletonScoped, false)
	require.NotNil(t, singleton)
	require.NoError(t, singleton.Set("a", 1))

	env.manager.End(nil, scope.SingletonScoped, nil)
	assert.True(t, singleton.IsActive())
	assert.Empty(t, singleton.(*BaseContext).Names())

	env.manager.Start(nil, scope.DependentScoped, nil)
	env.manager.End(nil, scope.DependentScoped, nil)
	dependent := env.manager.CurrentContext(nil, scope.DependentScoped, false)
	require.NotNil(t, dependent)
	assert.True(t, dependent.IsActive())
	assert.Empty(t, env.sink.Events())
}

func TestManager_InitAndDestroy(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.Init(containerStartup{handle: "c"})
	assert.True(t, env.manager.CurrentContext(nil, scope.SingletonScoped, false).IsActive())
	assert.Equal(t, 1, env.sink.Count(scope.ApplicationScoped, scope.Initialized))

	u := env.startRequest(testutil.NewFakeRequest("", nil))
	env.manager.Destroy(u, nil)
	assert.Equal(t, 1, env.sink.Count(scope.ApplicationScoped, scope.Destroyed))
	assert.Nil(t, u.Request())
}

func TestManager_UnsupportedKindsWarn(t *testing.T) {
	env := newTestEnv(t, func(o *scopeconfig.ScopeOptions) { o.SupportsConversation = false })
	u := NewUnit()

	env.manager.Start(u, scope.Kind(42), nil)
	env.manager.End(u, scope.Kind(42), nil)
	assert.True(t, env.logger.Contains("WARN", "kind(42)"))

	env.manager.Start(u, scope.ConversationScoped, nil)
	assert.True(t, env.logger.Contains("WARN", "conversation"))
	assert.Nil(t, env.manager.CurrentContext(u, scope.ConversationScoped, true))
	assert.Nil(t, env.manager.CurrentContext(u, scope.Kind(42), true))

	// 长会话关闭时请求不会创建临时长会话
	env.manager.Start(u, scope.RequestScoped, testutil.NewFakeRequest("", nil))
	assert.Nil(t, u.Conversation())

	_, err := env.manager.BeginConversation(u, "", 0)
	assert.True(t, errors.Is(err, ErrUnsupportedScope))
}

func TestManager_CurrentSessionLazyStart(t *testing.T) {
	env := newTestEnv(t, nil)
	req := testutil.NewFakeRequest("", nil)
	req.NewSession = func() *testutil.FakeSession { return testutil.NewFakeSession("lazy") }

	u := env.startRequest(req)
	assert.Nil(t, env.manager.CurrentContext(u, scope.SessionScoped, false))
	assert.Zero(t, env.sink.Count(scope.SessionScoped, scope.Initialized))

	sc := env.manager.CurrentContext(u, scope.SessionScoped, true)
	require.NotNil(t, sc)
	assert.True(t, sc.IsActive())
	assert.Equal(t, "lazy", env.manager.CurrentSessionID(u, false))
	assert.Equal(t, 1, env.sink.Count(scope.SessionScoped, scope.Initialized))
}

func TestManager_CurrentSessionWithoutRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Nil(t, env.manager.CurrentContext(NewUnit(), scope.SessionScoped, true))
	assert.True(t, env.logger.Contains("WARN", "没有绑定请求"))
	assert.Nil(t, env.manager.CurrentContext(nil, scope.SessionScoped, true))

	// 请求无法创建会话
	u := env.startRequest(testutil.NewFakeRequest("", nil))
	assert.Nil(t, env.manager.CurrentContext(u, scope.SessionScoped, true))
}

func TestManager_SaveAndRestoreState(t *testing.T) {
	env := newTestEnv(t, nil)
	u := env.startRequest(testutil.NewFakeRequest("", testutil.NewFakeSession("s1")))
	saved := env.manager.SaveState(u)
	require.NotNil(t, saved.Request)
	require.NotNil(t, saved.Session)
	require.NotNil(t, saved.Conversation)

	prev := env.manager.RestoreState(u, State{})
	assert.Equal(t, saved, prev)
	assert.Nil(t, u.Request())
	assert.Nil(t, u.Session())
	assert.Nil(t, u.Conversation())

	empty := env.manager.RestoreState(u, prev)
	assert.Equal(t, State{}, empty)
	assert.Equal(t, saved, env.manager.SaveState(u))

	assert.Equal(t, State{}, env.manager.SaveState(nil))
}

func TestManager_UpdateSessionIDMapping(t *testing.T) {
	env := newTestEnv(t, nil)
	sess := testutil.NewFakeSession("old")
	req := testutil.NewFakeRequest("", sess)

	u := env.startRequest(req)
	id, err := env.manager.BeginConversation(u, "c1", 0)
	require.NoError(t, err)
	ctx := u.Session()
	env.endRequest(u, req)

	assert.False(t, env.manager.UpdateSessionIDMapping("missing", "new"))
	require.True(t, env.manager.UpdateSessionIDMapping("old", "new"))

	got, ok := env.manager.Registry().Get("new")
	require.True(t, ok)
	assert.Same(t, ctx, got)
	assert.Equal(t, "new", ctx.SessionID())

	_, found := env.conversations.Find(id, "old")
	assert.False(t, found)
	ref, found := env.conversations.Find(id, "new")
	require.True(t, found)
	assert.Equal(t, "new", ref.SessionID())
}

func TestManager_HTTPParameter(t *testing.T) {
	t.Run("query mode reads the raw query string", func(t *testing.T) {
		env := newTestEnv(t, nil)
		req := testutil.NewFakeRequest("cid=XYZ&q=2", nil)
		req.Params["q"] = "from-params"
		u := env.startRequest(req)

		v, ok := env.manager.HTTPParameter(u, "cid")
		assert.True(t, ok)
		assert.Equal(t, "XYZ", v)

		v, ok = env.manager.HTTPParameter(u, "q")
		assert.True(t, ok)
		assert.Equal(t, "2", v)
	})

	t.Run("parameter mode reads request parameters", func(t *testing.T) {
		env := newTestEnv(t, func(o *scopeconfig.ScopeOptions) { o.ConversationUseGetParameter = true })
		req := testutil.NewFakeRequest("q=2", nil)
		req.Params["q"] = "1"
		u := env.startRequest(req)

		v, ok := env.manager.HTTPParameter(u, "q")
		assert.True(t, ok)
		assert.Equal(t, "1", v)
	})

	env := newTestEnv(t, nil)
	_, ok := env.manager.HTTPParameter(NewUnit(), "q")
	assert.False(t, ok)
}
