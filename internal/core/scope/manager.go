package scope

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	scopeconfig "github.com/weisyn/scoped/internal/config/scope"
	"github.com/weisyn/scoped/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// ============================================================================
//                              作用域生命周期管理器
// ============================================================================

type internalRequestMarker struct{}

func (internalRequestMarker) String() string { return "internal-request" }

// InternalRequest 非传输层请求（内部调用）开始 Request 作用域时传入的参数，
// 同时作为该请求生命周期事件的目标
var InternalRequest any = internalRequestMarker{}

// ManagerOptions 管理器依赖
type ManagerOptions struct {
	Config   *scopeconfig.Config
	Logger   log.Logger
	Sink     scope.EventSink // 可选
	Registry *SessionRegistry
	Factory  *SessionContextFactory

	// Conversations 为 nil 或配置关闭长会话时，Conversation 作用域不受支持
	Conversations scope.ConversationRegistry
	Metrics       *Metrics // 可选
}

// 登记表的可选能力，由 ConversationManager 实现
type (
	sessionConversationRemover interface {
		RemoveSession(sessionID string) []scope.ConversationEntry
	}
	sessionConversationRemapper interface {
		UpdateSessionID(oldID, newID string) int
	}
	expiredConversationRemover interface {
		RemoveExpired() []scope.ConversationEntry
	}
	conversationClearer interface {
		Clear()
	}
)

// Manager 作用域上下文生命周期管理器
//
// Request / Session / Conversation 绑定在调用方传入的 *Unit 上；
// Application / Singleton / Dependent 为进程内共享实例。
// 所有方法可被多个执行单元并发调用，单个 Unit 不可并发使用。
type Manager struct {
	config        *scopeconfig.Config
	logger        log.Logger
	sink          scope.EventSink
	registry      *SessionRegistry
	factory       *SessionContextFactory
	conversations scope.ConversationRegistry
	metrics       *Metrics

	application *ApplicationContext
	singleton   *BaseContext
	dependent   *dependentContext

	autoConversationCheck atomic.Bool
	stopped               atomic.Bool

	// 已排队等待销毁的会话上下文，防止同一上下文被重复销毁
	pending sync.Map
}

// NewManager 创建管理器
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Config == nil {
		return nil, errors.New("scope config is nil")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is nil")
	}
	if opts.Registry == nil {
		opts.Registry = NewSessionRegistry(opts.Config.GetRegistryShards())
	}
	if opts.Factory == nil {
		opts.Factory = NewSessionContextFactory(opts.Logger)
	}

	m := &Manager{
		config:      opts.Config,
		logger:      opts.Logger,
		sink:        opts.Sink,
		registry:    opts.Registry,
		factory:     opts.Factory,
		metrics:     opts.Metrics,
		application: NewApplicationContext(),
		singleton:   NewBaseContext(scope.SingletonScoped),
		dependent:   newDependentContext(),
	}
	if opts.Config.SupportsConversation() {
		m.conversations = opts.Conversations
	}
	m.autoConversationCheck.Store(opts.Config.IsAutoConversationCheck())
	return m, nil
}

// ==================== 通用入口 ====================

// Start 开始 kind 作用域；不支持的类别只记录警告
func (m *Manager) Start(u *Unit, kind scope.Kind, param any) {
	switch kind {
	case scope.RequestScoped:
		if m.requireUnit(u, kind) {
			m.startRequest(u, param)
		}
	case scope.SessionScoped:
		if m.requireUnit(u, kind) {
			handle, _ := param.(scope.SessionHandle)
			m.startSession(u, handle)
		}
	case scope.ConversationScoped:
		if m.conversations == nil {
			m.unsupported(kind)
			return
		}
		if m.requireUnit(u, kind) {
			m.startConversationScope(u)
		}
	case scope.ApplicationScoped:
		m.startApplication(param)
	case scope.SingletonScoped:
		m.singleton.SetActive(true)
	case scope.DependentScoped:
	default:
		m.unsupported(kind)
	}
}

// End 结束 kind 作用域；不支持的类别只记录警告
func (m *Manager) End(u *Unit, kind scope.Kind, param any) {
	switch kind {
	case scope.RequestScoped:
		if m.requireUnit(u, kind) {
			m.endRequest(u, param)
		}
	case scope.SessionScoped:
		handle, _ := param.(scope.SessionHandle)
		m.endSession(u, handle)
	case scope.ConversationScoped:
		if m.conversations == nil {
			m.unsupported(kind)
			return
		}
		if m.requireUnit(u, kind) {
			m.endConversationScope(u, param)
		}
	case scope.ApplicationScoped:
		m.endApplication()
	case scope.SingletonScoped:
		m.singleton.Destroy()
		m.singleton.SetActive(true)
	case scope.DependentScoped:
	default:
		m.unsupported(kind)
	}
}

// CurrentContext 当前可见的 kind 上下文，不存在时返回 nil
//
// create 为 true 且没有可用的会话上下文时，通过绑定请求的 Session(true)
// 按需开始 Session 作用域。
func (m *Manager) CurrentContext(u *Unit, kind scope.Kind, create bool) scope.Context {
	switch kind {
	case scope.RequestScoped:
		if u != nil && u.Request() != nil {
			return u.Request()
		}
	case scope.SessionScoped:
		if u == nil {
			return nil
		}
		sc := u.Session()
		if sc != nil && (sc.IsActive() || !create) {
			return sc
		}
		if create {
			return m.lazyStartSession(u)
		}
	case scope.ConversationScoped:
		if m.conversations != nil && u != nil && u.Conversation() != nil {
			return u.Conversation()
		}
	case scope.ApplicationScoped:
		return m.application
	case scope.SingletonScoped:
		return m.singleton
	case scope.DependentScoped:
		return m.dependent
	}
	return nil
}

// ==================== Request ====================

func (m *Manager) startRequest(u *Unit, param any) {
	handle, _ := param.(scope.RequestHandle)
	rc := NewRequestContext(handle)
	rc.SetActive(true)
	if err := u.Bind(scope.RequestScoped, rc); err != nil {
		m.logger.Warnf("绑定请求上下文失败: %v", err)
		return
	}

	if handle == nil {
		if param == InternalRequest {
			m.fire(InternalRequest, scope.RequestScoped, scope.Initialized)
		}
		return
	}

	m.fire(handle, scope.RequestScoped, scope.Initialized)
	if sh := handle.Session(false); sh != nil {
		m.startSession(u, sh)
	}

	if m.conversations == nil || u.Operation() == OperationTimeout {
		return
	}
	if m.AutoConversationCheck() && m.associateConversation(u, handle) {
		return
	}
	m.startTransientConversation(u)
}

func (m *Manager) endRequest(u *Unit, param any) {
	u.drainReleasables(m.runDeferred)

	if m.conversations != nil {
		m.cleanupConversation(u)
	}

	rc := u.Request()
	var target any
	switch {
	case rc != nil && rc.Request() != nil:
		target = rc.Request()
	case param == InternalRequest:
		target = InternalRequest
	}
	if target != nil {
		m.fire(target, scope.RequestScoped, scope.Destroyed)
	}

	if rc != nil {
		rc.Destroy()
	}
	u.Unbind(scope.RequestScoped)
	u.Unbind(scope.ConversationScoped)
}

// runDeferred 执行一个延迟动作；错误与 panic 只记录，不影响后续动作
func (m *Manager) runDeferred(index int, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.observeDeferredFailure()
			m.logger.Errorf("%v", WrapDeferredActionError(index, fmt.Errorf("panic: %v", r)))
		}
	}()
	if err := fn(); err != nil {
		m.metrics.observeDeferredFailure()
		m.logger.Errorf("%v", WrapDeferredActionError(index, err))
	}
}

// ==================== Session ====================

func (m *Manager) startSession(u *Unit, handle scope.SessionHandle) {
	if handle == nil {
		return
	}
	id := handle.ID()
	ctx, ok := m.registry.Get(id)
	if !ok {
		created := m.factory.Create(m.config.GetSessionContextType(), handle)
		created.SetSessionID(id)
		created.SetActive(true)
		actual, added := m.registry.AddIfAbsent(id, created)
		if added {
			m.fire(handle, scope.SessionScoped, scope.Initialized)
		}
		ctx = actual
	}
	ctx.SetActive(true)
	if err := u.Bind(scope.SessionScoped, ctx); err != nil {
		m.logger.Warnf("绑定会话上下文失败: %v", err)
	}
}

// lazyStartSession 通过绑定请求按需创建会话并开始 Session 作用域
func (m *Manager) lazyStartSession(u *Unit) scope.Context {
	rc := u.Request()
	if rc == nil || rc.Request() == nil {
		m.logger.Warn("没有绑定请求，无法创建会话上下文")
		return nil
	}
	handle := rc.Request().Session(true)
	if handle == nil {
		m.logger.Warn("请求未能创建会话，会话上下文不可用")
		return nil
	}
	m.startSession(u, handle)
	if sc := u.Session(); sc != nil {
		return sc
	}
	return nil
}

// endSession 结束会话作用域
//
// 绑定了传输层请求时，销毁排入延迟队列，在请求结束时执行；期间会话上下文
// 仍留在注册表中可被查询。执行单元上的会话绑定立即清除。
func (m *Manager) endSession(u *Unit, handle scope.SessionHandle) {
	var ctx scope.SessionContext
	if handle != nil {
		ctx, _ = m.registry.Get(handle.ID())
	}
	if ctx == nil && u != nil {
		ctx = u.Session()
	}
	if u != nil {
		u.Unbind(scope.SessionScoped)
	}
	if ctx == nil {
		return
	}
	if _, queued := m.pending.LoadOrStore(ctx, struct{}{}); queued {
		return
	}

	destroy := func() error {
		m.destroySession(ctx, handle)
		return nil
	}
	if u != nil {
		if rc := u.Request(); rc != nil && rc.Request() != nil {
			u.pushOwnedReleasable(destroy, func() { m.runDeferred(0, destroy) })
			return
		}
	}
	destroy()
}

// destroySession 移除登记、销毁上下文并清理该会话的长会话
//
// 同一上下文只销毁一次：已从注册表移除且已停用时直接返回，
// 停机先行销毁后，请求结束时排队的动作因此成为空操作。
func (m *Manager) destroySession(ctx scope.SessionContext, handle scope.SessionHandle) {
	defer m.pending.Delete(ctx)

	id := ctx.SessionID()
	if !m.registry.RemoveIf(id, ctx) && !ctx.IsActive() {
		return
	}

	var target any = ctx
	if handle != nil {
		target = handle
	} else if sh := ctx.Session(); sh != nil {
		target = sh
	}

	wasActive := ctx.IsActive()
	ctx.Destroy()
	if wasActive {
		m.fire(target, scope.SessionScoped, scope.Destroyed)
	}

	if remover, ok := m.conversations.(sessionConversationRemover); ok && id != "" {
		for _, entry := range remover.RemoveSession(id) {
			m.destroyConversationEntry(entry)
		}
	}
}

// ==================== Conversation ====================

func (m *Manager) startConversationScope(u *Unit) {
	if u.Operation() == OperationTimeout {
		m.logger.Debugf("定时器回调不开始长会话 unit=%s", u.ID())
		return
	}
	if ctx := u.Conversation(); ctx != nil {
		ctx.SetActive(true)
		return
	}
	m.startTransientConversation(u)
}

func (m *Manager) endConversationScope(u *Unit, param any) {
	ctx := u.Conversation()
	if ctx == nil {
		return
	}
	ctx.Destroy()

	var target any = ctx
	if rc := u.Request(); rc != nil && rc.Request() != nil {
		target = rc.Request()
	} else if param != nil {
		target = param
	}
	m.fire(target, scope.ConversationScoped, scope.Destroyed)
	u.Unbind(scope.ConversationScoped)
}

func (m *Manager) destroyConversationEntry(entry scope.ConversationEntry) {
	if entry.Context != nil {
		entry.Context.Destroy()
	}
	if id := entry.Ref.ID(); id != "" {
		m.fire(id, scope.ConversationScoped, scope.Destroyed)
	}
}

// BeginConversation 把当前临时长会话提升为长期长会话，返回其标识
func (m *Manager) BeginConversation(u *Unit, id string, timeout time.Duration) (string, error) {
	if m.conversations == nil {
		return "", WrapUnsupportedScopeError(scope.ConversationScoped)
	}
	ctx := u.Conversation()
	if ctx == nil {
		return "", WrapConversationStateError(id, "no conversation bound")
	}
	return m.conversations.Begin(ctx, m.CurrentSessionID(u, true), id, timeout)
}

// EndConversation 把当前长期长会话降级为临时，请求结束时清理
func (m *Manager) EndConversation(u *Unit) error {
	if m.conversations == nil {
		return WrapUnsupportedScopeError(scope.ConversationScoped)
	}
	ctx := u.Conversation()
	if ctx == nil {
		return WrapConversationStateError("", "no conversation bound")
	}
	return m.conversations.End(ctx.Conversation())
}

// ConversationID 当前长会话标识，临时长会话或未绑定时为空
func (m *Manager) ConversationID(u *Unit) string {
	if u == nil || u.Conversation() == nil {
		return ""
	}
	return u.Conversation().Conversation().ID()
}

// ReapExpiredConversations 销毁空闲超时且无人占用的长期长会话，返回数量
func (m *Manager) ReapExpiredConversations() int {
	reaper, ok := m.conversations.(expiredConversationRemover)
	if !ok {
		return 0
	}
	expired := reaper.RemoveExpired()
	for _, entry := range expired {
		m.destroyConversationEntry(entry)
	}
	if len(expired) > 0 {
		m.logger.Infof("清理过期长会话 %d 个", len(expired))
	}
	return len(expired)
}

// ==================== Application / Singleton ====================

func (m *Manager) startApplication(param any) {
	m.application.SetActive(true)

	var target any = m.application
	if so, ok := param.(scope.StartupObject); ok && so.ContainerHandle() != nil {
		target = so.ContainerHandle()
	} else if param != nil {
		target = param
	}
	if m.application.markInitialized(target) {
		m.fire(target, scope.ApplicationScoped, scope.Initialized)
	}
}

func (m *Manager) endApplication() {
	m.application.Destroy()
	m.fire(m.application.EventTarget(), scope.ApplicationScoped, scope.Destroyed)
	m.application.SetActive(true)
}

// Init 开始 Application 与 Singleton 作用域
func (m *Manager) Init(param any) {
	m.stopped.Store(false)
	m.Start(nil, scope.ApplicationScoped, param)
	m.Start(nil, scope.SingletonScoped, nil)
}

// Destroy 结束 Application 与 Singleton 作用域并释放执行单元
func (m *Manager) Destroy(u *Unit, param any) {
	m.End(u, scope.ApplicationScoped, param)
	m.End(u, scope.SingletonScoped, param)
	if u != nil {
		u.Release()
	}
}

// ==================== 会话辅助 ====================

// UpdateSessionIDMapping 会话标识变更后迁移注册表与长会话登记
func (m *Manager) UpdateSessionIDMapping(oldID, newID string) bool {
	if !m.registry.UpdateID(oldID, newID) {
		return false
	}
	if remapper, ok := m.conversations.(sessionConversationRemapper); ok {
		remapper.UpdateSessionID(oldID, newID)
	}
	m.logger.Debugf("会话标识迁移 %s -> %s", oldID, newID)
	return true
}

// CurrentSessionID 当前会话标识；force 为 true 时允许通过请求创建会话
func (m *Manager) CurrentSessionID(u *Unit, force bool) string {
	if u == nil {
		return ""
	}
	if id := m.boundSessionID(u); id != "" {
		return id
	}
	if rc := u.Request(); rc != nil && rc.Request() != nil {
		if h := rc.Request().Session(force); h != nil {
			return h.ID()
		}
	}
	return ""
}

// HTTPParameter 读取绑定请求的参数
//
// 与长会话令牌的读取方式一致：默认从原始查询串提取，
// 配置了 conversation_http_use_get_parameter 时改走请求参数。
func (m *Manager) HTTPParameter(u *Unit, name string) (string, bool) {
	if u == nil || u.Request() == nil || u.Request().Request() == nil {
		return "", false
	}
	req := u.Request().Request()
	if m.config.UseGetParameter() {
		return req.Parameter(name)
	}
	return QueryToken(name, req.QueryString())
}

// SetAutoConversationCheck 运行期切换请求开始时的自动关联
func (m *Manager) SetAutoConversationCheck(enabled bool) { m.autoConversationCheck.Store(enabled) }

// AutoConversationCheck 是否在请求开始时自动关联长会话
func (m *Manager) AutoConversationCheck() bool { return m.autoConversationCheck.Load() }

// IsRunning Init 之后、Shutdown 之前为 true
func (m *Manager) IsRunning() bool { return m.application.IsInitialized() && !m.stopped.Load() }

// SupportsConversation Conversation 作用域是否可用
func (m *Manager) SupportsConversation() bool { return m.conversations != nil }

// Registry 会话上下文注册表
func (m *Manager) Registry() *SessionRegistry { return m.registry }

// Application 应用上下文
func (m *Manager) Application() *ApplicationContext { return m.application }

// ==================== 内部 ====================

// fire 记录指标并发布生命周期事件，target 为 nil 时不发布
func (m *Manager) fire(target any, kind scope.Kind, phase scope.Phase) {
	m.metrics.observeTransition(kind, phase)
	if m.sink == nil {
		return
	}
	if target == nil {
		m.logger.Warnf("生命周期事件缺少目标 kind=%s phase=%s", kind, phase)
		return
	}
	m.sink.Fire(target, kind, phase)
}

// requestTarget 事件目标优先取传输层请求，否则为 fallback
func (m *Manager) requestTarget(u *Unit, fallback any) any {
	if rc := u.Request(); rc != nil && rc.Request() != nil {
		return rc.Request()
	}
	return fallback
}

func (m *Manager) unsupported(kind scope.Kind) {
	m.metrics.observeUnsupported(kind)
	m.logger.Warnf("%v", WrapUnsupportedScopeError(kind))
}

func (m *Manager) requireUnit(u *Unit, kind scope.Kind) bool {
	if u == nil {
		m.logger.Warnf("作用域 %s 需要执行单元", kind)
		return false
	}
	return true
}
