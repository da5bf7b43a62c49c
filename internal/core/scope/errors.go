package scope

import (
	"errors"
	"fmt"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// ============================================================================
//                              作用域错误定义
// ============================================================================

var (
	// ErrUnsupportedScope 作用域类别不受支持（仅记录警告，不向调用方抛出）
	ErrUnsupportedScope = errors.New("unsupported scope")

	// ErrContextNotActive 访问未激活上下文的属性
	ErrContextNotActive = errors.New("context not active")

	// ErrContextKindMismatch 绑定的上下文与声明的作用域类别不一致
	ErrContextKindMismatch = errors.New("context kind mismatch")

	// ErrConversationMissing 令牌指向的长会话不存在或仍为临时状态
	ErrConversationMissing = errors.New("conversation missing")

	// ErrBusyConversation 长会话正被其它请求占用
	ErrBusyConversation = errors.New("conversation busy")

	// ErrConversationState 长会话状态迁移非法（重复 Begin、对临时会话 End 等）
	ErrConversationState = errors.New("illegal conversation state transition")

	// ErrSessionContextConstruction 会话上下文构造失败（记录后回落到默认实现）
	ErrSessionContextConstruction = errors.New("session context construction failed")

	// ErrDeferredActionFailed 请求结束时的延迟动作失败
	ErrDeferredActionFailed = errors.New("deferred action failed")

	// ErrNoRequestBound 当前执行单元没有绑定请求上下文
	ErrNoRequestBound = errors.New("no request bound")
)

// BusyConversationError 并发进入同一长会话
type BusyConversationError struct {
	ConversationID string
	SessionID      string
}

func (e *BusyConversationError) Error() string {
	return fmt.Sprintf("%s: conversationID=%s, sessionID=%s", ErrBusyConversation, e.ConversationID, e.SessionID)
}

// Is 使 errors.Is(err, ErrBusyConversation) 成立
func (e *BusyConversationError) Is(target error) bool {
	return target == ErrBusyConversation
}

// ============================================================================
//                               错误包装函数
// ============================================================================

// WrapUnsupportedScopeError 包装不支持的作用域错误
func WrapUnsupportedScopeError(kind scope.Kind) error {
	return fmt.Errorf("%w: kind=%s", ErrUnsupportedScope, kind)
}

// WrapContextNotActiveError 包装上下文未激活错误
func WrapContextNotActiveError(kind scope.Kind, attribute string) error {
	return fmt.Errorf("%w: kind=%s, attribute=%s", ErrContextNotActive, kind, attribute)
}

// WrapContextKindMismatchError 包装类别不一致错误
func WrapContextKindMismatchError(want scope.Kind, got scope.Context) error {
	if got == nil {
		return fmt.Errorf("%w: want=%s, got=nil", ErrContextKindMismatch, want)
	}
	return fmt.Errorf("%w: want=%s, got=%s", ErrContextKindMismatch, want, got.Kind())
}

// WrapConversationMissingError 包装长会话缺失错误
func WrapConversationMissingError(token, sessionID string) error {
	return fmt.Errorf("%w: token=%s, sessionID=%s", ErrConversationMissing, token, sessionID)
}

// WrapConversationStateError 包装长会话状态迁移错误
func WrapConversationStateError(conversationID, reason string) error {
	return fmt.Errorf("%w: conversationID=%s, reason=%s", ErrConversationState, conversationID, reason)
}

// WrapSessionContextConstructionError 包装会话上下文构造错误
func WrapSessionContextConstructionError(typeName string, err error) error {
	return fmt.Errorf("%w: type=%s, cause=%v", ErrSessionContextConstruction, typeName, err)
}

// WrapDeferredActionError 包装延迟动作错误
func WrapDeferredActionError(index int, err error) error {
	return fmt.Errorf("%w: index=%d, cause=%v", ErrDeferredActionFailed, index, err)
}
