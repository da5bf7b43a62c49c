package scope

import "fmt"

// Kind 作用域类别
type Kind int

const (
	RequestScoped Kind = iota + 1
	SessionScoped
	ConversationScoped
	ApplicationScoped
	SingletonScoped
	DependentScoped
)

var kindNames = map[Kind]string{
	RequestScoped:      "request",
	SessionScoped:      "session",
	ConversationScoped: "conversation",
	ApplicationScoped:  "application",
	SingletonScoped:    "singleton",
	DependentScoped:    "dependent",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsKnown 是否为内置的六种作用域之一
func (k Kind) IsKnown() bool {
	_, ok := kindNames[k]
	return ok
}

// IsUnitBound 是否按执行单元绑定（Request / Session / Conversation）
func (k Kind) IsUnitBound() bool {
	return k == RequestScoped || k == SessionScoped || k == ConversationScoped
}

// ParseKind 由名称解析作用域类别
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Phase 生命周期阶段
type Phase int

const (
	Initialized Phase = iota + 1
	Destroyed
)

func (p Phase) String() string {
	switch p {
	case Initialized:
		return "initialized"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}
