package scope

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// Metrics 作用域生命周期指标
//
// 方法对 nil 接收者安全，关闭指标时管理器持有 nil。
type Metrics struct {
	transitions      *prometheus.CounterVec
	busyRejections   prometheus.Counter
	deferredFailures prometheus.Counter
	unsupported      *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册指标；sessions / conversations 用于实时数量采样
func NewMetrics(reg prometheus.Registerer, sessions, conversations func() float64) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scoped",
				Subsystem: "scope",
				Name:      "transitions_total",
				Help:      "Scope lifecycle transitions by kind and phase",
			},
			[]string{"kind", "phase"},
		),
		busyRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scoped",
			Subsystem: "conversation",
			Name:      "busy_rejections_total",
			Help:      "Requests rejected because the conversation was in use",
		}),
		deferredFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scoped",
			Subsystem: "request",
			Name:      "deferred_action_failures_total",
			Help:      "End-of-request deferred actions that returned an error or panicked",
		}),
		unsupported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scoped",
				Subsystem: "scope",
				Name:      "unsupported_total",
				Help:      "Start/end calls for unsupported scope kinds",
			},
			[]string{"kind"},
		),
	}

	if sessions != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "scoped",
			Subsystem: "session",
			Name:      "registered",
			Help:      "Session contexts currently registered",
		}, sessions)
	}
	if conversations != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "scoped",
			Subsystem: "conversation",
			Name:      "long_running",
			Help:      "Long-running conversations currently registered",
		}, conversations)
	}

	return m
}

func (m *Metrics) observeTransition(kind scope.Kind, phase scope.Phase) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind.String(), phase.String()).Inc()
}

func (m *Metrics) observeBusy() {
	if m == nil {
		return
	}
	m.busyRejections.Inc()
}

func (m *Metrics) observeDeferredFailure() {
	if m == nil {
		return
	}
	m.deferredFailures.Inc()
}

func (m *Metrics) observeUnsupported(kind scope.Kind) {
	if m == nil {
		return
	}
	m.unsupported.WithLabelValues(kind.String()).Inc()
}
