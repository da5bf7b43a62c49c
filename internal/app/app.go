// Package app 组装并运行作用域服务
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

// App 应用的对外接口
type App interface {
	// Stop 停止应用
	Stop() error

	// Wait 阻塞到收到 SIGINT / SIGTERM，然后停止应用
	Wait() error
}

type internalApp struct {
	bootstrap *Bootstrap
}

func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

func (a *internalApp) Wait() error {
	sig := WaitForSignal()
	fmt.Fprintf(os.Stderr, "收到信号 %v，正在退出\n", sig)
	return a.Stop()
}

// Start 组装并启动应用
func Start(appOptions ...Option) (App, error) {
	return BootstrapApp(nil, appOptions...)
}

// BootstrapApp 执行完整的引导过程；extra 追加到 fx 选项末尾，供调用方 Populate 组件
func BootstrapApp(extra []fx.Option, appOptions ...Option) (App, error) {
	bootstrap := NewBootstrap(newOptions(appOptions...))
	if err := bootstrap.CreateFxApp(extra...); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := bootstrap.StartApp(ctx); err != nil {
		return nil, err
	}
	return &internalApp{bootstrap: bootstrap}, nil
}

// WaitForSignal 等待退出信号
func WaitForSignal() os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	return <-signals
}
