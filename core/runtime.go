package core

import (
	"fmt"
	"os"

	"github.com/gocrud/bitlog/logging"
)

// Runtime 运行时状态容器
type Runtime struct {
	// Features 存放构建时特性 (web.Builder 等)
	Features FeatureCollection

	// Lifecycle 生命周期管理
	Lifecycle *LifecycleEvents

	// Logging 日志上下文，Run 在最后关闭它
	Logging *logging.Manager

	// shutdownCh 用于通知应用退出
	shutdownCh chan struct{}

	// ErrorHandler 用于记录运行时产生的严重错误
	// 设置了日志上下文后默认写入 "bitlog.runtime" Logger
	ErrorHandler func(err error)
}

// NewRuntime 创建一个新的运行时实例
func NewRuntime() *Runtime {
	rt := &Runtime{
		Lifecycle:  NewLifecycle(),
		shutdownCh: make(chan struct{}),
	}
	rt.ErrorHandler = func(err error) {
		if rt.Logging != nil {
			rt.Logger("bitlog.runtime").Error("runtime error", logging.Err(err))
			return
		}
		fmt.Fprintf(os.Stderr, "[Runtime Error] %v\n", err)
	}
	return rt
}

// Shutdown 请求应用退出
func (rt *Runtime) Shutdown() {
	select {
	case <-rt.shutdownCh:
	default:
		close(rt.shutdownCh)
	}
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Logger 从日志上下文获取 Logger，未设置日志上下文时返回丢弃全部记录的 Logger
func (rt *Runtime) Logger(name string) *logging.Logger {
	if rt.Logging == nil {
		return logging.Discard()
	}
	return rt.Logging.GetLogger(name)
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}
