package bitlog

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/bitlog/core"
)

// ShutdownTimeout 优雅关闭的超时时间
var ShutdownTimeout = 5 * time.Second

// Run 启动应用程序，收到 SIGINT/SIGTERM 或运行时请求退出时优雅关闭
func Run(opts ...core.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, opts...)
}

// RunContext 与 Run 相同，但由 ctx 控制退出
func RunContext(ctx context.Context, opts ...core.Option) error {
	rt := core.NewRuntime()

	// 1. Bootstrap (应用所有选项)
	if err := rt.Apply(opts...); err != nil {
		closeLogging(rt)
		return err
	}

	// 2. Start Lifecycle (启动生命周期)
	startCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := rt.Lifecycle.Start(startCtx); err != nil {
		stopErr := shutdown(rt)
		return errors.Join(err, stopErr)
	}
	rt.Logger("bitlog.runtime").Debug("runtime started")

	// 3. 阻塞直到外部取消或运行时内部请求退出 (例如关键服务崩溃)
	select {
	case <-ctx.Done():
	case <-rt.Done():
	}

	// 4. Graceful Shutdown (优雅关闭)
	return shutdown(rt)
}

// shutdown 倒序执行停止钩子，最后关闭日志上下文
func shutdown(rt *core.Runtime) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	rt.Logger("bitlog.runtime").Debug("runtime stopping")
	err := rt.Lifecycle.Stop(shutdownCtx)
	if err != nil {
		rt.ErrorHandler(err)
	}
	return errors.Join(err, closeLogging(rt))
}

func closeLogging(rt *core.Runtime) error {
	if rt.Logging == nil {
		return nil
	}
	return rt.Logging.Close()
}
