package web

import (
	"github.com/gocrud/bitlog/core"
)

// HTTPLoggerName Web 主机自身使用的 Logger
const HTTPLoggerName = "bitlog.http"

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...Controller) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(controllers...)
	}
}

// New 启用 Web 管理主机
// 需在 core.WithLogging 之后应用，访问日志写入 "bitlog.http"，并挂载日志管理接口
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder().UseLogger(rt.Logger(HTTPLoggerName))
		if rt.Logging != nil {
			builder.AddControllers(NewAdminController(rt.Logging))
		}

		for _, opt := range opts {
			opt(builder)
		}

		host := builder.Build()
		rt.Features.Set(builder)
		rt.Features.Set(host)

		return core.WithHostedService(host)(rt)
	}
}
