package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/bitlog/logging"
)

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger      *logging.Logger
	port        int
	engine      *gin.Engine
	controllers []Controller
}

// NewBuilder 创建 Web 构建器
// 引擎不带任何中间件，由 UseLogger 安装访问日志与 panic 恢复
func NewBuilder() *Builder {
	// 设置 Gin 为发布模式（默认）
	gin.SetMode(gin.ReleaseMode)

	return &Builder{
		port:   8080,
		engine: gin.New(),
	}
}

// UseLogger 设置日志记录器，并安装 AccessLog 与 Recovery 中间件
// Recovery 位于内层，panic 请求同样会留下访问日志
func (b *Builder) UseLogger(logger *logging.Logger) *Builder {
	b.logger = logger
	b.engine.Use(AccessLog(logger), Recovery(logger))
	return b
}

// UsePort 设置端口，0 表示随机端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// Controller 简单的控制器接口标记
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// AddControllers 注册控制器，路由在 Host 启动时挂载
func (b *Builder) AddControllers(controllers ...Controller) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// Build 构建 Web 主机
func (b *Builder) Build() *Host {
	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Host{
		port:        b.port,
		engine:      b.engine,
		controllers: b.controllers,
		logger:      logger,
		ready:       make(chan struct{}),
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", b.port),
			Handler: b.engine,
		},
	}
}

// Host Web 主机，实现 core.HostedService
type Host struct {
	port        int
	engine      *gin.Engine
	server      *http.Server
	logger      *logging.Logger
	controllers []Controller
	mountOnce   sync.Once
	ready       chan struct{}
}

// Address 获取监听地址 (e.g., "[::]:50234")
// 仅在 Ready 关闭后有效
func (h *Host) Address() string {
	if h.server != nil {
		return h.server.Addr
	}
	return ""
}

// Ready 返回一个通道，端口监听成功后关闭
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}

// Handler 返回挂载了全部控制器的 http.Handler
func (h *Host) Handler() http.Handler {
	h.mountControllers()
	return h.engine
}

// Start 启动 Web 主机
// 注意：此方法会阻塞，直到服务退出。框架会在独立的 Goroutine 中调用它。
func (h *Host) Start(ctx context.Context) error {
	h.mountControllers()

	// 监听端口 (同步，确保端口可用)
	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}

	h.server.Addr = ln.Addr().String()
	close(h.ready)

	h.logger.Info("web host started", logging.F("address", h.server.Addr))

	// Serve 会一直阻塞直到 Shutdown 被调用或发生错误
	if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		h.logger.Exception(err, "web host error")
		return err
	}
	return nil
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("stopping web host")

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Exception(err, "failed to shutdown web host gracefully")
		return err
	}

	h.logger.Info("web host stopped")
	return nil
}

func (h *Host) mountControllers() {
	h.mountOnce.Do(func() {
		for _, ctrl := range h.controllers {
			ctrl.MountRoutes(h.engine)
			h.logger.Debug("mapped controller routes", logging.F("controller", fmt.Sprintf("%T", ctrl)))
		}
	})
}
