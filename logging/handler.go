package logging

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed 向已关闭的 Sink 写入
var ErrClosed = errors.New("logging: sink closed")

// Sink 日志输出目标
type Sink interface {
	// Write 写入一条已格式化的记录，rec 供需要结构化字段的 Sink 使用
	Write(p []byte, rec *Record) error
	Close() error
}

// ErrorReporter 报告 Handler 运行期错误
type ErrorReporter func(handler string, err error)

// HandlerOptions Handler 选项
type HandlerOptions struct {
	Name      string
	Level     LogLevel
	Formatter Formatter
	Filters   []Filter
	Sink      Sink
}

// Handler 日志处理器
// 记录需满足 rec.Level >= Level 且所有 Filter 都接受才会写入 Sink。
// 写入按 Handler 串行化；格式化、过滤、写入中的错误和 panic 都被隔离在本 Handler 内，
// 同一错误序列只报告一次，记录本身被丢弃。
type Handler struct {
	name      string
	level     LogLevel
	formatter Formatter
	filters   []Filter
	sink      Sink
	mu        sync.Mutex

	// failMu 单独保护错误状态，异步 Sink 的回调不会与 Close 互相等待
	failMu   sync.Mutex
	reporter ErrorReporter
	failing  bool
}

// NewHandler 创建日志处理器
func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Name == "" {
		return nil, errors.New("handler name is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("handler %q: sink is required", opts.Name)
	}
	if opts.Formatter == nil {
		f, err := NewPlainFormatter("", false)
		if err != nil {
			return nil, err
		}
		opts.Formatter = f
	}

	h := &Handler{
		name:      opts.Name,
		level:     opts.Level,
		formatter: opts.Formatter,
		filters:   opts.Filters,
		sink:      opts.Sink,
	}

	// 异步 Sink 在后台协程中出错，通过回调交回本 Handler 报告
	if es, ok := opts.Sink.(interface{ SetErrorHandler(func(error)) }); ok {
		es.SetErrorHandler(h.fail)
	}
	return h, nil
}

// Name 返回名称
func (h *Handler) Name() string {
	return h.name
}

// Level 返回级别
func (h *Handler) Level() LogLevel {
	return h.level
}

// Formatter 返回格式化器
func (h *Handler) Formatter() Formatter {
	return h.formatter
}

// Filters 返回过滤器
func (h *Handler) Filters() []Filter {
	return h.filters
}

// Sink 返回输出目标
func (h *Handler) Sink() Sink {
	return h.sink
}

// setReporter 由 Manager 在构建时设置
func (h *Handler) setReporter(r ErrorReporter) {
	h.failMu.Lock()
	defer h.failMu.Unlock()
	h.reporter = r
}

// Handle 处理一条记录
func (h *Handler) Handle(rec *Record) {
	if rec.Level < h.level {
		return
	}

	ok, err := h.accept(rec)
	if err != nil {
		h.fail(err)
		return
	}
	if !ok {
		return
	}

	data, err := h.format(rec)
	if err != nil {
		h.fail(err)
		return
	}

	h.mu.Lock()
	err = h.write(data, rec)
	h.mu.Unlock()

	if err != nil {
		h.fail(err)
		return
	}
	h.recovered()
}

// Close 关闭 Sink
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sink.Close()
}

func (h *Handler) accept(rec *Record) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("filter panicked: %v", r)
		}
	}()
	for _, f := range h.filters {
		if !f.Accept(rec) {
			return false, nil
		}
	}
	return true, nil
}

func (h *Handler) format(rec *Record) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("formatter panicked: %v", r)
		}
	}()
	return h.formatter.Format(rec)
}

func (h *Handler) write(data []byte, rec *Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return h.sink.Write(data, rec)
}

func (h *Handler) recovered() {
	h.failMu.Lock()
	h.failing = false
	h.failMu.Unlock()
}

func (h *Handler) fail(err error) {
	h.failMu.Lock()
	defer h.failMu.Unlock()
	if h.failing {
		return
	}
	h.failing = true
	if h.reporter != nil {
		h.reporter(h.name, err)
	}
}
