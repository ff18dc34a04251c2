package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RootLoggerName 根 Logger 的名称
const RootLoggerName = "root"

// node Logger 树节点，构建完成后只读
type node struct {
	name      string
	level     LogLevel
	handlers  []*Handler
	propagate bool
	disabled  bool
	parent    *node
}

// effectiveLevel 返回自身或最近祖先设置的级别
func (n *node) effectiveLevel() LogLevel {
	for c := n; c != nil; c = c.parent {
		if c.level != LogLevelNotSet {
			return c.level
		}
	}
	return LogLevelNotSet
}

// Manager 日志上下文
// 由 Builder 一次性构建，进程生命周期内不再修改；显式 Close 释放文件和调度器。
type Manager struct {
	root            *node
	nodes           map[string]*node
	handlers        []*Handler
	scheduler       *rotationScheduler
	clock           func() time.Time
	disableExisting bool
	closed          atomic.Bool
	closeOnce       sync.Once
	closeErr        error
}

// GetLogger 获取 Logger
// 未配置的名称绑定到最近的已配置祖先，记录中仍保留完整名称
func (m *Manager) GetLogger(name string) *Logger {
	name = strings.Trim(name, ".")
	if name == "" || name == RootLoggerName {
		return &Logger{manager: m, name: RootLoggerName, node: m.root}
	}
	return &Logger{manager: m, name: name, node: m.lookup(name)}
}

// Root 获取根 Logger
func (m *Manager) Root() *Logger {
	return m.GetLogger(RootLoggerName)
}

// Handlers 返回所有 Handler，按名称排序
func (m *Manager) Handlers() []*Handler {
	return append([]*Handler(nil), m.handlers...)
}

// Handler 按名称查找 Handler
func (m *Manager) Handler(name string) (*Handler, bool) {
	for _, h := range m.handlers {
		if h.name == name {
			return h, true
		}
	}
	return nil, false
}

// DisableExistingLoggers 返回配置文档中的同名选项
func (m *Manager) DisableExistingLoggers() bool {
	return m.disableExisting
}

// Close 关闭调度器和全部 Handler，之后的日志调用被静默丢弃
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		if m.scheduler != nil {
			m.scheduler.stop()
		}

		var errs []error
		for _, h := range m.handlers {
			if err := h.Close(); err != nil {
				errs = append(errs, fmt.Errorf("handler %q: %w", h.name, err))
			}
		}
		if len(errs) > 0 {
			m.closeErr = fmt.Errorf("errors closing handlers: %v", errs)
		}
	})
	return m.closeErr
}

func (m *Manager) lookup(name string) *node {
	for n := name; ; {
		if found, ok := m.nodes[n]; ok {
			return found
		}
		i := strings.LastIndexByte(n, '.')
		if i < 0 {
			return m.root
		}
		n = n[:i]
	}
}

// dispatch 依次交给本节点及（propagate 时）祖先节点的 Handler
// 祖先节点自身的级别不再检查，只由各 Handler 的级别和过滤器决定
func (m *Manager) dispatch(rec *Record, n *node) {
	if m.closed.Load() {
		return
	}
	for c := n; c != nil; c = c.parent {
		for _, h := range c.handlers {
			h.Handle(rec)
		}
		if !c.propagate {
			break
		}
	}
}

// LoggerInfo Logger 节点快照
type LoggerInfo struct {
	Name           string   `json:"name"`
	Level          string   `json:"level"`
	EffectiveLevel string   `json:"effective_level"`
	Handlers       []string `json:"handlers"`
	Propagate      bool     `json:"propagate"`
	Disabled       bool     `json:"disabled,omitempty"`
	Parent         string   `json:"parent,omitempty"`
}

// HandlerInfo Handler 快照
type HandlerInfo struct {
	Name      string `json:"name"`
	Level     string `json:"level"`
	Formatter string `json:"formatter"`
	Filters   int    `json:"filters"`
	Sink      string `json:"sink"`
}

// TreeInfo 整个日志树的只读快照
type TreeInfo struct {
	Loggers  []LoggerInfo  `json:"loggers"`
	Handlers []HandlerInfo `json:"handlers"`
}

// Describe 返回日志树快照，根 Logger 排在第一位
func (m *Manager) Describe() TreeInfo {
	info := TreeInfo{
		Loggers:  []LoggerInfo{describeNode(m.root)},
		Handlers: make([]HandlerInfo, 0, len(m.handlers)),
	}

	names := make([]string, 0, len(m.nodes))
	for name := range m.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		info.Loggers = append(info.Loggers, describeNode(m.nodes[name]))
	}

	for _, h := range m.handlers {
		info.Handlers = append(info.Handlers, HandlerInfo{
			Name:      h.name,
			Level:     h.level.String(),
			Formatter: typeName(h.formatter),
			Filters:   len(h.filters),
			Sink:      typeName(h.sink),
		})
	}
	return info
}

func describeNode(n *node) LoggerInfo {
	li := LoggerInfo{
		Name:           n.name,
		Level:          n.level.String(),
		EffectiveLevel: n.effectiveLevel().String(),
		Handlers:       make([]string, 0, len(n.handlers)),
		Propagate:      n.propagate,
		Disabled:       n.disabled,
	}
	for _, h := range n.handlers {
		li.Handlers = append(li.Handlers, h.name)
	}
	if n.parent != nil {
		li.Parent = n.parent.name
	}
	return li
}

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// stderrReporter 没有控制台 Handler 时的兜底报告
func stderrReporter(handler string, err error) {
	fmt.Fprintf(os.Stderr, "bitlog: handler %q: %v\n", handler, err)
}
