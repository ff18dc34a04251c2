package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// HandlerConfig Handler 配置，Formatter 与 Filters 按名称引用
type HandlerConfig struct {
	Level     LogLevel
	Formatter string
	Filters   []string
	Sink      Sink
}

// LoggerConfig Logger 节点配置，Handlers 按名称引用
type LoggerConfig struct {
	Level     LogLevel
	Handlers  []string
	Propagate bool
	Disabled  bool
}

// BuildError 汇总构建阶段发现的全部问题
type BuildError struct {
	Problems []error
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "logging: invalid configuration: " + strings.Join(msgs, "; ")
}

// Unwrap 支持 errors.Is / errors.As
func (e *BuildError) Unwrap() []error {
	return e.Problems
}

// LoggingBuilder 日志构建器
// 先按名称登记 Formatter、Filter、Handler，再在 Build 中统一解析引用并生成 Manager
type LoggingBuilder struct {
	formatters      map[string]Formatter
	filters         map[string]Filter
	handlers        map[string]HandlerConfig
	root            LoggerConfig
	loggers         map[string]LoggerConfig
	clock           func() time.Time
	reporter        ErrorReporter
	disableExisting bool
	mu              sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器，根 Logger 默认级别为 WARNING
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		formatters: make(map[string]Formatter),
		filters:    make(map[string]Filter),
		handlers:   make(map[string]HandlerConfig),
		root:       LoggerConfig{Level: LogLevelWarning},
		loggers:    make(map[string]LoggerConfig),
		clock:      time.Now,
	}
}

// AddFormatter 登记格式化器
func (b *LoggingBuilder) AddFormatter(name string, f Formatter) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.formatters[name] = f
	return b
}

// AddFilter 登记过滤器
func (b *LoggingBuilder) AddFilter(name string, f Filter) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters[name] = f
	return b
}

// AddHandler 登记 Handler
func (b *LoggingBuilder) AddHandler(name string, cfg HandlerConfig) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = cfg
	return b
}

// AddConsole 添加控制台 Handler 的快捷方式
func (b *LoggingBuilder) AddConsole(name string, level LogLevel, options ...ConsoleOptions) *LoggingBuilder {
	opts := ConsoleOptions{}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddHandler(name, HandlerConfig{Level: level, Sink: NewConsoleSink(opts)})
}

// SetRoot 配置根 Logger
func (b *LoggingBuilder) SetRoot(cfg LoggerConfig) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.root = cfg
	return b
}

// AddLogger 配置命名 Logger
func (b *LoggingBuilder) AddLogger(name string, cfg LoggerConfig) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loggers[name] = cfg
	return b
}

// UseClock 替换记录时间源
func (b *LoggingBuilder) UseClock(clock func() time.Time) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = clock
	return b
}

// UseErrorReporter 替换运行期错误报告方式
func (b *LoggingBuilder) UseErrorReporter(r ErrorReporter) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reporter = r
	return b
}

// DisableExistingLoggers 记录配置文档中的同名选项
func (b *LoggingBuilder) DisableExistingLoggers(v bool) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disableExisting = v
	return b
}

// Build 解析全部引用并构建 Manager
// 任何引用无法解析都会返回 *BuildError，并关闭已登记的 Sink
func (b *LoggingBuilder) Build() (*Manager, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var problems []error

	handlerNames := sortedKeys(b.handlers)
	handlers := make(map[string]*Handler, len(b.handlers))
	for _, name := range handlerNames {
		h, err := b.buildHandler(name, b.handlers[name])
		if err != nil {
			problems = append(problems, err)
			continue
		}
		handlers[name] = h
	}

	m := &Manager{
		nodes:           make(map[string]*node, len(b.loggers)),
		clock:           b.clock,
		disableExisting: b.disableExisting,
	}

	m.root, problems = b.buildNode(RootLoggerName, b.root, handlers, problems)
	m.root.propagate = false

	loggerNames := sortedKeys(b.loggers)
	for _, name := range loggerNames {
		if strings.Trim(name, ".") != name || name == "" || name == RootLoggerName {
			problems = append(problems, fmt.Errorf("logger %q: invalid name", name))
			continue
		}
		var n *node
		n, problems = b.buildNode(name, b.loggers[name], handlers, problems)
		m.nodes[name] = n
	}

	if len(problems) > 0 {
		b.closeSinks()
		return nil, &BuildError{Problems: problems}
	}

	// 父节点为最近的已配置祖先
	for name, n := range m.nodes {
		n.parent = m.root
		for p := name; ; {
			i := strings.LastIndexByte(p, '.')
			if i < 0 {
				break
			}
			p = p[:i]
			if parent, ok := m.nodes[p]; ok {
				n.parent = parent
				break
			}
		}
	}

	for _, name := range handlerNames {
		m.handlers = append(m.handlers, handlers[name])
	}

	reporter := b.reporter
	if reporter == nil {
		reporter = consoleReporter(m.handlers)
	}
	for _, h := range m.handlers {
		h.setReporter(reporter)
	}

	m.scheduler = newRotationScheduler(reporter)
	for _, h := range m.handlers {
		if rs, ok := unwrapSink(h.sink).(*RotatingFileSink); ok {
			if err := m.scheduler.add(h.name, rs, reporter); err != nil {
				b.closeSinks()
				return nil, &BuildError{Problems: []error{err}}
			}
		}
	}
	m.scheduler.start()

	return m, nil
}

func (b *LoggingBuilder) buildHandler(name string, cfg HandlerConfig) (*Handler, error) {
	var formatter Formatter
	if cfg.Formatter != "" {
		f, ok := b.formatters[cfg.Formatter]
		if !ok {
			return nil, fmt.Errorf("handler %q: unknown formatter %q", name, cfg.Formatter)
		}
		formatter = f
	}

	filters := make([]Filter, 0, len(cfg.Filters))
	for _, fname := range cfg.Filters {
		f, ok := b.filters[fname]
		if !ok {
			return nil, fmt.Errorf("handler %q: unknown filter %q", name, fname)
		}
		filters = append(filters, f)
	}

	return NewHandler(HandlerOptions{
		Name:      name,
		Level:     cfg.Level,
		Formatter: formatter,
		Filters:   filters,
		Sink:      cfg.Sink,
	})
}

func (b *LoggingBuilder) buildNode(name string, cfg LoggerConfig, handlers map[string]*Handler, problems []error) (*node, []error) {
	n := &node{
		name:      name,
		level:     cfg.Level,
		propagate: cfg.Propagate,
		disabled:  cfg.Disabled,
	}
	for _, hname := range cfg.Handlers {
		h, ok := handlers[hname]
		if !ok {
			if _, declared := b.handlers[hname]; !declared {
				problems = append(problems, fmt.Errorf("logger %q: unknown handler %q", name, hname))
			}
			continue
		}
		n.handlers = append(n.handlers, h)
	}
	return n, problems
}

func (b *LoggingBuilder) closeSinks() {
	for _, cfg := range b.handlers {
		if cfg.Sink != nil {
			cfg.Sink.Close()
		}
	}
}

// consoleReporter 优先把运行期错误报告到第一个控制台 Handler
func consoleReporter(handlers []*Handler) ErrorReporter {
	for _, h := range handlers {
		if cs, ok := unwrapSink(h.sink).(*ConsoleSink); ok {
			return cs.Report
		}
	}
	return stderrReporter
}

func unwrapSink(s Sink) Sink {
	for {
		u, ok := s.(interface{ Unwrap() Sink })
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
