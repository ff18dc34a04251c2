package logconf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocrud/bitlog/logging"
)

// Env 组件构建时可用的环境
type Env struct {
	// LogDir 相对文件路径的基准目录，空表示当前目录
	LogDir string
	// Stdout console 处理器的标准输出，默认 os.Stdout
	Stdout io.Writer
	// Stderr console 处理器 stream: stderr 时使用，默认 os.Stderr
	Stderr io.Writer
	// Clock 时间源，默认 time.Now
	Clock func() time.Time
}

// ResolvePath 相对路径按 LogDir 解析
func (e Env) ResolvePath(name string) string {
	if e.LogDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.LogDir, name)
}

func (e Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Opener 打开 Sink，只在整个文档校验通过后调用
type Opener func() (logging.Sink, error)

// FormatterFactory 根据参数创建格式化器
type FormatterFactory func(p *Params, env Env) (logging.Formatter, error)

// FilterFactory 根据参数创建过滤器
type FilterFactory func(p *Params, env Env) (logging.Filter, error)

// HandlerFactory 解析 Handler 的输出参数，返回延迟打开的 Sink
// level、formatter、filters、async、buffer_size 由链接过程统一处理
type HandlerFactory func(p *Params, env Env) (Opener, error)

// Registry 类名到构造函数的映射
type Registry struct {
	formatters map[string]FormatterFactory
	filters    map[string]FilterFactory
	handlers   map[string]HandlerFactory
	aliases    map[string]string
	mu         sync.RWMutex
}

// NewRegistry 创建只包含内置类的注册表
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[string]FormatterFactory),
		filters:    make(map[string]FilterFactory),
		handlers:   make(map[string]HandlerFactory),
		aliases:    make(map[string]string),
	}

	r.RegisterFormatter("plain", newPlainFormatter, "logging.Formatter", "bitlogging.BaseFormatter")
	r.RegisterFormatter("json", newJsonFormatter, "bitlogging.JSONFormatter", "bitlogging.formatters.JSONFormatter")
	r.RegisterFormatter("order", newOrderFormatter, "bitlogging.OrderFormatter")

	r.RegisterFilter("event_name", newEventNameFilter, "bitlogging.EventNameFilter", "bitlogging.filters.EventNameFilter")
	r.RegisterFilter("logger_name", newLoggerNameFilter, "logging.Filter")

	r.RegisterHandler("console", newConsoleHandler, "logging.StreamHandler")
	r.RegisterHandler("rotating_file", newRotatingFileHandler, "logging.handlers.TimedRotatingFileHandler")
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry 返回包含内置类和 redis、mongodb、sql 的注册表
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerStorageHandlers(defaultRegistry)
	})
	return defaultRegistry
}

// RegisterFormatter 注册格式化器类
func (r *Registry) RegisterFormatter(class string, f FormatterFactory, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[class] = f
	r.alias("formatter", class, aliases)
}

// RegisterFilter 注册过滤器类
func (r *Registry) RegisterFilter(class string, f FilterFactory, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[class] = f
	r.alias("filter", class, aliases)
}

// RegisterHandler 注册 Handler 类
func (r *Registry) RegisterHandler(class string, f HandlerFactory, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[class] = f
	r.alias("handler", class, aliases)
}

func (r *Registry) alias(kind, class string, aliases []string) {
	for _, a := range aliases {
		r.aliases[kind+":"+a] = class
	}
}

func (r *Registry) resolve(kind, class string) string {
	if target, ok := r.aliases[kind+":"+class]; ok {
		return target
	}
	return class
}

func (r *Registry) formatter(class string) (FormatterFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[r.resolve("formatter", class)]
	return f, ok
}

func (r *Registry) filter(class string) (FilterFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[r.resolve("filter", class)]
	return f, ok
}

func (r *Registry) handler(class string) (HandlerFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.handlers[r.resolve("handler", class)]
	return f, ok
}

// Classes 列出已注册的类名，按种类分组
func (r *Registry) Classes() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string][]string{
		"formatters": sortedKeys(r.formatters),
		"filters":    sortedKeys(r.filters),
		"handlers":   sortedKeys(r.handlers),
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

func newPlainFormatter(p *Params, env Env) (logging.Formatter, error) {
	return logging.NewPlainFormatter(p.String("datefmt", ""), p.Bool("utc", false))
}

func newJsonFormatter(p *Params, env Env) (logging.Formatter, error) {
	return logging.NewJsonFormatter(p.String("datefmt", ""), p.Bool("utc", false))
}

func newOrderFormatter(p *Params, env Env) (logging.Formatter, error) {
	return logging.NewOrderFormatter(p.String("datefmt", ""), p.Bool("utc", false))
}

func newEventNameFilter(p *Params, env Env) (logging.Filter, error) {
	if !p.Require("contains") {
		return nil, nil
	}
	return logging.NewEventNameFilter(p.String("contains", ""), p.String("match", ""))
}

func newLoggerNameFilter(p *Params, env Env) (logging.Filter, error) {
	return logging.NewLoggerNameFilter(p.String("name", "")), nil
}

func newConsoleHandler(p *Params, env Env) (Opener, error) {
	var out io.Writer
	switch stream := p.String("stream", "stdout"); stream {
	case "stdout", "ext://sys.stdout":
		out = env.Stdout
		if out == nil {
			out = os.Stdout
		}
	case "stderr", "ext://sys.stderr":
		out = env.Stderr
		if out == nil {
			out = os.Stderr
		}
	default:
		return nil, fmt.Errorf("unknown stream %q", stream)
	}
	color := p.Bool("color", false)

	return func() (logging.Sink, error) {
		return logging.NewConsoleSink(logging.ConsoleOptions{Output: out, ColorOutput: color}), nil
	}, nil
}

func newRotatingFileHandler(p *Params, env Env) (Opener, error) {
	// 保留数量必须显式给出，0 表示永久保留
	if !p.Require("filename", "backup_count") {
		return nil, nil
	}
	opts := logging.RotationOptions{
		Path:        env.ResolvePath(p.String("filename", "")),
		When:        normalizeWhen(p.String("when", logging.WhenMidnight)),
		Interval:    p.Int("interval", 1),
		BackupCount: p.Int("backup_count", 0),
		UTC:         p.Bool("utc", false),
		Compress:    p.Bool("compress", false),
		Clock:       env.now,
	}
	if opts.BackupCount < 0 {
		return nil, fmt.Errorf("backup_count must be non-negative")
	}
	if _, ok := validWhen[opts.When]; !ok {
		return nil, fmt.Errorf("unknown when %q", opts.When)
	}

	return func() (logging.Sink, error) {
		return logging.NewRotatingFileSink(opts)
	}, nil
}

func normalizeWhen(when string) string {
	if strings.EqualFold(when, logging.WhenMidnight) {
		return logging.WhenMidnight
	}
	return strings.ToUpper(when)
}

var validWhen = map[string]struct{}{
	logging.WhenMidnight: {},
	logging.WhenDay:      {},
	logging.WhenHour:     {},
	logging.WhenMinute:   {},
	logging.WhenSecond:   {},
}
