package logconf

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/gocrud/bitlog/logging"
)

// ConfigError 配置文档中的全部问题
// 只要存在任何问题就不会生成 Manager
type ConfigError struct {
	Problems []error
}

func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("logconf: %d configuration problem(s): %s", len(e.Problems), strings.Join(msgs, "; "))
}

// Unwrap 支持 errors.Is / errors.As
func (e *ConfigError) Unwrap() []error {
	return e.Problems
}

type pendingHandler struct {
	name   string
	config logging.HandlerConfig
	open   Opener
	async  bool
	buffer int
}

// Link 把文档链接成日志上下文
// 先构建格式化器、过滤器并校验全部 Handler 和 Logger，全部通过后才打开 Sink
func Link(doc *Document, opts ...Option) (*logging.Manager, error) {
	o := newOptions(opts)
	if o.debug {
		doc = withDebug(doc)
	}
	if o.env.LogDir != "" {
		if err := os.MkdirAll(o.env.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("logconf: failed to create log dir: %w", err)
		}
	}
	return link(doc, o)
}

func link(doc *Document, o *options) (*logging.Manager, error) {
	var problems []error
	add := func(errs ...error) {
		problems = append(problems, errs...)
	}

	if doc.Version != SupportedVersion {
		add(fmt.Errorf("unsupported version %d, expected %d", doc.Version, SupportedVersion))
	}

	builder := logging.NewLoggingBuilder()
	reg := o.registry

	for _, name := range sortedKeys(doc.Formatters) {
		spec := doc.Formatters[name]
		class := spec.Class()
		if class == "" {
			class = "plain"
		}
		factory, ok := reg.formatter(class)
		if !ok {
			add(fmt.Errorf("formatter %q: unknown class %q", name, class))
			continue
		}
		p := newParams("formatter", name, spec)
		f, err := factory(p, o.env)
		add(p.Err()...)
		if err != nil {
			add(fmt.Errorf("formatter %q: %w", name, err))
			continue
		}
		if f != nil {
			builder.AddFormatter(name, f)
		}
	}

	for _, name := range sortedKeys(doc.Filters) {
		spec := doc.Filters[name]
		class := spec.Class()
		if class == "" {
			class = "logger_name"
		}
		factory, ok := reg.filter(class)
		if !ok {
			add(fmt.Errorf("filter %q: unknown class %q", name, class))
			continue
		}
		p := newParams("filter", name, spec)
		f, err := factory(p, o.env)
		add(p.Err()...)
		if err != nil {
			add(fmt.Errorf("filter %q: %w", name, err))
			continue
		}
		if f != nil {
			builder.AddFilter(name, f)
		}
	}

	var pending []pendingHandler
	for _, name := range sortedKeys(doc.Handlers) {
		h, errs := linkHandler(doc, reg, o.env, name)
		add(errs...)
		if h != nil {
			pending = append(pending, *h)
		}
	}

	root := LoggerSpec{Level: "WARNING"}
	if doc.Root != nil {
		root = *doc.Root
		if root.Level == "" {
			root.Level = "WARNING"
		}
	}
	rootConfig, errs := linkLogger(doc, logging.RootLoggerName, root)
	add(errs...)
	builder.SetRoot(rootConfig)

	for _, name := range sortedKeys(doc.Loggers) {
		cfg, errs := linkLogger(doc, name, doc.Loggers[name])
		add(errs...)
		builder.AddLogger(name, cfg)
	}

	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}

	// 校验全部通过后才打开文件和连接
	var opened []logging.Sink
	for _, h := range pending {
		sink, err := h.open()
		if err != nil {
			add(fmt.Errorf("handler %q: %w", h.name, err))
			continue
		}
		if h.async {
			sink = logging.NewAsyncSink(sink, h.buffer)
		}
		opened = append(opened, sink)
		h.config.Sink = sink
		builder.AddHandler(h.name, h.config)
	}
	if len(problems) > 0 {
		for _, s := range opened {
			s.Close()
		}
		return nil, &ConfigError{Problems: problems}
	}

	if o.env.Clock != nil {
		builder.UseClock(o.env.Clock)
	}
	if o.reporter != nil {
		builder.UseErrorReporter(o.reporter)
	}
	if doc.DisableExistingLoggers != nil {
		builder.DisableExistingLoggers(*doc.DisableExistingLoggers)
	} else {
		builder.DisableExistingLoggers(true)
	}

	m, err := builder.Build()
	if err != nil {
		var buildErr *logging.BuildError
		if errors.As(err, &buildErr) {
			return nil, &ConfigError{Problems: buildErr.Problems}
		}
		return nil, &ConfigError{Problems: []error{err}}
	}
	return m, nil
}

func linkHandler(doc *Document, reg *Registry, env Env, name string) (*pendingHandler, []error) {
	spec := doc.Handlers[name]
	class := spec.Class()
	if class == "" {
		return nil, []error{fmt.Errorf("handler %q: class is required", name)}
	}
	factory, ok := reg.handler(class)
	if !ok {
		return nil, []error{fmt.Errorf("handler %q: unknown class %q", name, class)}
	}

	p := newParams("handler", name, spec)
	var errs []error

	level, err := Level(p.String("level", "")).Parse()
	if err != nil {
		errs = append(errs, fmt.Errorf("handler %q: %w", name, err))
	}

	formatter := p.String("formatter", "")
	if formatter != "" {
		if _, ok := doc.Formatters[formatter]; !ok {
			errs = append(errs, fmt.Errorf("handler %q: unknown formatter %q", name, formatter))
		}
	}

	filters := p.Strings("filters")
	for _, f := range filters {
		if _, ok := doc.Filters[f]; !ok {
			errs = append(errs, fmt.Errorf("handler %q: unknown filter %q", name, f))
		}
	}

	async := p.Bool("async", false)
	buffer := p.Int("buffer_size", 0)

	open, err := factory(p, env)
	errs = append(errs, p.Err()...)
	if err != nil {
		errs = append(errs, fmt.Errorf("handler %q: %w", name, err))
	}
	if open == nil || len(errs) > 0 {
		return nil, errs
	}

	return &pendingHandler{
		name: name,
		config: logging.HandlerConfig{
			Level:     level,
			Formatter: formatter,
			Filters:   filters,
		},
		open:   open,
		async:  async,
		buffer: buffer,
	}, nil
}

func linkLogger(doc *Document, name string, spec LoggerSpec) (logging.LoggerConfig, []error) {
	var errs []error

	level, err := spec.Level.Parse()
	if err != nil {
		errs = append(errs, fmt.Errorf("logger %q: %w", name, err))
	}

	for _, h := range spec.Handlers {
		if _, ok := doc.Handlers[h]; !ok {
			errs = append(errs, fmt.Errorf("logger %q: unknown handler %q", name, h))
		}
	}

	propagate := true
	if spec.Propagate != nil {
		propagate = *spec.Propagate
	}

	return logging.LoggerConfig{
		Level:     level,
		Handlers:  spec.Handlers,
		Propagate: propagate,
		Disabled:  spec.Disabled,
	}, errs
}

// withDebug 返回调试模式下的文档副本：console 降为 DEBUG，保留已有 Logger
func withDebug(doc *Document) *Document {
	out := *doc
	keep := false
	out.DisableExistingLoggers = &keep

	if console, ok := doc.Handlers["console"]; ok {
		out.Handlers = maps.Clone(doc.Handlers)
		c := maps.Clone(console)
		c["level"] = "DEBUG"
		out.Handlers["console"] = c
	}
	return &out
}
