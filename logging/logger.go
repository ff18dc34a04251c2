package logging

// Logger 命名的日志记录器
// args 中实现了 Option 的值（Field、Event、Data、Err）作为结构化附加信息，
// 其余值作为位置参数交给 fmt.Sprintf 格式化消息模板。
type Logger struct {
	manager *Manager
	name    string
	node    *node
	fields  []Field
}

// Name 返回 Logger 名称
func (l *Logger) Name() string {
	return l.name
}

// IsEnabledFor 判断该级别的记录是否会被创建
func (l *Logger) IsEnabledFor(level LogLevel) bool {
	if l.manager.closed.Load() || l.node.disabled {
		return false
	}
	return level >= l.node.effectiveLevel()
}

// EffectiveLevel 返回生效的级别
func (l *Logger) EffectiveLevel() LogLevel {
	return l.node.effectiveLevel()
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Log(LogLevelDebug, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Log(LogLevelInfo, msg, args...)
}

func (l *Logger) Warning(msg string, args ...any) {
	l.Log(LogLevelWarning, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Log(LogLevelError, msg, args...)
}

func (l *Logger) Critical(msg string, args ...any) {
	l.Log(LogLevelCritical, msg, args...)
}

// Exception 以 ERROR 级别记录错误
func (l *Logger) Exception(err error, msg string, args ...any) {
	// 复制一份，避免写入调用方切片的剩余容量
	withErr := make([]any, len(args), len(args)+1)
	copy(withErr, args)
	l.Log(LogLevelError, msg, append(withErr, Err(err))...)
}

// Log 以指定级别记录
func (l *Logger) Log(level LogLevel, msg string, args ...any) {
	if !l.IsEnabledFor(level) {
		return
	}
	l.manager.dispatch(l.newRecord(level, msg, args), l.node)
}

// WithFields 返回附带固定字段的 Logger
func (l *Logger) WithFields(fields ...Field) *Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{
		manager: l.manager,
		name:    l.name,
		node:    l.node,
		fields:  merged,
	}
}

func (l *Logger) newRecord(level LogLevel, msg string, args []any) *Record {
	rec := &Record{
		Time:     l.manager.clock(),
		Level:    level,
		Logger:   l.name,
		Template: msg,
	}
	if len(l.fields) > 0 {
		rec.Fields = append(make([]Field, 0, len(l.fields)), l.fields...)
	}

	for _, arg := range args {
		if opt, ok := arg.(Option); ok {
			opt.apply(rec)
			continue
		}
		rec.Args = append(rec.Args, arg)
	}

	rec.Message = renderMessage(msg, rec.Args, rec.EventData)
	return rec
}
