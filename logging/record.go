package logging

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// F 创建字段
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Record 日志记录
// 记录一经创建即不可变，Handler 与 Formatter 只读取不修改
type Record struct {
	Time      time.Time
	Level     LogLevel
	Logger    string
	Template  string
	Args      []any
	Message   string
	EventName string
	EventData map[string]any
	Fields    []Field
	Err       error
}

// Option 记录选项，可以与位置参数混合传给 Logger 的各级别方法
type Option interface {
	apply(rec *Record)
}

func (f Field) apply(rec *Record) {
	rec.Fields = append(rec.Fields, f)
}

type eventOption string

func (o eventOption) apply(rec *Record) {
	rec.EventName = string(o)
}

type dataOption map[string]any

func (o dataOption) apply(rec *Record) {
	if rec.EventData == nil {
		rec.EventData = make(map[string]any, len(o))
	}
	maps.Copy(rec.EventData, o)
}

type errOption struct{ err error }

func (o errOption) apply(rec *Record) {
	rec.Err = o.err
}

// Event 设置事件名称，例如 "order.placed.success"
func Event(name string) Option {
	return eventOption(name)
}

// Data 设置事件数据，消息模板中的 {key} 会被替换为对应的值
func Data(data map[string]any) Option {
	return dataOption(data)
}

// Err 附加错误
func Err(err error) Option {
	return errOption{err: err}
}

// renderMessage 先按位置参数格式化，再展开 {key} 占位符
func renderMessage(template string, args []any, data map[string]any) string {
	msg := template
	if len(args) > 0 {
		msg = fmt.Sprintf(template, args...)
	}
	if len(data) > 0 && strings.IndexByte(msg, '{') >= 0 {
		msg = expandPlaceholders(msg, data)
	}
	return msg
}

// expandPlaceholders 替换已知的 {key}，未知的占位符原样保留
func expandPlaceholders(s string, data map[string]any) string {
	var b strings.Builder
	b.Grow(len(s))
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[open+1:], '}')
		if end < 0 {
			b.WriteString(s)
			break
		}
		closing := open + 1 + end
		key := s[open+1 : closing]
		if v, ok := data[key]; ok {
			b.WriteString(s[:open])
			fmt.Fprint(&b, v)
		} else {
			b.WriteString(s[:closing+1])
		}
		s = s[closing+1:]
	}
	return b.String()
}
