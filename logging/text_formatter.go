package logging

import (
	"fmt"

	"github.com/lestrrat-go/strftime"
)

// PlainFormatter 文本格式化器
// 输出格式: "{timestamp}  {LEVEL:<8} {message}"
type PlainFormatter struct {
	pattern *strftime.Strftime
	utc     bool
}

// NewPlainFormatter 创建文本格式化器，datefmt 为空时使用 DefaultDateFormat
func NewPlainFormatter(datefmt string, utc bool) (*PlainFormatter, error) {
	if datefmt == "" {
		datefmt = DefaultDateFormat
	}
	p, err := compileDateFormat(datefmt)
	if err != nil {
		return nil, err
	}
	return &PlainFormatter{pattern: p, utc: utc}, nil
}

// Format 格式化日志
func (f *PlainFormatter) Format(rec *Record) ([]byte, error) {
	buffer := GlobalBufferPool.Get()
	defer GlobalBufferPool.Put(buffer)

	buffer.WriteString(f.pattern.FormatString(inZone(rec.Time, f.utc)))
	buffer.WriteString("  ")
	fmt.Fprintf(buffer, "%-8.8s", rec.Level.String())
	buffer.WriteByte(' ')
	buffer.WriteString(rec.Message)

	if rec.Err != nil {
		buffer.WriteString(": ")
		buffer.WriteString(rec.Err.Error())
	}

	buffer.WriteByte('\n')

	// buffer 会被归还，必须返回副本
	result := make([]byte, buffer.Len())
	copy(result, buffer.Bytes())
	return result, nil
}
