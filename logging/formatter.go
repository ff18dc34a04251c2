package logging

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Formatter 日志格式化接口
type Formatter interface {
	// Format 格式化日志记录，返回以换行结尾的一行（或多行）文本
	Format(rec *Record) ([]byte, error)
}

// DefaultDateFormat 默认日期格式（strftime 语法）
const DefaultDateFormat = "%Y-%m-%d %H:%M:%S (%Z)"

// compileDateFormat 编译 strftime 日期格式，非法格式在配置加载阶段即报错
func compileDateFormat(pattern string) (*strftime.Strftime, error) {
	p, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid date format %q: %w", pattern, err)
	}
	return p, nil
}

// inZone 按 UTC 或本地时区转换时间
func inZone(t time.Time, utc bool) time.Time {
	if utc {
		return t.UTC()
	}
	return t.Local()
}
