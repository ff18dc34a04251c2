package logging

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LogLevel 日志级别
// 数值越大越严重，LogLevelNotSet 表示继承父节点的级别
type LogLevel int

const (
	LogLevelNotSet   LogLevel = 0
	LogLevelDebug    LogLevel = 10
	LogLevelInfo     LogLevel = 20
	LogLevelWarning  LogLevel = 30
	LogLevelError    LogLevel = 40
	LogLevelCritical LogLevel = 50
)

// ErrUnknownLevel 无法识别的级别名称
var ErrUnknownLevel = errors.New("unknown log level")

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelNotSet:
		return "NOTSET"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARNING"
	case LogLevelError:
		return "ERROR"
	case LogLevelCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel 解析级别名称（不区分大小写），也接受数字
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "NOTSET":
		return LogLevelNotSet, nil
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO":
		return LogLevelInfo, nil
	case "WARNING", "WARN":
		return LogLevelWarning, nil
	case "ERROR":
		return LogLevelError, nil
	case "CRITICAL", "FATAL":
		return LogLevelCritical, nil
	}

	if n, err := strconv.Atoi(name); err == nil && n >= 0 {
		return LogLevel(n), nil
	}
	return LogLevelNotSet, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// MarshalText 实现 encoding.TextMarshaler
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (l *LogLevel) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}
