package logconf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/gocrud/bitlog/logging"
)

// SupportedVersion 唯一支持的文档版本
const SupportedVersion = 1

// Document 日志配置文档
type Document struct {
	Version                int                   `json:"version"`
	DisableExistingLoggers *bool                 `json:"disable_existing_loggers,omitempty"`
	Root                   *LoggerSpec           `json:"root,omitempty"`
	Loggers                map[string]LoggerSpec `json:"loggers,omitempty"`
	Formatters             map[string]Component  `json:"formatters,omitempty"`
	Filters                map[string]Component  `json:"filters,omitempty"`
	Handlers               map[string]Component  `json:"handlers,omitempty"`
}

// LoggerSpec Logger 节点配置
type LoggerSpec struct {
	Level     Level    `json:"level,omitempty"`
	Handlers  []string `json:"handlers,omitempty"`
	Propagate *bool    `json:"propagate,omitempty"`
	Disabled  bool     `json:"disabled,omitempty"`
}

// Level 级别名称或数字，环境变量覆盖后可能是数字
type Level string

// UnmarshalJSON 同时接受字符串和数字
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Level(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("level must be a name or a number: %s", data)
	}
	*l = Level(n.String())
	return nil
}

// Parse 解析级别，空值表示 NOTSET
func (l Level) Parse() (logging.LogLevel, error) {
	if l == "" {
		return logging.LogLevelNotSet, nil
	}
	return logging.ParseLevel(string(l))
}

// Component formatters、filters、handlers 中单个组件的原始参数
// 键名统一转换为 snake_case，"()" 视为 class
type Component map[string]any

// UnmarshalJSON 规范化键名
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Component, len(raw))
	for k, v := range raw {
		key := normalizeKey(k)
		// snake_case 写法优先于同义的 camelCase 写法
		if _, exists := out[key]; exists && key != k {
			continue
		}
		out[key] = v
	}
	*c = out
	return nil
}

// Class 返回组件类名
func (c Component) Class() string {
	s, _ := c["class"].(string)
	return s
}

func normalizeKey(k string) string {
	if k == "()" {
		return "class"
	}
	var b strings.Builder
	for i, r := range k {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stringValue 把标量统一转成字符串，数字不带多余的小数
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}
