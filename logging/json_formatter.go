package logging

import (
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/strftime"
)

// jsonTimeLayout 微秒精度，带时区偏移
const jsonTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

var reservedJSONKeys = map[string]struct{}{
	"time":       {},
	"asctime":    {},
	"level":      {},
	"logger":     {},
	"message":    {},
	"event_name": {},
	"event_data": {},
	"error":      {},
}

// JsonFormatter JSON 格式化器
// 每条记录输出一行 JSON，控制字符全部转义
type JsonFormatter struct {
	pattern *strftime.Strftime
	utc     bool
}

// NewJsonFormatter 创建 JSON 格式化器
// datefmt 非空时额外输出 asctime 字段
func NewJsonFormatter(datefmt string, utc bool) (*JsonFormatter, error) {
	f := &JsonFormatter{utc: utc}
	if datefmt != "" {
		p, err := compileDateFormat(datefmt)
		if err != nil {
			return nil, err
		}
		f.pattern = p
	}
	return f, nil
}

// Format 格式化日志
func (f *JsonFormatter) Format(rec *Record) ([]byte, error) {
	t := inZone(rec.Time, f.utc)

	data := make(map[string]any, 8+len(rec.Fields))
	data["time"] = t.Format(jsonTimeLayout)
	if f.pattern != nil {
		data["asctime"] = f.pattern.FormatString(t)
	}
	data["level"] = rec.Level.String()
	data["logger"] = rec.Logger
	data["message"] = rec.Message

	if rec.EventName != "" {
		data["event_name"] = rec.EventName
	}
	if len(rec.EventData) > 0 {
		eventData := make(map[string]any, len(rec.EventData))
		for k, v := range rec.EventData {
			eventData[k] = jsonSafe(v)
		}
		data["event_data"] = eventData
	}
	if rec.Err != nil {
		data["error"] = rec.Err.Error()
	}

	for _, field := range rec.Fields {
		key := field.Key
		if _, reserved := reservedJSONKeys[key]; reserved {
			key = "extra." + key
		}
		data[key] = jsonSafe(field.Value)
	}

	buffer := GlobalBufferPool.Get()
	defer GlobalBufferPool.Put(buffer)

	enc := json.NewEncoder(buffer)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("json formatter: %w", err)
	}

	result := make([]byte, buffer.Len())
	copy(result, buffer.Bytes())
	return result, nil
}

// jsonSafe 无法序列化的值退化为字符串，保证记录不被丢弃
func jsonSafe(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case error:
		return val.Error()
	case fmt.Stringer:
		if _, err := json.Marshal(val); err != nil {
			return val.String()
		}
		return val
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}
