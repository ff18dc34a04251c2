package sinks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gocrud/bitlog/logging"
	"github.com/google/uuid"
)

// entry 持久化 Sink 共用的记录内容
type entry struct {
	ID        string
	Time      time.Time
	Level     logging.LogLevel
	Logger    string
	Message   string
	EventName string
	EventData map[string]any
	Fields    map[string]any
	Error     string
	Line      string
}

func newEntry(p []byte, rec *logging.Record) entry {
	e := entry{
		ID:        uuid.NewString(),
		Time:      rec.Time.UTC(),
		Level:     rec.Level,
		Logger:    rec.Logger,
		Message:   rec.Message,
		EventName: rec.EventName,
		EventData: rec.EventData,
		Line:      string(p),
	}
	if len(rec.Fields) > 0 {
		e.Fields = make(map[string]any, len(rec.Fields))
		for _, f := range rec.Fields {
			e.Fields[f.Key] = f.Value
		}
	}
	if rec.Err != nil {
		e.Error = rec.Err.Error()
	}
	return e
}

// encodeJSON 序列化为 JSON 文本，无法序列化的值退化为字符串
func encodeJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err == nil {
		return string(data)
	}

	safe := make(map[string]any, len(m))
	for k, v := range m {
		if _, err := json.Marshal(v); err != nil {
			safe[k] = fmt.Sprintf("%v", v)
		} else {
			safe[k] = v
		}
	}
	data, _ = json.Marshal(safe)
	return string(data)
}
