package logging

import (
	"fmt"

	"github.com/lestrrat-go/strftime"
)

// orderKeys 订单摘要需要的事件数据键
var orderKeys = []string{"exchange", "side", "volume", "base", "price", "quote"}

// OrderFormatter 订单摘要格式化器
// 输出格式: "{asctime} {event_name:<20} -- {exchange} {side} {volume} {base} @ {price} {quote} ({order_id})"
// 事件数据缺少任一交易键时（撤单、失败等事件）退化为 "{asctime} {event_name:<20} -- {message}"
type OrderFormatter struct {
	pattern *strftime.Strftime
	utc     bool
}

// NewOrderFormatter 创建订单格式化器
func NewOrderFormatter(datefmt string, utc bool) (*OrderFormatter, error) {
	if datefmt == "" {
		datefmt = "%Y-%m-%d %H:%M:%S"
	}
	p, err := compileDateFormat(datefmt)
	if err != nil {
		return nil, err
	}
	return &OrderFormatter{pattern: p, utc: utc}, nil
}

// Format 格式化日志
func (f *OrderFormatter) Format(rec *Record) ([]byte, error) {
	buffer := GlobalBufferPool.Get()
	defer GlobalBufferPool.Put(buffer)

	buffer.WriteString(f.pattern.FormatString(inZone(rec.Time, f.utc)))
	fmt.Fprintf(buffer, " %-20s -- ", rec.EventName)

	if values, ok := orderValues(rec.EventData); ok {
		fmt.Fprintf(buffer, "%v %v %v %v @ %v %v", values...)
		if id, ok := rec.EventData["order_id"]; ok && id != nil && fmt.Sprint(id) != "" {
			fmt.Fprintf(buffer, " (%v)", id)
		}
	} else {
		buffer.WriteString(rec.Message)
	}
	buffer.WriteByte('\n')

	result := make([]byte, buffer.Len())
	copy(result, buffer.Bytes())
	return result, nil
}

// orderValues 按 orderKeys 顺序取出交易字段，缺少任一键返回 false
func orderValues(data map[string]any) ([]any, bool) {
	values := make([]any, len(orderKeys))
	for i, key := range orderKeys {
		v, ok := data[key]
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}
