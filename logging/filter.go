package logging

import (
	"fmt"
	"strings"
)

// Filter 日志过滤器
type Filter interface {
	// Accept 返回 true 表示记录可以继续交给 Handler
	Accept(rec *Record) bool
}

// FilterFunc 函数适配为 Filter
type FilterFunc func(rec *Record) bool

// Accept 实现 Filter
func (fn FilterFunc) Accept(rec *Record) bool {
	return fn(rec)
}

// 事件名匹配方式
const (
	MatchContains = "contains"
	MatchSegment  = "segment"
)

// EventNameFilter 按事件名过滤
// contains 模式下做区分大小写的子串匹配；segment 模式下要求与某个以 "." 分隔的段完全相等。
// 没有事件名的记录一律拒绝。
type EventNameFilter struct {
	contains string
	match    string
}

// NewEventNameFilter 创建事件名过滤器，match 为空时使用 contains 模式
func NewEventNameFilter(contains, match string) (*EventNameFilter, error) {
	if contains == "" {
		return nil, fmt.Errorf("event name filter: contains is required")
	}
	if match == "" {
		match = MatchContains
	}
	if match != MatchContains && match != MatchSegment {
		return nil, fmt.Errorf("event name filter: unknown match %q", match)
	}
	return &EventNameFilter{contains: contains, match: match}, nil
}

// Accept 实现 Filter
func (f *EventNameFilter) Accept(rec *Record) bool {
	if rec.EventName == "" {
		return false
	}
	if f.match == MatchSegment {
		for _, seg := range strings.Split(rec.EventName, ".") {
			if seg == f.contains {
				return true
			}
		}
		return false
	}
	return strings.Contains(rec.EventName, f.contains)
}

// LoggerNameFilter 只接受指定 Logger 及其子 Logger 的记录
type LoggerNameFilter struct {
	prefix string
}

// NewLoggerNameFilter 创建 Logger 名称过滤器，prefix 为空时接受全部
func NewLoggerNameFilter(prefix string) *LoggerNameFilter {
	return &LoggerNameFilter{prefix: prefix}
}

// Accept 实现 Filter
func (f *LoggerNameFilter) Accept(rec *Record) bool {
	if f.prefix == "" || rec.Logger == f.prefix {
		return true
	}
	return strings.HasPrefix(rec.Logger, f.prefix+".")
}
