package logconf

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Params 组件参数读取器
// 读取时记录用过的键并收集类型错误，Err 汇总错误和未识别的键
type Params struct {
	kind   string
	name   string
	values Component
	used   map[string]bool
	errs   []error
}

func newParams(kind, name string, values Component) *Params {
	return &Params{
		kind:   kind,
		name:   name,
		values: values,
		used:   map[string]bool{"class": true},
	}
}

// Name 组件名称
func (p *Params) Name() string {
	return p.name
}

// Has 判断参数是否存在
func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Errorf 记录一个参数错误
func (p *Params) Errorf(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf("%s %q: %s", p.kind, p.name, fmt.Sprintf(format, args...)))
}

// String 读取字符串参数
func (p *Params) String(key, def string) string {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	s, ok := stringValue(v)
	if !ok {
		p.Errorf("%s must be a string", key)
		return def
	}
	return s
}

// Int 读取整数参数
func (p *Params) Int(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	case int:
		return n
	}
	p.Errorf("%s must be an integer", key)
	return def
}

// Bool 读取布尔参数
func (p *Params) Bool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		p.Errorf("%s must be a boolean", key)
		return def
	}
	return b
}

// Duration 读取时长参数，接受 "1.5s" 形式或秒数
func (p *Params) Duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err == nil {
			return parsed
		}
	case float64:
		return time.Duration(d * float64(time.Second))
	}
	p.Errorf("%s must be a duration", key)
	return def
}

// Strings 读取字符串列表，单个字符串视为只有一个元素
func (p *Params) Strings(key string) []string {
	v, ok := p.lookup(key)
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return []string{s}
	}
	list, ok := v.([]any)
	if !ok {
		p.Errorf("%s must be a list of strings", key)
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			p.Errorf("%s must be a list of strings", key)
			return nil
		}
		out = append(out, s)
	}
	return out
}

// Require 参数缺失时记录错误
func (p *Params) Require(keys ...string) bool {
	ok := true
	for _, key := range keys {
		if !p.Has(key) {
			p.Errorf("%s is required", key)
			ok = false
		}
	}
	return ok
}

// Err 返回读取过程中的全部错误，包括未识别的键
func (p *Params) Err() []error {
	var unknown []string
	for key := range p.values {
		if !p.used[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	errs := p.errs
	for _, key := range unknown {
		errs = append(errs, fmt.Errorf("%s %q: unknown key %q", p.kind, p.name, key))
	}
	return errs
}

func (p *Params) lookup(key string) (any, bool) {
	p.used[key] = true
	v, ok := p.values[key]
	return v, ok
}
