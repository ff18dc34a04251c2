package core

import (
	"fmt"

	"github.com/gocrud/bitlog/logging"
)

// WithLogging 设置日志上下文
// 日志上下文由 Runtime 接管，应用退出时在所有停止钩子之后关闭
func WithLogging(m *logging.Manager) Option {
	return func(rt *Runtime) error {
		if m == nil {
			return fmt.Errorf("WithLogging: manager is nil")
		}
		if rt.Logging != nil && rt.Logging != m {
			return fmt.Errorf("WithLogging: logging already configured")
		}
		rt.Logging = m
		return nil
	}
}
