package bitlog

import (
	"errors"
	"io/fs"
	"os"

	"github.com/gocrud/bitlog/core"
	"github.com/gocrud/bitlog/logconf"
	"github.com/gocrud/bitlog/logging"
)

// LoadLogging 加载日志配置文件
// path 为空或文件不存在时使用内置的默认配置
func LoadLogging(path string, opts ...logconf.Option) (*logging.Manager, error) {
	if path == "" {
		return logconf.Default(opts...)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return logconf.Default(opts...)
	}
	return logconf.Load(path, opts...)
}

// WithLogConfig 从配置文件构建日志上下文并交给 Runtime 管理
func WithLogConfig(path string, opts ...logconf.Option) core.Option {
	return func(rt *core.Runtime) error {
		m, err := LoadLogging(path, opts...)
		if err != nil {
			return err
		}
		if err := core.WithLogging(m)(rt); err != nil {
			m.Close()
			return err
		}
		return nil
	}
}
