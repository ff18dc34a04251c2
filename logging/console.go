package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
)

// ConsoleOptions 控制台输出选项
type ConsoleOptions struct {
	// Output 默认 os.Stdout
	Output      io.Writer
	ColorOutput bool
}

// ConsoleSink 控制台输出
// 每条记录写完立即 Flush/Sync（如果底层 Writer 支持）
type ConsoleSink struct {
	out   io.Writer
	color bool
	mu    sync.Mutex
}

// NewConsoleSink 创建控制台输出
func NewConsoleSink(options ConsoleOptions) *ConsoleSink {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	return &ConsoleSink{
		out:   options.Output,
		color: options.ColorOutput,
	}
}

// Write 实现 Sink
func (s *ConsoleSink) Write(p []byte, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.color {
		line := p
		if n := len(line); n > 0 && line[n-1] == '\n' {
			line = line[:n-1]
		}
		p = []byte(colorize(rec.Level, string(line)) + "\n")
	}

	if _, err := s.out.Write(p); err != nil {
		return err
	}
	return s.flush()
}

// Report 输出 bitlog 自身的诊断信息
func (s *ConsoleSink) Report(handler string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "bitlog: handler %q: %v\n", handler, err)
	_ = s.flush()
}

// Close 只 flush，不关闭标准输出
func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// flush 支持 Flush 的 Writer 先 Flush；支持 Sync 的再 Sync
// 管道和终端不支持 fsync，返回的 EINVAL/ENOTSUP 忽略
func (s *ConsoleSink) flush() error {
	if f, ok := s.out.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	if f, ok := s.out.(interface{ Sync() error }); ok {
		if err := f.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) {
			return err
		}
	}
	return nil
}

// colorize 为日志行添加颜色
func colorize(level LogLevel, text string) string {
	const (
		reset   = "\033[0m"
		cyan    = "\033[36m"
		green   = "\033[32m"
		yellow  = "\033[33m"
		red     = "\033[31m"
		magenta = "\033[35m"
	)

	switch {
	case level >= LogLevelCritical:
		return magenta + text + reset
	case level >= LogLevelError:
		return red + text + reset
	case level >= LogLevelWarning:
		return yellow + text + reset
	case level >= LogLevelInfo:
		return green + text + reset
	case level >= LogLevelDebug:
		return cyan + text + reset
	default:
		return text
	}
}
