package logging

import "os"

// NewConsoleManager 创建只输出到控制台的日志上下文
// 根 Logger 使用给定级别，适合命令行工具和测试
func NewConsoleManager(level LogLevel, color bool) *Manager {
	m, err := NewLoggingBuilder().
		AddConsole("console", LogLevelNotSet, ConsoleOptions{Output: os.Stderr, ColorOutput: color}).
		SetRoot(LoggerConfig{Level: level, Handlers: []string{"console"}}).
		Build()
	if err != nil {
		// 只有控制台 Handler，构建不会失败
		panic(err)
	}
	return m
}

// Discard 返回丢弃全部记录的 Logger
func Discard() *Logger {
	m, _ := NewLoggingBuilder().
		SetRoot(LoggerConfig{Level: LogLevelCritical + 1}).
		Build()
	return m.Root()
}
