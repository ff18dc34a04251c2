package web

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/bitlog/logging"
)

const (
	// EventHTTPRequest 每个请求一条的访问日志事件
	EventHTTPRequest = "http.request"
	// EventHTTPPanic 处理请求时发生 panic
	EventHTTPPanic = "http.panic"
)

// AccessLog 访问日志中间件
// 2xx/3xx 记为 INFO，4xx 记为 WARNING，5xx 记为 ERROR
func AccessLog(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		level := logging.LogLevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = logging.LogLevelError
		case status >= http.StatusBadRequest:
			level = logging.LogLevelWarning
		}
		if !logger.IsEnabledFor(level) {
			return
		}

		latency := time.Since(start)
		args := []any{
			logging.Event(EventHTTPRequest),
			logging.Data(map[string]any{
				"method":     c.Request.Method,
				"path":       path,
				"status":     status,
				"latency_ms": float64(latency.Microseconds()) / 1000,
				"client":     c.ClientIP(),
			}),
		}
		if len(c.Errors) > 0 {
			args = append(args, logging.F("errors", c.Errors.String()))
		}
		logger.Log(level, "{method} {path} {status} {latency_ms}ms", args...)
	}
}

// Recovery 捕获处理函数中的 panic，记录 CRITICAL 并返回 500
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Critical("panic serving {method} {path}: {panic}",
					logging.Event(EventHTTPPanic),
					logging.Data(map[string]any{
						"method": c.Request.Method,
						"path":   c.Request.URL.Path,
						"panic":  fmt.Sprint(r),
					}),
					logging.F("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
