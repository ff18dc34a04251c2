package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/bitlog/logging"
)

// LoggersHandler 返回日志树快照
func LoggersHandler(manager *logging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.Describe())
	}
}

// EmitRequest POST /emit 的请求体
type EmitRequest struct {
	Logger  string         `json:"logger"`
	Level   string         `json:"level"`
	Message string         `json:"message" binding:"required"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data"`
}

// AdminController 日志管理接口
type AdminController struct {
	Manager *logging.Manager
}

// NewAdminController 创建管理控制器
func NewAdminController(manager *logging.Manager) *AdminController {
	return &AdminController{Manager: manager}
}

// MountRoutes 实现 Controller
func (a *AdminController) MountRoutes(router gin.IRouter) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/loggers", LoggersHandler(a.Manager))
	router.GET("/loggers/:name", a.getLogger)
	router.POST("/emit", a.emit)
}

func (a *AdminController) getLogger(c *gin.Context) {
	logger := a.Manager.GetLogger(c.Param("name"))
	c.JSON(http.StatusOK, gin.H{
		"name":            logger.Name(),
		"effective_level": logger.EffectiveLevel().String(),
	})
}

func (a *AdminController) emit(c *gin.Context) {
	var req EmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	level := logging.LogLevelInfo
	if req.Level != "" {
		parsed, err := logging.ParseLevel(req.Level)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		level = parsed
	}

	logger := a.Manager.GetLogger(req.Logger)
	var opts []any
	if req.Event != "" {
		opts = append(opts, logging.Event(req.Event))
	}
	if len(req.Data) > 0 {
		opts = append(opts, logging.Data(req.Data))
	}
	logger.Log(level, req.Message, opts...)

	c.JSON(http.StatusAccepted, gin.H{
		"logger":  logger.Name(),
		"level":   level.String(),
		"emitted": logger.IsEnabledFor(level),
	})
}
