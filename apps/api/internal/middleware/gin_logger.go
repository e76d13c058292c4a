package middleware

import (
	"MeetServer/pkg/logger"
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// NewContextWithGin 从 gin.Context 创建包含 trace_id、telegram_id、user_uuid 的 context.Context
// 用于将 Gin 上下文中的身份信息传递到 Service 层和日志系统
func NewContextWithGin(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if traceId, exists := c.Get("trace_id"); exists {
		ctx = context.WithValue(ctx, "trace_id", traceId)
	}
	if telegramID, exists := c.Get("telegram_id"); exists {
		ctx = context.WithValue(ctx, "telegram_id", telegramID)
	}
	if userUUID, exists := c.Get("user_uuid"); exists {
		ctx = context.WithValue(ctx, "user_uuid", userUUID)
	}
	if clientIP, exists := c.Get("client_ip"); exists {
		ctx = context.WithValue(ctx, "client_ip", clientIP.(string))
	}
	return ctx
}

// GinLogger 接收 gin 框架默认的日志
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		clientIP := ClientIPFromGinContext(c)
		if clientIP == "" {
			clientIP = c.ClientIP()
		}
		ctx := NewContextWithGin(c)

		logger.Info(ctx, "请求开始",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.String("ip", clientIP),
		)

		c.Next()

		cost := time.Since(start)
		status := c.Writer.Status()

		// 只记录服务端错误(5xx)和慢请求(>2s),正常请求不记录
		if status >= 500 || cost > 2*time.Second {
			logger.Warn(ctx, "慢请求或服务端错误",
				logger.Int("status", status),
				logger.String("method", c.Request.Method),
				logger.String("path", path),
				logger.String("query", query),
				logger.String("ip", clientIP),
				logger.String("user-agent", c.Request.UserAgent()),
				logger.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()),
				logger.Duration("cost", cost),
			)
		}
	}
}
