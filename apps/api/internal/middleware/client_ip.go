package middleware

import (
	"context"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	headerXRealIP       = "X-Real-IP"
	headerXForwardedFor = "X-Forwarded-For"
)

// GetClientIP 从 Gin Context 中获取客户端真实 IP
// 优先级：X-Real-IP > X-Forwarded-For > RemoteAddr
func GetClientIP(c *gin.Context) string {
	// 1. 优先使用反向代理设置的真实 IP
	if ip := c.GetHeader(headerXRealIP); ip != "" {
		return strings.TrimSpace(ip)
	}

	// 2. 使用 X-Forwarded-For（代理链），取第一个 IP（原始客户端）
	if xff := c.GetHeader(headerXForwardedFor); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// 3. 使用 Gin 的 ClientIP 方法（包含 RemoteAddr 逻辑）
	return c.ClientIP()
}

// GetClientIPSafe 安全获取 IP（包含验证）
func GetClientIPSafe(c *gin.Context) (string, bool) {
	ip := GetClientIP(c)
	if ip == "" {
		return "", false
	}

	if net.ParseIP(ip) == nil {
		return "", false
	}

	return ip, true
}

// ClientIPMiddleware 注入 IP 到 Context
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := GetClientIP(c)

		// 注入到 Gin Context
		c.Set("client_ip", ip)

		// 注入到 request context（传递给下游）
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, "client_ip", ip)
		*c.Request = *c.Request.WithContext(ctx)

		c.Next()
	}
}

// ClientIPFromGinContext 从 Gin Context 获取 IP（便捷方法）
func ClientIPFromGinContext(c *gin.Context) string {
	if ip, exists := c.Get("client_ip"); exists {
		if ipStr, ok := ip.(string); ok {
			return ipStr
		}
	}
	return ""
}
