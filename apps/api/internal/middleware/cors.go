package middleware

import (
	"github.com/gin-gonic/gin"
)

// CorsMiddleware 跨域中间件
// Telegram WebApp 和 Web 端都会跨域访问，按请求 Origin 回显。
func CorsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		c.Header("Access-Control-Allow-Origin", origin) // 返回请求的具体 Origin，不能是 *
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, x-requested-with")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin") // 告诉浏览器 Origin 值会变化

		// 处理 OPTIONS 预检请求
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
