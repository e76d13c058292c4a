package middleware

import (
	"MeetServer/consts"
	"MeetServer/pkg/logger"
	"MeetServer/pkg/result"
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeoutMiddleware 请求超时控制中间件
// 不开启额外 Goroutine，依赖下游对 Context 的感知：
// DB/Redis/MinIO 客户端发现 ctx 超时会自行返回 deadline exceeded。
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// 后置兜底：Handler 已经自行处理并回包的场景不再介入
		if ctx.Err() == context.DeadlineExceeded {
			if !c.Writer.Written() {
				logCtx := NewContextWithGin(c)
				logger.Warn(logCtx, "请求超时强制断开",
					logger.String("path", c.Request.URL.Path),
					logger.Duration("timeout", timeout),
				)
				result.Fail(c, nil, consts.CodeServiceUnavailable)
			}
		}
	}
}
