package middleware

import (
	"MeetServer/consts"
	"MeetServer/pkg/logger"
	"MeetServer/pkg/result"
	"net"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
)

// GinRecovery 恢复中间件
// panic 时记录堆栈并返回统一错误响应。
// stack 为 true 时把调用栈写进日志。
func GinRecovery(stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// 客户端断开连接（broken pipe）不算服务端 panic，
				// 此时连接已不可写，只记日志不回包
				var brokenPipe bool
				if ne, ok := err.(*net.OpError); ok {
					if se, ok := ne.Err.(*os.SyscallError); ok {
						errMsg := strings.ToLower(se.Error())
						if strings.Contains(errMsg, "broken pipe") ||
							strings.Contains(errMsg, "connection reset by peer") {
							brokenPipe = true
						}
					}
				}

				ctx := NewContextWithGin(c)
				httpRequest, _ := httputil.DumpRequest(c.Request, false)

				if brokenPipe {
					logger.Warn(ctx, "客户端断开连接",
						logger.String("path", c.Request.URL.Path),
						logger.Any("error", err),
						logger.String("request", string(httpRequest)),
					)
					_ = c.Error(err.(error))
					c.Abort()
					return
				}

				if stack {
					logger.Error(ctx, "请求处理 panic",
						logger.String("path", c.Request.URL.Path),
						logger.Any("error", err),
						logger.String("request", string(httpRequest)),
						logger.String("stack", string(debug.Stack())),
					)
				} else {
					logger.Error(ctx, "请求处理 panic",
						logger.String("path", c.Request.URL.Path),
						logger.Any("error", err),
						logger.String("request", string(httpRequest)),
					)
				}

				result.Fail(c, nil, consts.CodeInternalError)
				c.Abort()
			}
		}()
		c.Next()
	}
}
