package router

import (
	"MeetServer/apps/api/internal/middleware"
	v1 "MeetServer/apps/api/internal/router/v1"
	"MeetServer/pkg/util"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Auth       *v1.AuthHandler
	User       *v1.UserHandler
	Connection *v1.ConnectionHandler
	Chat       *v1.ChatHandler

	// WebSocket 升级处理器，未启用时为 nil
	WS gin.HandlerFunc
}

// InitRouter 初始化路由
func InitRouter(h *Handlers) *gin.Engine {
	r := gin.New()

	// 恢复中间件
	r.Use(middleware.GinRecovery(true))

	// 追踪中间件 (生成 trace_id)
	r.Use(util.TraceLogger())

	// 客户端 IP 中间件
	r.Use(middleware.ClientIPMiddleware())

	// 日志中间件
	r.Use(middleware.GinLogger())

	// Prometheus 监控中间件
	r.Use(middleware.PrometheusMiddleware())

	// 跨域中间件
	r.Use(middleware.CorsMiddleware())

	// 请求超时兜底
	r.Use(middleware.TimeoutMiddleware(15 * time.Second))

	// 健康检查（无需认证）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Prometheus 指标暴露接口
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket 入口（Token 在握手参数里单独校验）
	if h.WS != nil {
		r.GET("/ws", h.WS)
	}

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 公开接口（不需要认证），IP 级限流防刷
		public := api.Group("/public")
		public.Use(middleware.IPRateLimitMiddleware(30, time.Minute))
		{
			public.POST("/telegram-login", h.Auth.TelegramLogin)
		}

		// 需要认证的接口
		auth := api.Group("/auth")
		auth.Use(middleware.JWTAuthMiddleware())
		auth.Use(middleware.UserRateLimitMiddleware(120, time.Minute))
		{
			// 用户资料：注册对未注册 Token 开放，其余要求已注册
			user := auth.Group("/user")
			{
				user.POST("/register", h.User.Register)
				user.Use(middleware.RequireRegistered())
				user.GET("/me", h.User.GetMe)
				user.PUT("/profile", h.User.UpdateProfile)
				user.PUT("/location", h.User.UpdateLocation)
				user.GET("/nearby", h.User.Nearby)
			}

			// 连接请求
			connection := auth.Group("/connection")
			connection.Use(middleware.RequireRegistered())
			{
				connection.POST("", h.Connection.Create)
				connection.GET("/pending", h.Connection.Pending)
				connection.POST("/:connectionId/accept", h.Connection.Accept)
				connection.POST("/:connectionId/reject", h.Connection.Reject)
			}

			// 聊天
			chat := auth.Group("/chat")
			chat.Use(middleware.RequireRegistered())
			{
				chat.GET("/sessions", h.Chat.ListSessions)
				chat.POST("/message", h.Chat.SendMessage)
				chat.GET("/history", h.Chat.History)
			}
		}
	}

	return r
}
