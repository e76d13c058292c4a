package middleware

import (
	rediskey "MeetServer/consts/redisKey"
	"MeetServer/pkg/logger"
	pkgredis "MeetServer/pkg/redis"
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// luaFixedWindow 固定窗口计数 Lua 脚本
// KEYS[1]: 限流 key
// ARGV[1]: 窗口长度（秒）
// 返回窗口内的当前计数，由调用方和阈值比较。
// 首次计数时设置过期，保证窗口自动滚动。
const luaFixedWindow = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return current
`

// RedisRateLimiter 基于 Redis 固定窗口的限流器
// Redis 不可用时退到本地令牌桶（单实例精度，聊胜于无）。
type RedisRateLimiter struct {
	mu          sync.RWMutex
	redisClient *redis.Client

	limit  int           // 窗口内允许的请求数
	window time.Duration // 窗口长度

	// 本地降级限流器：全局粒度，只防雪崩不做精确配额
	local *rate.Limiter
}

// NewRedisRateLimiter 创建限流器
// limit: 窗口内允许的请求数
// window: 窗口长度
func NewRedisRateLimiter(limit int, window time.Duration) *RedisRateLimiter {
	perSecond := float64(limit) / window.Seconds()
	return &RedisRateLimiter{
		limit:  limit,
		window: window,
		local:  rate.NewLimiter(rate.Limit(perSecond), limit),
	}
}

// RedisSetClient 设置 Redis 客户端
// 使用延迟初始化避免循环依赖
func (r *RedisRateLimiter) RedisSetClient(redisClient *redis.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redisClient = redisClient
}

// Allow 检查是否允许请求通过
// Redis 正常时按 key 精确限流，异常时退到本地令牌桶。
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	r.mu.RLock()
	client := r.redisClient
	r.mu.RUnlock()

	if client == nil {
		return r.local.Allow()
	}

	// 给 Redis 操作加一个独立的短超时（50ms），防止 Redis 响应慢拖死入口
	redisCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	windowSeconds := int(r.window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	result, err := client.Eval(redisCtx, luaFixedWindow, []string{key}, strconv.Itoa(windowSeconds)).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logger.Warn(ctx, "Redis 限流检查超时，退到本地限流",
				logger.String("key", key),
				logger.ErrorField("error", err),
			)
		} else {
			logger.Error(ctx, "Redis 限流检查失败，退到本地限流",
				logger.String("key", key),
				logger.ErrorField("error", err),
			)
		}
		return r.local.Allow()
	}

	current, ok := result.(int64)
	if !ok {
		logger.Warn(ctx, "Redis 限流返回值类型错误，放行",
			logger.String("key", key),
			logger.Any("result", result),
		)
		return true
	}

	return current <= int64(r.limit)
}

// lazySetClient 懒加载 Redis Client（只执行一次）
func lazySetClient(once *sync.Once, limiter *RedisRateLimiter) {
	once.Do(func() {
		if client := pkgredis.Client(); client != nil {
			limiter.RedisSetClient(client)
		}
	})
}

// rejectTooMany 统一的限流拒绝响应
func rejectTooMany(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"code":    10005,
		"message": "请求过于频繁，请稍后再试",
	})
	c.Abort()
}

// IPRateLimitMiddleware 基于 Redis 的 IP 级别限流中间件
// limit: 窗口内允许的请求数
// window: 窗口长度
func IPRateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRedisRateLimiter(limit, window)
	var once sync.Once

	return func(c *gin.Context) {
		lazySetClient(&once, limiter)

		ip, exists := GetClientIPSafe(c)
		if !exists || ip == "" {
			// 无法获取 IP，放行请求（记录警告）
			logger.Warn(c, "无法获取客户端 IP，跳过限流检查",
				logger.String("path", c.Request.URL.Path),
			)
			c.Next()
			return
		}

		if !limiter.Allow(c, rediskey.RateLimitIPKey(ip)) {
			logger.Warn(c, "IP 请求被限流",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			rejectTooMany(c)
			return
		}

		c.Next()
	}
}

// UserRateLimitMiddleware 基于 Telegram ID 的用户级限流中间件
// 需要在 JWTAuthMiddleware 之后使用。
func UserRateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRedisRateLimiter(limit, window)
	var once sync.Once

	return func(c *gin.Context) {
		lazySetClient(&once, limiter)

		telegramID, exists := GetTelegramID(c)
		if !exists {
			// 未认证请求走不到这里，保险起见放行
			logger.Warn(c, "无法获取用户身份，跳过用户限流检查",
				logger.String("path", c.Request.URL.Path),
			)
			c.Next()
			return
		}

		if !limiter.Allow(c, rediskey.RateLimitUserKey(telegramID)) {
			logger.Warn(c, "用户请求被限流",
				logger.Int64("telegram_id", telegramID),
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			rejectTooMany(c)
			return
		}

		c.Next()
	}
}
