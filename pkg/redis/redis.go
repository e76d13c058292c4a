package redis

import (
	"context"
	"fmt"
	"time"

	"MeetServer/config"

	goredis "github.com/redis/go-redis/v9"
)

var global *goredis.Client

// Client 返回全局 Redis 客户端（未初始化时为 nil）
func Client() *goredis.Client {
	return global
}

// ReplaceGlobal 设置全局 Redis 客户端
func ReplaceGlobal(client *goredis.Client) {
	global = client
}

// Build 创建 Redis 客户端并做一次连通性探测。
// 探测失败时返回错误，由调用方决定是否降级（缓存场景允许无 Redis 启动）。
func Build(cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
