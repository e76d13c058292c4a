package config

import "time"

// RedisConfig Redis 连接配置
// 说明：Redis 仅做缓存与冷却键，不可用时所有路径降级到 MySQL。
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`         // 地址，如: localhost:6379
	Password string `json:"password" yaml:"password"` // 密码（可为空）
	DB       int    `json:"db" yaml:"db"`             // 库编号

	// 超时配置（缓存场景建议快速失败）
	DialTimeout  time.Duration `json:"dialTimeout" yaml:"dialTimeout"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`

	// 连接池配置
	PoolSize     int `json:"poolSize" yaml:"poolSize"`
	MinIdleConns int `json:"minIdleConns" yaml:"minIdleConns"`
}

// DefaultRedisConfig 返回本地开发的默认配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "redis:6379",
		Password:     "",
		DB:           0,
		DialTimeout:  time.Second,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolSize:     64,
		MinIdleConns: 4,
	}
}
