package config

import "time"

// JWTConfig JWT 签发配置
type JWTConfig struct {
	Secret string        `json:"secret" yaml:"secret"` // 签名密钥（生产环境从环境变量读取）
	Issuer string        `json:"issuer" yaml:"issuer"` // 签发方
	Expire time.Duration `json:"expire" yaml:"expire"` // Token 有效期
}

// DefaultJWTConfig 返回本地开发的默认配置
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		Secret: "meetserver-dev-secret",
		Issuer: "meetserver",
		Expire: 7 * 24 * time.Hour,
	}
}
