package config

import "time"

// TelegramConfig Telegram 机器人配置
type TelegramConfig struct {
	BotToken string `json:"botToken" yaml:"botToken"` // BotFather 下发的 Token
	Enabled  bool   `json:"enabled" yaml:"enabled"`   // 是否启动机器人（纯 API 部署可关闭）

	// 注册会话状态的空闲过期时间，超时未完成的注册流程会被清理
	ConversationTTL time.Duration `json:"conversationTtl" yaml:"conversationTtl"`
}

// DefaultTelegramConfig 返回本地开发的默认配置
func DefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{
		BotToken:        "",
		Enabled:         true,
		ConversationTTL: 30 * time.Minute,
	}
}
