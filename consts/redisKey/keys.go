package rediskey

import (
	"fmt"
	"time"
)

// ==================== TTL 常量 ====================

const (
	// UserProfileTTL 用户资料缓存 TTL
	UserProfileTTL = 1 * time.Hour
	// UserProfileEmptyTTL 用户资料空值缓存 TTL
	UserProfileEmptyTTL = 5 * time.Minute

	// ConnectionPendingTTL 待处理连接请求缓存 TTL
	ConnectionPendingTTL = 24 * time.Hour
	// ConnectionPendingEmptyTTL 待处理连接请求空值缓存 TTL
	ConnectionPendingEmptyTTL = 5 * time.Minute
)

// ==================== Key 构造函数 ====================

// UserProfileKey 用户资料缓存 Key: user:profile:{telegram_id}
func UserProfileKey(telegramID int64) string {
	return fmt.Sprintf("user:profile:%d", telegramID)
}

// ConnectionCooldownKey 打招呼冷却 Key: conn:cooldown:{from}:{to}
// 有序对：A→B 与 B→A 是两个独立的冷却窗口。
func ConnectionCooldownKey(fromTelegramID, toTelegramID int64) string {
	return fmt.Sprintf("conn:cooldown:%d:%d", fromTelegramID, toTelegramID)
}

// ConnectionPendingKey 待处理连接请求 Key: conn:pending:{to}
func ConnectionPendingKey(toTelegramID int64) string {
	return fmt.Sprintf("conn:pending:%d", toTelegramID)
}

// RateLimitIPKey IP 限流 Key: rate:limit:ip:{ip}
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("rate:limit:ip:%s", ip)
}

// RateLimitUserKey 用户限流 Key: rate:limit:user:{telegram_id}
func RateLimitUserKey(telegramID int64) string {
	return fmt.Sprintf("rate:limit:user:%d", telegramID)
}
