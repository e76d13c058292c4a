package repository

import (
	"context"
	"errors"
	"fmt"

	"MeetServer/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ==================== Repository 层统一错误定义 ====================

var (
	// ErrRecordNotFound 记录不存在
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey 唯一键冲突
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDatabase 数据库操作错误
	ErrDatabase = errors.New("database error")

	// ErrRedisNil Redis Key 不存在
	ErrRedisNil = errors.New("redis: key not found")

	// ErrRedis Redis 操作错误
	ErrRedis = errors.New("redis error")
)

// ==================== 核心包装函数 ====================

// wrapError 通用错误包装函数
// err: 要包装的错误
// rules: 映射规则 map[源错误]目标错误
// defaultErr: 默认错误
func wrapError(err error, rules map[error]error, defaultErr error) error {
	if err == nil {
		return nil
	}

	// 检查映射规则
	for source, target := range rules {
		if errors.Is(err, source) {
			return target
		}
	}

	// 未匹配任何规则，包装默认错误（保留原始错误信息用于日志）
	return fmt.Errorf("%w: %v", defaultErr, err)
}

// ==================== 预定义规则 ====================

var (
	// dbErrorRules 数据库错误映射规则
	dbErrorRules = map[error]error{
		gorm.ErrRecordNotFound: ErrRecordNotFound,
		gorm.ErrDuplicatedKey:  ErrDuplicateKey,
	}

	// redisErrorRules Redis 错误映射规则
	redisErrorRules = map[error]error{
		redis.Nil: ErrRedisNil,
	}
)

// ==================== 便捷函数 ====================

// WrapDBError 包装数据库错误
func WrapDBError(err error) error {
	return wrapError(err, dbErrorRules, ErrDatabase)
}

// WrapRedisError 包装 Redis 错误
func WrapRedisError(err error) error {
	return wrapError(err, redisErrorRules, ErrRedis)
}

// LogRedisError 日志记录 Redis 错误（降级路径）
func LogRedisError(ctx context.Context, err error) {
	logger.Error(ctx, "Redis 操作错误", logger.ErrorField("error", err))
}
