package repository

import (
	"context"
	"errors"

	"MeetServer/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// chatRepositoryImpl 聊天会话与消息数据访问层实现
// 消息历史是低频冷数据，直查 MySQL 不走缓存。
type chatRepositoryImpl struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewChatRepository 创建聊天仓储实例
func NewChatRepository(db *gorm.DB, redisClient *redis.Client) IChatRepository {
	return &chatRepositoryImpl{db: db, redisClient: redisClient}
}

// GetSessionByPair 查询无序对的会话
func (r *chatRepositoryImpl) GetSessionByPair(ctx context.Context, telegramIDA, telegramIDB int64) (*model.ChatSession, error) {
	a, b := model.NormalizePair(telegramIDA, telegramIDB)

	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Where("user_a_telegram_id = ? AND user_b_telegram_id = ?", a, b).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, WrapDBError(err)
	}
	return &session, nil
}

// GetSessionByID 根据 ID 查询会话
func (r *chatRepositoryImpl) GetSessionByID(ctx context.Context, id int64) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, WrapDBError(err)
	}
	return &session, nil
}

// ListSessions 查询某用户参与的全部会话
func (r *chatRepositoryImpl) ListSessions(ctx context.Context, telegramID int64) ([]*model.ChatSession, error) {
	var sessions []*model.ChatSession
	err := r.db.WithContext(ctx).
		Where("user_a_telegram_id = ? OR user_b_telegram_id = ?", telegramID, telegramID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return sessions, nil
}

// CreateMessage 写入一条聊天消息
func (r *chatRepositoryImpl) CreateMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return msg, nil
}

// GetHistory 查询会话历史
// 游标分页：beforeID=0 表示从最新开始，否则取 id < beforeID 的一页。
func (r *chatRepositoryImpl) GetHistory(ctx context.Context, sessionID, beforeID int64, limit int) ([]*model.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Where("chat_session_id = ?", sessionID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var msgs []*model.ChatMessage
	err := query.Order("id DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return msgs, nil
}
