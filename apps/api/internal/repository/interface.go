package repository

import (
	"context"
	"time"

	"MeetServer/model"
)

// ==================== 用户资料 Repository ====================

// NearbyUser 附近用户查询结果（带距离）
type NearbyUser struct {
	model.UserProfile
	DistanceMeters float64 `gorm:"column:distance_meters"`
}

// IUserRepository 用户资料数据访问接口
type IUserRepository interface {
	// GetByTelegramID 根据 Telegram ID 查询用户资料（含缓存，不存在返回 nil, nil）
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.UserProfile, error)

	// GetByUUID 根据内部 UUID 查询用户资料（直查 DB，不存在返回 nil, nil）
	GetByUUID(ctx context.Context, uuid string) (*model.UserProfile, error)

	// Create 创建用户资料
	Create(ctx context.Context, user *model.UserProfile) (*model.UserProfile, error)

	// Update 更新用户资料（全量字段），成功后失效缓存
	Update(ctx context.Context, user *model.UserProfile) error

	// UpdateLocation 更新用户位置与共享同意标记
	UpdateLocation(ctx context.Context, telegramID int64, lat, lng float64, consent bool) error

	// MarkActive 刷新最近活跃时间
	MarkActive(ctx context.Context, telegramID int64) error

	// FindNearby 查询附近用户，按距离升序（距离相同按 uuid），排除自己和无位置用户
	FindNearby(ctx context.Context, telegramID int64, lat, lng, radiusMeters float64, limit int) ([]*NearbyUser, error)

	// ClearStaleLocations 清除长期不活跃用户的位置，返回受影响行数
	ClearStaleLocations(ctx context.Context, inactiveBefore time.Time) (int64, error)

	// GetPhotos 查询用户资料照片，按槽位升序
	GetPhotos(ctx context.Context, userUUID string) ([]*model.ProfilePhoto, error)

	// UpsertPhoto 写入指定槽位的照片（覆盖旧照片），返回被覆盖的旧照片（无则 nil）
	UpsertPhoto(ctx context.Context, photo *model.ProfilePhoto) (*model.ProfilePhoto, error)

	// DeletePhotosNotIn 删除不在保留槽位集合中的照片，返回被删除的照片
	DeletePhotosNotIn(ctx context.Context, userUUID string, keepSlots []int8) ([]*model.ProfilePhoto, error)
}

// ==================== 连接请求 Repository ====================

// IConnectionRepository 连接请求（打招呼）数据访问接口
type IConnectionRepository interface {
	// GetByID 根据 ID 查询连接请求（不存在返回 nil, nil）
	GetByID(ctx context.Context, id int64) (*model.Connection, error)

	// GetByPair 查询有序对 (from, to) 的连接请求（不存在返回 nil, nil）
	GetByPair(ctx context.Context, fromTelegramID, toTelegramID int64) (*model.Connection, error)

	// Create 创建连接请求
	// 并发下唯一键冲突视为"已存在"：created=false 并返回已有记录
	Create(ctx context.Context, conn *model.Connection) (created bool, existing *model.Connection, err error)

	// CooldownActive 判断 (from, to) 是否处于冷却窗口内
	// 只在记录查重未命中后调用；Redis 不可用时降级为"无冷却"
	CooldownActive(ctx context.Context, fromTelegramID, toTelegramID int64, window time.Duration) (bool, error)

	// MarkCooldown 记录一次新建尝试的冷却标记（尽力而为）
	MarkCooldown(ctx context.Context, fromTelegramID, toTelegramID int64, window time.Duration)

	// GetPendingList 查询发给某用户的待处理连接请求，按创建时间倒序
	GetPendingList(ctx context.Context, toTelegramID int64, page, pageSize int) ([]*model.Connection, int64, error)

	// AcceptAndCreateSession 接受请求并创建聊天会话（事务 + CAS 幂等）
	// alreadyProcessed=true 表示请求已被处理过，不是错误
	AcceptAndCreateSession(ctx context.Context, connID int64) (alreadyProcessed bool, conn *model.Connection, err error)

	// Reject 拒绝请求（CAS 幂等）
	Reject(ctx context.Context, connID int64) (alreadyProcessed bool, err error)
}

// ==================== 聊天 Repository ====================

// IChatRepository 聊天会话与消息数据访问接口
type IChatRepository interface {
	// GetSessionByPair 查询无序对的会话（不存在返回 nil, nil）
	GetSessionByPair(ctx context.Context, telegramIDA, telegramIDB int64) (*model.ChatSession, error)

	// GetSessionByID 根据 ID 查询会话（不存在返回 nil, nil）
	GetSessionByID(ctx context.Context, id int64) (*model.ChatSession, error)

	// ListSessions 查询某用户参与的全部会话，按创建时间倒序
	ListSessions(ctx context.Context, telegramID int64) ([]*model.ChatSession, error)

	// CreateMessage 写入一条聊天消息
	CreateMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error)

	// GetHistory 查询会话历史，beforeID=0 表示从最新开始，返回按 id 倒序
	GetHistory(ctx context.Context, sessionID, beforeID int64, limit int) ([]*model.ChatMessage, error)
}
