package model

import "time"

// Connection 连接请求表（打招呼）
// 约束：uidx_from_to 保证同一有序对 (from, to) 至多一条记录；
// 并发下唯一键冲突按"已存在"处理，不视为错误。
// id 由 snowflake 预分配，不使用自增（对外暴露，避免可枚举）。
type Connection struct {
	Id             int64     `gorm:"column:id;primaryKey;autoIncrement:false;comment:snowflake id"`
	FromTelegramId int64     `gorm:"column:from_telegram_id;not null;uniqueIndex:uidx_from_to;comment:发起方telegram id"`
	ToTelegramId   int64     `gorm:"column:to_telegram_id;not null;index;uniqueIndex:uidx_from_to;comment:接收方telegram id"`
	Status         int8      `gorm:"column:status;not null;default:0;comment:状态 0.待处理 1.已接受 2.已拒绝"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Connection) TableName() string { return "connection" }

const (
	// ConnectionStatusPending 待处理
	ConnectionStatusPending int8 = 0
	// ConnectionStatusAccepted 已接受
	ConnectionStatusAccepted int8 = 1
	// ConnectionStatusRejected 已拒绝
	ConnectionStatusRejected int8 = 2
)

// ChatSession 聊天会话表
// 无序对：写入前归一化为 user_a < user_b，uidx_pair 保证一对用户只建一次会话。
// 连接请求被接受时创建，作为后续私聊功能的准入门槛。
type ChatSession struct {
	Id              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserATelegramId int64     `gorm:"column:user_a_telegram_id;not null;uniqueIndex:uidx_pair;comment:较小的telegram id"`
	UserBTelegramId int64     `gorm:"column:user_b_telegram_id;not null;index;uniqueIndex:uidx_pair;comment:较大的telegram id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ChatSession) TableName() string { return "chat_session" }

// NormalizePair 归一化无序对，保证 a <= b
func NormalizePair(x, y int64) (int64, int64) {
	if x > y {
		return y, x
	}
	return x, y
}

// ChatMessage 聊天消息表
type ChatMessage struct {
	Id             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ChatSessionId  int64     `gorm:"column:chat_session_id;not null;index;comment:会话id"`
	FromTelegramId int64     `gorm:"column:from_telegram_id;not null;comment:发送方"`
	ToTelegramId   int64     `gorm:"column:to_telegram_id;not null;comment:接收方"`
	Text           string    `gorm:"column:text;type:varchar(2000);not null;comment:消息内容"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

func (ChatMessage) TableName() string { return "chat_message" }
