package model

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile 用户资料表
// 身份双轨：uuid 为内部稳定标识，telegram_id 为外部聊天平台标识（唯一）。
// 位置为可空坐标，长期不活跃时由后台任务清除（只清位置，不删行）。
type UserProfile struct {
	Id         int64  `gorm:"column:id;primaryKey;autoIncrement;comment:自增id"`
	Uuid       string `gorm:"column:uuid;type:char(36);not null;uniqueIndex;comment:内部用户uuid"`
	TelegramId int64  `gorm:"column:telegram_id;not null;uniqueIndex;comment:Telegram用户id"`

	DisplayName string  `gorm:"column:display_name;type:varchar(64);not null;comment:昵称"`
	Age         int     `gorm:"column:age;not null;comment:年龄"`
	Bio         *string `gorm:"column:bio;type:varchar(255);comment:个人简介"`

	// 标签集合，JSON 存储（集合小且只整体读写，不值得拆表）
	Interests  []string `gorm:"column:interests;serializer:json;type:json;comment:兴趣标签"`
	LookingFor []string `gorm:"column:looking_for;serializer:json;type:json;comment:期望认识"`
	Languages  []string `gorm:"column:languages;serializer:json;type:json;comment:语言"`

	// 头像（必填，单张）
	AvatarUrl    string `gorm:"column:avatar_url;type:varchar(512);not null;comment:头像URL"`
	AvatarBlobId string `gorm:"column:avatar_blob_id;type:varchar(128);not null;comment:头像对象存储id"`

	// 当前位置（可空）。坐标存两列，空间计算交给 ST_Distance_Sphere
	Latitude  *float64 `gorm:"column:latitude;type:double;comment:纬度"`
	Longitude *float64 `gorm:"column:longitude;type:double;comment:经度"`

	LocationConsent bool `gorm:"column:location_consent;not null;default:0;comment:位置共享同意"`
	ProfileComplete bool `gorm:"column:profile_complete;not null;default:0;comment:资料是否完整"`

	LastActiveAt time.Time      `gorm:"column:last_active_at;index;comment:最近活跃时间"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (UserProfile) TableName() string { return "user_profile" }

// HasLocation 判断是否有有效位置
func (u *UserProfile) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// ProfilePhoto 资料照片表
// 槽位寻址：同一用户同一槽位最多一张（uidx_user_slot），槽位取值 0..2。
type ProfilePhoto struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserUuid  string    `gorm:"column:user_uuid;type:char(36);not null;index;uniqueIndex:uidx_user_slot;comment:用户uuid"`
	SlotIndex int8      `gorm:"column:slot_index;not null;uniqueIndex:uidx_user_slot;comment:槽位0-2"`
	BlobId    string    `gorm:"column:blob_id;type:varchar(128);not null;comment:对象存储id"`
	Url       string    `gorm:"column:url;type:varchar(512);not null;comment:访问URL"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProfilePhoto) TableName() string { return "profile_photo" }
