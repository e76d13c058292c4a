package dto

// ==================== 通用 DTO 定义 ====================

// ProfileInfo 用户资料 DTO
type ProfileInfo struct {
	UUID            string       `json:"uuid"`            // 内部用户UUID
	TelegramID      int64        `json:"telegramId"`      // Telegram 用户 ID
	DisplayName     string       `json:"displayName"`     // 昵称
	Age             int          `json:"age"`             // 年龄
	Bio             string       `json:"bio"`             // 个人简介
	Interests       []string     `json:"interests"`       // 兴趣标签
	LookingFor      []string     `json:"lookingFor"`      // 期望认识
	Languages       []string     `json:"languages"`       // 语言
	AvatarURL       string       `json:"avatarUrl"`       // 头像URL
	Photos          []*PhotoInfo `json:"photos"`          // 资料照片
	HasLocation     bool         `json:"hasLocation"`     // 是否有位置
	LocationConsent bool         `json:"locationConsent"` // 位置共享同意
	ProfileComplete bool         `json:"profileComplete"` // 资料是否完整
	LastActiveLabel string       `json:"lastActiveLabel"` // 最近活跃（人类可读）
}

// PhotoInfo 资料照片 DTO
type PhotoInfo struct {
	SlotIndex int8   `json:"slotIndex"` // 槽位 0-2
	URL       string `json:"url"`       // 访问URL
}

// NearbyUserInfo 附近用户 DTO
// 注意：距离取整到百米，坐标不下发，避免精确定位他人。
type NearbyUserInfo struct {
	Profile        *ProfileInfo `json:"profile"`        // 用户资料
	DistanceMeters int          `json:"distanceMeters"` // 距离（米，取整到百米）
}

// ConnectionInfo 连接请求 DTO
type ConnectionInfo struct {
	ID          int64        `json:"id,string"`   // 请求 ID（snowflake，string 避免 JS 精度丢失）
	FromProfile *ProfileInfo `json:"fromProfile"` // 发起方资料
	Status      int8         `json:"status"`      // 状态 0.待处理 1.已接受 2.已拒绝
	CreatedAt   int64        `json:"createdAt"`   // 创建时间（unix 秒）
}

// PaginationInfo 分页信息 DTO
type PaginationInfo struct {
	Page     int   `json:"page"`     // 当前页
	PageSize int   `json:"pageSize"` // 每页数量
	Total    int64 `json:"total"`    // 总数
}
