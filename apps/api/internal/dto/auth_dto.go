package dto

// ==================== 认证服务 DTO ====================

// TelegramLoginRequest Telegram Login Widget 回调数据 DTO
// 字段和 hash 由 Telegram 签发，服务端用 bot token 验签。
type TelegramLoginRequest struct {
	ID        int64  `json:"id" binding:"required"`        // Telegram 用户 ID
	FirstName string `json:"first_name" binding:"omitempty"`
	LastName  string `json:"last_name" binding:"omitempty"`
	Username  string `json:"username" binding:"omitempty"`
	PhotoURL  string `json:"photo_url" binding:"omitempty"`
	AuthDate  int64  `json:"auth_date" binding:"required"` // 登录时间（unix 秒）
	Hash      string `json:"hash" binding:"required"`      // HMAC 签名
}

// TelegramLoginResponse 登录响应 DTO
type TelegramLoginResponse struct {
	Token      string       `json:"token"`      // 访问 Token
	Registered bool         `json:"registered"` // 是否已注册资料
	Profile    *ProfileInfo `json:"profile"`    // 已注册时返回资料
}
