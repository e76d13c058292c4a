package dto

// ==================== 聊天服务 DTO ====================

// SessionInfo 会话 DTO
type SessionInfo struct {
	ID          int64        `json:"id"`          // 会话 ID
	PeerProfile *ProfileInfo `json:"peerProfile"` // 对方资料
	CreatedAt   int64        `json:"createdAt"`   // 创建时间（unix 秒）
}

// MessageInfo 消息 DTO
type MessageInfo struct {
	ID             int64  `json:"id"`             // 消息 ID
	ChatSessionID  int64  `json:"chatSessionId"`  // 会话 ID
	FromTelegramID int64  `json:"fromTelegramId"` // 发送方
	Text           string `json:"text"`           // 内容
	CreatedAt      int64  `json:"createdAt"`      // 发送时间（unix 秒）
}

// ListSessionsResponse 会话列表响应 DTO
type ListSessionsResponse struct {
	Sessions []*SessionInfo `json:"sessions"`
}

// SendMessageRequest 发送消息请求 DTO
type SendMessageRequest struct {
	ChatSessionID int64  `json:"chatSessionId" binding:"required"`        // 会话 ID
	Text          string `json:"text" binding:"required,min=1,max=2000"` // 内容
}

// SendMessageResponse 发送消息响应 DTO
type SendMessageResponse struct {
	Message *MessageInfo `json:"message"`
}

// HistoryRequest 历史消息请求 DTO
type HistoryRequest struct {
	ChatSessionID int64 `form:"chatSessionId" binding:"required"`       // 会话 ID
	BeforeID      int64 `form:"beforeId" binding:"omitempty"`           // 游标，0 表示从最新开始
	Limit         int   `form:"limit" binding:"omitempty,min=1,max=100"` // 每页数量
}

// HistoryResponse 历史消息响应 DTO
type HistoryResponse struct {
	Messages []*MessageInfo `json:"messages"` // 按 id 倒序
}
