package dto

// ==================== 连接请求服务 DTO ====================

// 打招呼结果枚举
const (
	// ConnectionOutcomeCreated 新建成功
	ConnectionOutcomeCreated = "created"
	// ConnectionOutcomeAlreadyExists 已有未处理/已处理的请求
	ConnectionOutcomeAlreadyExists = "already_exists"
	// ConnectionOutcomeCooldown 处于冷却窗口内
	ConnectionOutcomeCooldown = "cooldown"
)

// CreateConnectionRequest 打招呼请求 DTO
type CreateConnectionRequest struct {
	ToTelegramID int64 `json:"toTelegramId" binding:"required"` // 接收方 Telegram ID
}

// CreateConnectionResponse 打招呼响应 DTO
// already_exists / cooldown 走失败包（对应业务码），data 里仍带 outcome 供前端展示。
type CreateConnectionResponse struct {
	Outcome      string `json:"outcome"`               // created / already_exists / cooldown
	ConnectionID int64  `json:"connectionId,string"`   // 请求 ID（already_exists 时为已有记录）
	CooldownLeft int    `json:"cooldownLeft,omitempty"` // 剩余冷却秒数（仅 cooldown）
}

// HandleConnectionRequest 处理连接请求 DTO
type HandleConnectionRequest struct {
	ConnectionID int64 `json:"connectionId,string" binding:"required"` // 请求 ID
}

// HandleConnectionResponse 处理连接请求响应 DTO
type HandleConnectionResponse struct {
	AlreadyProcessed bool  `json:"alreadyProcessed"`        // 是否已被处理过（幂等）
	ChatSessionID    int64 `json:"chatSessionId,omitempty"` // 接受后创建/已有的会话 ID
}

// PendingConnectionsRequest 待处理列表请求 DTO
type PendingConnectionsRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

// PendingConnectionsResponse 待处理列表响应 DTO
type PendingConnectionsResponse struct {
	Items      []*ConnectionInfo `json:"items"`
	Pagination *PaginationInfo   `json:"pagination"`
}
