package service

import (
	"context"
	"io"

	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/storage"
	"MeetServer/model"
)

// UploadFile 上传文件（Handler 从 multipart 表单解出后传入）
type UploadFile struct {
	Reader   io.Reader
	Size     int64
	FileName string
}

// BlobStorage 对象存储门面接口（生产环境是 *storage.BlobStore）
type BlobStorage interface {
	Upload(ctx context.Context, reader io.Reader, size int64, fileName, prefix string) (*storage.UploadedBlob, error)
	Delete(ctx context.Context, objectName string, source string)
}

// ==================== 对外通知接口 ====================

// Notifier 连接事件通知接口
// 生产环境由 Telegram 机器人实现，机器人未启用时传 nil，通知静默跳过。
type Notifier interface {
	// NotifyConnectionRequest 通知接收方有人打招呼（带接受/拒绝按钮）
	NotifyConnectionRequest(ctx context.Context, toTelegramID int64, from *model.UserProfile, connectionID int64)

	// NotifyConnectionAccepted 通知发起方请求被接受
	NotifyConnectionAccepted(ctx context.Context, toTelegramID int64, by *model.UserProfile)
}

// MessagePusher 在线消息推送接口（WebSocket 管理器实现）
type MessagePusher interface {
	// Push 尝试把消息推给在线用户，离线时返回 false
	Push(telegramID int64, msg *dto.MessageInfo) bool
}

// ==================== 认证服务 ====================

// AuthService 认证服务接口
type AuthService interface {
	// TelegramLogin 校验 Telegram Login Widget 数据并签发 Token
	TelegramLogin(ctx context.Context, req *dto.TelegramLoginRequest) (*dto.TelegramLoginResponse, error)
}

// ==================== 用户资料服务 ====================

// UserService 用户资料服务接口
type UserService interface {
	// Register 注册资料（已注册时幂等为更新）
	// avatar: 头像文件，首次注册必传
	Register(ctx context.Context, req *dto.RegisterRequest, avatar *UploadFile) (*dto.RegisterResponse, error)

	// GetMe 获取本人资料（顺带刷新活跃时间）
	GetMe(ctx context.Context) (*dto.GetProfileResponse, error)

	// UpdateProfile 更新资料
	// avatar: 新头像（可选），photos: 槽位到新照片文件的映射
	UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest, avatar *UploadFile, photos map[int8]*UploadFile) (*dto.UpdateProfileResponse, error)

	// UpdateLocation 上报位置
	UpdateLocation(ctx context.Context, req *dto.UpdateLocationRequest) error

	// Nearby 查询附近用户
	Nearby(ctx context.Context, req *dto.NearbyRequest) (*dto.NearbyResponse, error)
}

// ==================== 连接请求服务 ====================

// ConnectionService 连接请求（打招呼）服务接口
type ConnectionService interface {
	// Create 打招呼
	Create(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error)

	// Accept 接受请求（只有接收方可以操作，幂等）
	Accept(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error)

	// Reject 拒绝请求（只有接收方可以操作，幂等）
	Reject(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error)

	// Pending 查询发给当前用户的待处理请求
	Pending(ctx context.Context, req *dto.PendingConnectionsRequest) (*dto.PendingConnectionsResponse, error)

	// SetNotifier 回填通知器。
	// 机器人构造时需要本服务，本服务发通知又需要机器人，
	// 所以先以 nil 通知器构造服务，机器人就绪后再注入。
	SetNotifier(n Notifier)
}

// ==================== 聊天服务 ====================

// ChatService 聊天服务接口
type ChatService interface {
	// ListSessions 查询当前用户的会话列表
	ListSessions(ctx context.Context) (*dto.ListSessionsResponse, error)

	// SendMessage 在会话内发送消息（必须是会话成员）
	SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)

	// History 查询会话历史（必须是会话成员）
	History(ctx context.Context, req *dto.HistoryRequest) (*dto.HistoryResponse, error)

	// CanAccess 判断用户是否为会话成员（WebSocket 握手鉴权用）
	CanAccess(ctx context.Context, sessionID, telegramID int64) (bool, error)
}
