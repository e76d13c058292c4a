package service

import (
	"context"

	"MeetServer/apps/api/internal/converter"
	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/repository"
	"MeetServer/consts"
	"MeetServer/model"
	"MeetServer/pkg/logger"
)

// chatServiceImpl 聊天服务实现
// 会话是准入门槛：只有连接请求被接受的双方才有会话，
// 所有消息操作先做成员校验。
type chatServiceImpl struct {
	chatRepo repository.IChatRepository
	userRepo repository.IUserRepository
	pusher   MessagePusher
}

// NewChatService 创建聊天服务实例
// pusher 可为 nil（无 WebSocket 的部署），离线投递不影响落库。
func NewChatService(chatRepo repository.IChatRepository, userRepo repository.IUserRepository, pusher MessagePusher) ChatService {
	return &chatServiceImpl{
		chatRepo: chatRepo,
		userRepo: userRepo,
		pusher:   pusher,
	}
}

// sessionMember 校验用户是否为会话成员，返回会话与对方 ID
func (s *chatServiceImpl) sessionMember(ctx context.Context, sessionID, telegramID int64) (*model.ChatSession, int64, error) {
	session, err := s.chatRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		logger.Error(ctx, "查询聊天会话失败", logger.ErrorField("error", err))
		return nil, 0, bizError(consts.CodeInternalError)
	}
	if session == nil {
		return nil, 0, bizError(consts.CodeChatSessionNotFound)
	}

	switch telegramID {
	case session.UserATelegramId:
		return session, session.UserBTelegramId, nil
	case session.UserBTelegramId:
		return session, session.UserATelegramId, nil
	default:
		return nil, 0, bizError(consts.CodeNotSessionMember)
	}
}

// ListSessions 查询当前用户的会话列表
func (s *chatServiceImpl) ListSessions(ctx context.Context) (*dto.ListSessionsResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := s.chatRepo.ListSessions(ctx, telegramID)
	if err != nil {
		logger.Error(ctx, "查询会话列表失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	items := make([]*dto.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		peerID := session.UserATelegramId
		if peerID == telegramID {
			peerID = session.UserBTelegramId
		}

		var peerProfile *dto.ProfileInfo
		peer, peerErr := s.userRepo.GetByTelegramID(ctx, peerID)
		if peerErr != nil {
			logger.Warn(ctx, "查询对方资料失败", logger.ErrorField("error", peerErr))
		} else if peer != nil {
			peerProfile = converter.ModelToProfileInfo(peer, nil)
		}

		items = append(items, &dto.SessionInfo{
			ID:          session.Id,
			PeerProfile: peerProfile,
			CreatedAt:   session.CreatedAt.Unix(),
		})
	}

	return &dto.ListSessionsResponse{Sessions: items}, nil
}

// SendMessage 在会话内发送消息
func (s *chatServiceImpl) SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	_, peerID, err := s.sessionMember(ctx, req.ChatSessionID, telegramID)
	if err != nil {
		return nil, err
	}

	msg, err := s.chatRepo.CreateMessage(ctx, &model.ChatMessage{
		ChatSessionId:  req.ChatSessionID,
		FromTelegramId: telegramID,
		ToTelegramId:   peerID,
		Text:           req.Text,
	})
	if err != nil {
		logger.Error(ctx, "消息落库失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeMessageSendFail)
	}

	info := converter.ModelToMessageInfo(msg)

	// 在线推送尽力而为，离线用户下次拉历史补齐
	if s.pusher != nil {
		s.pusher.Push(peerID, info)
	}

	return &dto.SendMessageResponse{Message: info}, nil
}

// History 查询会话历史
func (s *chatServiceImpl) History(ctx context.Context, req *dto.HistoryRequest) (*dto.HistoryResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.sessionMember(ctx, req.ChatSessionID, telegramID); err != nil {
		return nil, err
	}

	msgs, err := s.chatRepo.GetHistory(ctx, req.ChatSessionID, req.BeforeID, req.Limit)
	if err != nil {
		logger.Error(ctx, "查询历史消息失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	return &dto.HistoryResponse{
		Messages: converter.ModelListToMessageInfoList(msgs),
	}, nil
}

// CanAccess 判断用户是否为会话成员
func (s *chatServiceImpl) CanAccess(ctx context.Context, sessionID, telegramID int64) (bool, error) {
	session, err := s.chatRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}
	return session.UserATelegramId == telegramID || session.UserBTelegramId == telegramID, nil
}
