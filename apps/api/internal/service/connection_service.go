package service

import (
	"context"
	"time"

	"MeetServer/apps/api/internal/converter"
	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/repository"
	"MeetServer/config"
	"MeetServer/consts"
	"MeetServer/model"
	"MeetServer/pkg/async"
	"MeetServer/pkg/idgen"
	"MeetServer/pkg/logger"
)

// connectionServiceImpl 连接请求服务实现
type connectionServiceImpl struct {
	connRepo repository.IConnectionRepository
	userRepo repository.IUserRepository
	chatRepo repository.IChatRepository
	notifier Notifier
	cfg      config.ConnectionConfig
}

// NewConnectionService 创建连接请求服务实例
// notifier 可为 nil（机器人未启用的部署），通知静默跳过。
func NewConnectionService(
	connRepo repository.IConnectionRepository,
	userRepo repository.IUserRepository,
	chatRepo repository.IChatRepository,
	notifier Notifier,
	cfg config.ConnectionConfig,
) ConnectionService {
	return &connectionServiceImpl{
		connRepo: connRepo,
		userRepo: userRepo,
		chatRepo: chatRepo,
		notifier: notifier,
		cfg:      cfg,
	}
}

// SetNotifier 回填通知器（仅限 main 组装阶段调用，不做并发保护）
func (s *connectionServiceImpl) SetNotifier(n Notifier) {
	s.notifier = n
}

// Create 打招呼
// 检查顺序是行为语义的一部分：
//  1. 自指/目标存在性（参数级错误）
//  2. 已有记录 → already_exists（带原请求 id，重复调用幂等）
//  3. 冷却（只约束首条记录落库前的窗口，有记录后永远走不到这步）
//  4. 新建 → created（并发冲突也归为 already_exists）
//
// 冷却标记只在通过前两步、真正要尝试新建时刷新。
func (s *connectionServiceImpl) Create(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error) {
	fromID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	// 1. 基本校验
	if req.ToTelegramID == fromID {
		return nil, bizError(consts.CodeSelfConnection)
	}
	target, err := s.userRepo.GetByTelegramID(ctx, req.ToTelegramID)
	if err != nil {
		logger.Error(ctx, "查询目标用户失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if target == nil {
		return nil, bizError(consts.CodeUserNotFound)
	}

	// 2. 已有记录：无论状态如何都幂等返回，不再进入冷却判断
	existing, err := s.connRepo.GetByPair(ctx, fromID, req.ToTelegramID)
	if err != nil {
		logger.Error(ctx, "查询连接请求失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if existing != nil {
		return &dto.CreateConnectionResponse{
			Outcome:      dto.ConnectionOutcomeAlreadyExists,
			ConnectionID: existing.Id,
		}, nil
	}

	// 3. 冷却窗口（保护记录落库前的重试风暴）
	active, err := s.connRepo.CooldownActive(ctx, fromID, req.ToTelegramID, s.cfg.Cooldown)
	if err != nil {
		logger.Error(ctx, "冷却检查失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if active {
		return &dto.CreateConnectionResponse{
			Outcome:      dto.ConnectionOutcomeCooldown,
			CooldownLeft: int(s.cfg.Cooldown.Seconds()),
		}, nil
	}

	// 本次新建尝试刷新冷却标记
	s.connRepo.MarkCooldown(ctx, fromID, req.ToTelegramID, s.cfg.Cooldown)

	// 4. 新建
	conn := &model.Connection{
		Id:             idgen.NextID(),
		FromTelegramId: fromID,
		ToTelegramId:   req.ToTelegramID,
		Status:         model.ConnectionStatusPending,
	}
	created, result, err := s.connRepo.Create(ctx, conn)
	if err != nil {
		logger.Error(ctx, "创建连接请求失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if !created {
		// 并发下另一个请求抢先写入
		return &dto.CreateConnectionResponse{
			Outcome:      dto.ConnectionOutcomeAlreadyExists,
			ConnectionID: result.Id,
		}, nil
	}

	// 5. 通知接收方（尽力而为，失败不影响主流程）
	s.notifyRequestAsync(ctx, fromID, req.ToTelegramID, result.Id)

	return &dto.CreateConnectionResponse{
		Outcome:      dto.ConnectionOutcomeCreated,
		ConnectionID: result.Id,
	}, nil
}

// notifyRequestAsync 异步通知接收方有人打招呼
func (s *connectionServiceImpl) notifyRequestAsync(ctx context.Context, fromID, toID, connID int64) {
	if s.notifier == nil {
		return
	}
	async.RunSafe(ctx, func(runCtx context.Context) {
		from, err := s.userRepo.GetByTelegramID(runCtx, fromID)
		if err != nil || from == nil {
			logger.Warn(runCtx, "查询发起方资料失败，跳过通知", logger.ErrorField("error", err))
			return
		}
		s.notifier.NotifyConnectionRequest(runCtx, toID, from, connID)
	}, 10*time.Second)
}

// Accept 接受请求
// 只有接收方可以操作。重复接受幂等返回 alreadyProcessed=true。
func (s *connectionServiceImpl) Accept(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := s.connRepo.GetByID(ctx, req.ConnectionID)
	if err != nil {
		logger.Error(ctx, "查询连接请求失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if conn == nil {
		return nil, bizError(consts.CodeConnectionNotFound)
	}
	if conn.ToTelegramId != telegramID {
		return nil, bizError(consts.CodePermissionDeny)
	}

	alreadyProcessed, accepted, err := s.connRepo.AcceptAndCreateSession(ctx, req.ConnectionID)
	if err != nil {
		logger.Error(ctx, "接受连接请求失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	resp := &dto.HandleConnectionResponse{AlreadyProcessed: alreadyProcessed}

	// 会话 ID 回查（接受成功或此前已接受都可能有会话）
	session, sessErr := s.chatRepo.GetSessionByPair(ctx, conn.FromTelegramId, conn.ToTelegramId)
	if sessErr != nil {
		logger.Warn(ctx, "查询聊天会话失败", logger.ErrorField("error", sessErr))
	} else if session != nil {
		resp.ChatSessionID = session.Id
	}

	// 首次接受时通知发起方
	if !alreadyProcessed && s.notifier != nil {
		acceptedBy := telegramID
		notifyTo := accepted.FromTelegramId
		async.RunSafe(ctx, func(runCtx context.Context) {
			by, byErr := s.userRepo.GetByTelegramID(runCtx, acceptedBy)
			if byErr != nil || by == nil {
				return
			}
			s.notifier.NotifyConnectionAccepted(runCtx, notifyTo, by)
		}, 10*time.Second)
	}

	return resp, nil
}

// Reject 拒绝请求
func (s *connectionServiceImpl) Reject(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := s.connRepo.GetByID(ctx, req.ConnectionID)
	if err != nil {
		logger.Error(ctx, "查询连接请求失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if conn == nil {
		return nil, bizError(consts.CodeConnectionNotFound)
	}
	if conn.ToTelegramId != telegramID {
		return nil, bizError(consts.CodePermissionDeny)
	}

	alreadyProcessed, err := s.connRepo.Reject(ctx, req.ConnectionID)
	if err != nil {
		logger.Error(ctx, "拒绝连接请求失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	return &dto.HandleConnectionResponse{AlreadyProcessed: alreadyProcessed}, nil
}

// Pending 查询发给当前用户的待处理请求
func (s *connectionServiceImpl) Pending(ctx context.Context, req *dto.PendingConnectionsRequest) (*dto.PendingConnectionsResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	conns, total, err := s.connRepo.GetPendingList(ctx, telegramID, page, pageSize)
	if err != nil {
		logger.Error(ctx, "查询待处理请求失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	items := make([]*dto.ConnectionInfo, 0, len(conns))
	for _, conn := range conns {
		// 逐条补发起方资料，失败降级为只给 ID
		var profile *dto.ProfileInfo
		from, fromErr := s.userRepo.GetByTelegramID(ctx, conn.FromTelegramId)
		if fromErr != nil {
			logger.Warn(ctx, "查询发起方资料失败", logger.ErrorField("error", fromErr))
		} else if from != nil {
			profile = converter.ModelToProfileInfo(from, nil)
		}
		items = append(items, converter.ModelToConnectionInfo(conn, profile))
	}

	return &dto.PendingConnectionsResponse{
		Items: items,
		Pagination: &dto.PaginationInfo{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}
