package service

import (
	"context"
	"strconv"
	"time"

	"MeetServer/apps/api/internal/converter"
	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/repository"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/config"
	"MeetServer/consts"
	"MeetServer/pkg/async"
	"MeetServer/pkg/logger"
)

// authServiceImpl 认证服务实现
// 没有密码体系：身份由 Telegram Login Widget 的 HMAC 签名背书，
// 验签通过即签发自己的 JWT，后续请求不再依赖 Telegram。
type authServiceImpl struct {
	userRepo    repository.IUserRepository
	telegramCfg config.TelegramConfig
}

// NewAuthService 创建认证服务实例
func NewAuthService(userRepo repository.IUserRepository, telegramCfg config.TelegramConfig) AuthService {
	return &authServiceImpl{
		userRepo:    userRepo,
		telegramCfg: telegramCfg,
	}
}

// TelegramLogin 校验登录数据并签发 Token
func (s *authServiceImpl) TelegramLogin(ctx context.Context, req *dto.TelegramLoginRequest) (*dto.TelegramLoginResponse, error) {
	// 1. 构造验签字段集（与 Telegram 下发字段一一对应，空字段不参与）
	fields := map[string]string{
		"id":        strconv.FormatInt(req.ID, 10),
		"auth_date": strconv.FormatInt(req.AuthDate, 10),
	}
	if req.FirstName != "" {
		fields["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		fields["last_name"] = req.LastName
	}
	if req.Username != "" {
		fields["username"] = req.Username
	}
	if req.PhotoURL != "" {
		fields["photo_url"] = req.PhotoURL
	}

	if err := utils.VerifyTelegramAuth(s.telegramCfg.BotToken, fields, req.Hash, req.AuthDate); err != nil {
		logger.Warn(ctx, "Telegram 登录验签失败",
			logger.Int64("telegram_id", req.ID),
			logger.ErrorField("error", err),
		)
		return nil, bizError(consts.CodeTelegramAuth)
	}

	// 2. 查询是否已注册
	user, err := s.userRepo.GetByTelegramID(ctx, req.ID)
	if err != nil {
		logger.Error(ctx, "查询用户资料失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	// 3. 签发 Token（未注册用户 uuid 为空，注册后重签）
	userUUID := ""
	if user != nil {
		userUUID = user.Uuid
	}
	token, err := utils.GenerateToken(req.ID, userUUID)
	if err != nil {
		logger.Error(ctx, "签发 Token 失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	resp := &dto.TelegramLoginResponse{
		Token:      token,
		Registered: user != nil,
	}

	if user != nil {
		photos, photoErr := s.userRepo.GetPhotos(ctx, user.Uuid)
		if photoErr != nil {
			// 照片查询失败不阻塞登录
			logger.Warn(ctx, "查询资料照片失败", logger.ErrorField("error", photoErr))
		}
		resp.Profile = converter.ModelToProfileInfo(user, photos)

		// 登录即活跃
		telegramID := req.ID
		async.RunSafe(ctx, func(runCtx context.Context) {
			if err := s.userRepo.MarkActive(runCtx, telegramID); err != nil {
				logger.Warn(runCtx, "刷新活跃时间失败", logger.ErrorField("error", err))
			}
		}, 5*time.Second)
	}

	return resp, nil
}
