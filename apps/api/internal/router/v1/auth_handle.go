package v1

import (
	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/middleware"
	"MeetServer/apps/api/internal/service"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/consts"
	"MeetServer/pkg/logger"
	"MeetServer/pkg/result"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// TelegramLogin Telegram Login Widget 登录接口
// @Summary Telegram 登录
// @Description 校验 Login Widget 回调数据并签发 Token
// @Tags 认证接口
// @Accept json
// @Produce json
// @Param request body dto.TelegramLoginRequest true "Telegram 登录数据"
// @Success 200 {object} dto.TelegramLoginResponse
// @Router /api/v1/public/telegram-login [post]
func (h *AuthHandler) TelegramLogin(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.TelegramLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.authService.TelegramLogin(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "Telegram 登录服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}
