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

// ChatHandler 聊天处理器
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ListSessions 会话列表接口
// @Summary 会话列表
// @Tags 聊天接口
// @Produce json
// @Success 200 {object} dto.ListSessionsResponse
// @Router /api/v1/auth/chat/sessions [get]
func (h *ChatHandler) ListSessions(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	resp, err := h.chatService.ListSessions(ctx)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "会话列表服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// SendMessage 发送消息接口
// @Summary 发送消息
// @Tags 聊天接口
// @Accept json
// @Produce json
// @Param request body dto.SendMessageRequest true "发送消息请求"
// @Success 200 {object} dto.SendMessageResponse
// @Router /api/v1/auth/chat/message [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.chatService.SendMessage(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "发送消息服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// History 历史消息接口
// @Summary 历史消息
// @Description 按 id 倒序翻页，beforeId=0 从最新开始
// @Tags 聊天接口
// @Produce json
// @Param chatSessionId query int true "会话 ID"
// @Param beforeId query int false "游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} dto.HistoryResponse
// @Router /api/v1/auth/chat/history [get]
func (h *ChatHandler) History(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.chatService.History(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "历史消息服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}
