package v1

import (
	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/middleware"
	"MeetServer/apps/api/internal/service"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/consts"
	"MeetServer/pkg/logger"
	"MeetServer/pkg/result"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ConnectionHandler 连接请求处理器
type ConnectionHandler struct {
	connectionService service.ConnectionService
}

// NewConnectionHandler 创建连接请求处理器
func NewConnectionHandler(connectionService service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{
		connectionService: connectionService,
	}
}

// Create 打招呼接口
// @Summary 打招呼
// @Description 向目标用户发起连接请求，重复/冷却返回对应业务码并带 outcome
// @Tags 连接接口
// @Accept json
// @Produce json
// @Param request body dto.CreateConnectionRequest true "打招呼请求"
// @Success 200 {object} dto.CreateConnectionResponse
// @Router /api/v1/auth/connection [post]
func (h *ConnectionHandler) Create(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.connectionService.Create(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "打招呼服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	middleware.ObserveConnectionOutcome(resp.Outcome)
	switch resp.Outcome {
	case dto.ConnectionOutcomeAlreadyExists:
		// 带上原请求 id，调用方可据此跳转
		result.Fail(c, resp, consts.CodeConnectionExists)
	case dto.ConnectionOutcomeCooldown:
		result.Fail(c, resp, consts.CodeConnectionCooldown)
	default:
		result.Success(c, resp)
	}
}

// bindConnectionID 从路径参数解析连接请求 ID
func bindConnectionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("connectionId"), 10, 64)
	if err != nil || id <= 0 {
		result.Fail(c, nil, consts.CodeParamError)
		return 0, false
	}
	return id, true
}

// Accept 接受连接请求接口
// @Summary 接受请求
// @Tags 连接接口
// @Produce json
// @Param connectionId path string true "连接请求 ID"
// @Success 200 {object} dto.HandleConnectionResponse
// @Router /api/v1/auth/connection/{connectionId}/accept [post]
func (h *ConnectionHandler) Accept(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	id, ok := bindConnectionID(c)
	if !ok {
		return
	}

	resp, err := h.connectionService.Accept(ctx, &dto.HandleConnectionRequest{ConnectionID: id})
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "接受连接请求服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// Reject 拒绝连接请求接口
// @Summary 拒绝请求
// @Tags 连接接口
// @Produce json
// @Param connectionId path string true "连接请求 ID"
// @Success 200 {object} dto.HandleConnectionResponse
// @Router /api/v1/auth/connection/{connectionId}/reject [post]
func (h *ConnectionHandler) Reject(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	id, ok := bindConnectionID(c)
	if !ok {
		return
	}

	resp, err := h.connectionService.Reject(ctx, &dto.HandleConnectionRequest{ConnectionID: id})
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "拒绝连接请求服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// Pending 待处理请求列表接口
// @Summary 待处理请求列表
// @Tags 连接接口
// @Produce json
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} dto.PendingConnectionsResponse
// @Router /api/v1/auth/connection/pending [get]
func (h *ConnectionHandler) Pending(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.PendingConnectionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.connectionService.Pending(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "待处理请求列表服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}
