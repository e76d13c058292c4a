package v1

import (
	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/middleware"
	"MeetServer/apps/api/internal/service"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/consts"
	"MeetServer/pkg/logger"
	"MeetServer/pkg/result"
	"fmt"
	"mime/multipart"

	"github.com/gin-gonic/gin"
)

// photoFieldLimit UpdateProfile 中 photoN 表单字段的扫描上限
// 和校验配置里的照片槽位数保持一致即可，多扫几个也无害。
const photoFieldLimit = 8

// UserHandler 用户资料处理器
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建用户资料处理器
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// openUpload 打开 multipart 文件，转成 Service 层的上传文件对象
// 返回的 closer 由调用方负责在请求结束前关闭。
func openUpload(fh *multipart.FileHeader) (*service.UploadFile, multipart.File, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.UploadFile{
		Reader:   file,
		Size:     fh.Size,
		FileName: fh.Filename,
	}, file, nil
}

// Register 注册资料接口
// @Summary 注册资料
// @Description multipart 表单提交资料和头像，已注册用户幂等为更新
// @Tags 用户接口
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.RegisterResponse
// @Router /api/v1/auth/user/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	// 头像可缺省（重复注册时保留原头像），首次注册由 Service 层兜底校验
	var avatar *service.UploadFile
	if fh, err := c.FormFile("avatar"); err == nil {
		upload, file, openErr := openUpload(fh)
		if openErr != nil {
			logger.Warn(ctx, "读取头像文件失败", logger.ErrorField("error", openErr))
			result.Fail(c, nil, consts.CodeUploadFail)
			return
		}
		defer file.Close()
		avatar = upload
	}

	resp, err := h.userService.Register(ctx, &req, avatar)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "注册资料服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// GetMe 获取本人资料接口
// @Summary 本人资料
// @Tags 用户接口
// @Produce json
// @Success 200 {object} dto.GetProfileResponse
// @Router /api/v1/auth/user/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	resp, err := h.userService.GetMe(ctx)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "查询本人资料服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// UpdateProfile 更新资料接口
// @Summary 更新资料
// @Description multipart 表单，avatar 换头像，photo0/photo1/... 按槽位传新照片
// @Tags 用户接口
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.UpdateProfileResponse
// @Router /api/v1/auth/user/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	var avatar *service.UploadFile
	if fh, err := c.FormFile("avatar"); err == nil {
		upload, file, openErr := openUpload(fh)
		if openErr != nil {
			logger.Warn(ctx, "读取头像文件失败", logger.ErrorField("error", openErr))
			result.Fail(c, nil, consts.CodeUploadFail)
			return
		}
		defer file.Close()
		avatar = upload
	}

	// 按 photoN 字段名收集槽位照片，槽位合法性由 Service 层校验
	photos := make(map[int8]*service.UploadFile)
	for slot := 0; slot < photoFieldLimit; slot++ {
		fh, err := c.FormFile(fmt.Sprintf("photo%d", slot))
		if err != nil {
			continue
		}
		upload, file, openErr := openUpload(fh)
		if openErr != nil {
			logger.Warn(ctx, "读取资料照片失败",
				logger.Int("slot", slot),
				logger.ErrorField("error", openErr),
			)
			result.Fail(c, nil, consts.CodeUploadFail)
			return
		}
		defer file.Close()
		photos[int8(slot)] = upload
	}

	resp, err := h.userService.UpdateProfile(ctx, &req, avatar, photos)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "更新资料服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// UpdateLocation 上报位置接口
// @Summary 上报位置
// @Tags 用户接口
// @Accept json
// @Produce json
// @Param request body dto.UpdateLocationRequest true "位置上报请求"
// @Router /api/v1/auth/user/location [put]
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	if err := h.userService.UpdateLocation(ctx, &req); err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "上报位置服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, nil)
}

// Nearby 附近用户接口
// @Summary 附近用户
// @Tags 用户接口
// @Produce json
// @Param radiusMeters query number false "搜索半径（米）"
// @Param limit query int false "返回数量上限"
// @Success 200 {object} dto.NearbyResponse
// @Router /api/v1/auth/user/nearby [get]
func (h *UserHandler) Nearby(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.NearbyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.userService.Nearby(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, nil, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "附近用户服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, nil, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}
