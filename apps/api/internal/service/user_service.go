package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"MeetServer/apps/api/internal/converter"
	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/repository"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/config"
	"MeetServer/consts"
	"MeetServer/model"
	"MeetServer/pkg/async"
	"MeetServer/pkg/logger"
	"MeetServer/pkg/util"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// 附近列表会对一批用户反复取照片，套一层短 TTL 的进程内缓存
const (
	photoCacheSize = 4096
	photoCacheTTL  = 5 * time.Minute
)

// userServiceImpl 用户资料服务实现
type userServiceImpl struct {
	userRepo      repository.IUserRepository
	blobStore     BlobStorage
	validate      *validator.Validate
	validationCfg config.ValidationConfig

	// 照片热缓存：user_uuid -> 照片列表
	photoCache *expirable.LRU[string, []*model.ProfilePhoto]
}

// NewUserService 创建用户资料服务实例
func NewUserService(
	userRepo repository.IUserRepository,
	blobStore BlobStorage,
	validationCfg config.ValidationConfig,
) UserService {
	return &userServiceImpl{
		userRepo:      userRepo,
		blobStore:     blobStore,
		validate:      validator.New(),
		validationCfg: validationCfg,
		photoCache:    expirable.NewLRU[string, []*model.ProfilePhoto](photoCacheSize, nil, photoCacheTTL),
	}
}

// validateProfileFields 按配置边界校验资料字段
func (s *userServiceImpl) validateProfileFields(displayName string, age int, bio *string) error {
	if displayName == "" || utf8.RuneCountInString(displayName) > s.validationCfg.DisplayNameMaxLen {
		return bizError(consts.CodeParamError)
	}
	ageRule := fmt.Sprintf("gte=%d,lte=%d", s.validationCfg.AgeMin, s.validationCfg.AgeMax)
	if err := s.validate.Var(age, ageRule); err != nil {
		return bizError(consts.CodeParamError)
	}
	if bio != nil && utf8.RuneCountInString(*bio) > s.validationCfg.BioMaxLen {
		return bizError(consts.CodeParamError)
	}
	return nil
}

// Register 注册资料
// 幂等策略：已注册用户重复调用按更新处理，不报"已存在"错误，
// 机器人和 Web 两个入口都可能重放注册请求。
func (s *userServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest, avatar *UploadFile) (*dto.RegisterResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	var bio *string
	if req.Bio != "" {
		bio = &req.Bio
	}
	if err := s.validateProfileFields(req.DisplayName, req.Age, bio); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		logger.Error(ctx, "查询用户资料失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	if existing != nil {
		return s.reRegister(ctx, existing, req, avatar)
	}

	// 首次注册必须有头像
	if avatar == nil {
		return nil, bizError(consts.CodeAvatarRequired)
	}

	uploaded, err := s.blobStore.Upload(ctx, avatar.Reader, avatar.Size, avatar.FileName, "avatar/")
	if err != nil {
		logger.Error(ctx, "头像上传失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeUploadFail)
	}

	user := &model.UserProfile{
		Uuid:            util.NewUUID(),
		TelegramId:      telegramID,
		DisplayName:     req.DisplayName,
		Age:             req.Age,
		Bio:             bio,
		Interests:       req.Interests,
		LookingFor:      req.LookingFor,
		Languages:       req.Languages,
		AvatarUrl:       uploaded.URL,
		AvatarBlobId:    uploaded.ObjectName,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		LocationConsent: req.Consent,
		ProfileComplete: true,
		LastActiveAt:    time.Now(),
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		// 创建失败时回收刚上传的头像，避免孤儿图片
		s.blobStore.Delete(ctx, uploaded.ObjectName, "UserService.Register")
		if errors.Is(err, repository.ErrDuplicateKey) {
			// 并发重复注册，回读已有资料
			return nil, bizError(consts.CodeUserAlreadyExist)
		}
		logger.Error(ctx, "创建用户资料失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	// 注册后重签 Token，把 uuid 带进去
	token, err := utils.GenerateToken(telegramID, created.Uuid)
	if err != nil {
		logger.Error(ctx, "签发 Token 失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	return &dto.RegisterResponse{
		Profile: converter.ModelToProfileInfo(created, nil),
		Token:   token,
	}, nil
}

// reRegister 已注册用户的重复注册按更新处理
func (s *userServiceImpl) reRegister(ctx context.Context, existing *model.UserProfile, req *dto.RegisterRequest, avatar *UploadFile) (*dto.RegisterResponse, error) {
	existing.DisplayName = req.DisplayName
	existing.Age = req.Age
	if req.Bio != "" {
		existing.Bio = &req.Bio
	}
	if req.Interests != nil {
		existing.Interests = req.Interests
	}
	if req.LookingFor != nil {
		existing.LookingFor = req.LookingFor
	}
	if req.Languages != nil {
		existing.Languages = req.Languages
	}

	oldAvatarBlob := ""
	if avatar != nil {
		uploaded, err := s.blobStore.Upload(ctx, avatar.Reader, avatar.Size, avatar.FileName, "avatar/")
		if err != nil {
			logger.Error(ctx, "头像上传失败", logger.ErrorField("error", err))
			return nil, bizError(consts.CodeUploadFail)
		}
		oldAvatarBlob = existing.AvatarBlobId
		existing.AvatarUrl = uploaded.URL
		existing.AvatarBlobId = uploaded.ObjectName
	}

	if err := s.userRepo.Update(ctx, existing); err != nil {
		logger.Error(ctx, "更新用户资料失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	// 数据库更新成功后才删旧头像（删除失败走重试队列）
	if oldAvatarBlob != "" {
		s.blobStore.Delete(ctx, oldAvatarBlob, "UserService.Register")
	}

	if req.Latitude != nil && req.Longitude != nil {
		if err := s.userRepo.UpdateLocation(ctx, existing.TelegramId, *req.Latitude, *req.Longitude, req.Consent); err != nil {
			logger.Warn(ctx, "更新位置失败", logger.ErrorField("error", err))
		}
	}

	token, err := utils.GenerateToken(existing.TelegramId, existing.Uuid)
	if err != nil {
		logger.Error(ctx, "签发 Token 失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	photos := s.getPhotosCached(ctx, existing.Uuid)
	return &dto.RegisterResponse{
		Profile: converter.ModelToProfileInfo(existing, photos),
		Token:   token,
	}, nil
}

// GetMe 获取本人资料
func (s *userServiceImpl) GetMe(ctx context.Context) (*dto.GetProfileResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		logger.Error(ctx, "查询用户资料失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if user == nil {
		return nil, bizError(consts.CodeUserNotFound)
	}

	// 查看自己的资料也算活跃
	async.RunSafe(ctx, func(runCtx context.Context) {
		if err := s.userRepo.MarkActive(runCtx, telegramID); err != nil {
			logger.Warn(runCtx, "刷新活跃时间失败", logger.ErrorField("error", err))
		}
	}, 5*time.Second)

	photos := s.getPhotosCached(ctx, user.Uuid)
	return &dto.GetProfileResponse{
		Profile: converter.ModelToProfileInfo(user, photos),
	}, nil
}

// UpdateProfile 更新资料
// 照片采用"保留集"语义：RetainPhotoSlots 未列出的槽位照片删除，
// photos 里的新文件覆盖对应槽位。先写库后删对象，删除失败交给重试队列。
func (s *userServiceImpl) UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest, avatar *UploadFile, photos map[int8]*UploadFile) (*dto.UpdateProfileResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		logger.Error(ctx, "查询用户资料失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if user == nil {
		return nil, bizError(consts.CodeUserNotFound)
	}

	// 1. 文本字段（只更新传了的）
	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.Age != nil {
		user.Age = *req.Age
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if err := s.validateProfileFields(user.DisplayName, user.Age, user.Bio); err != nil {
		return nil, err
	}
	if req.Interests != nil {
		user.Interests = req.Interests
	}
	if req.LookingFor != nil {
		user.LookingFor = req.LookingFor
	}
	if req.Languages != nil {
		user.Languages = req.Languages
	}

	// 2. 槽位校验
	maxSlot := int8(s.validationCfg.MaxProfilePhotos - 1)
	for slot := range photos {
		if slot < 0 || slot > maxSlot {
			return nil, bizError(consts.CodePhotoSlotInvalid)
		}
	}
	for _, slot := range req.RetainPhotoSlots {
		if slot < 0 || slot > maxSlot {
			return nil, bizError(consts.CodePhotoSlotInvalid)
		}
	}

	// 3. 新头像
	oldAvatarBlob := ""
	if avatar != nil {
		uploaded, upErr := s.blobStore.Upload(ctx, avatar.Reader, avatar.Size, avatar.FileName, "avatar/")
		if upErr != nil {
			logger.Error(ctx, "头像上传失败", logger.ErrorField("error", upErr))
			return nil, bizError(consts.CodeUploadFail)
		}
		oldAvatarBlob = user.AvatarBlobId
		user.AvatarUrl = uploaded.URL
		user.AvatarBlobId = uploaded.ObjectName
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		logger.Error(ctx, "更新用户资料失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	if oldAvatarBlob != "" {
		s.blobStore.Delete(ctx, oldAvatarBlob, "UserService.UpdateProfile")
	}

	// 4. 删除未保留的照片（新上传的槽位即便没进保留集也视为保留）
	keep := make([]int8, 0, s.validationCfg.MaxProfilePhotos)
	keep = append(keep, req.RetainPhotoSlots...)
	for slot := range photos {
		keep = append(keep, slot)
	}
	removed, err := s.userRepo.DeletePhotosNotIn(ctx, user.Uuid, keep)
	if err != nil {
		logger.Error(ctx, "删除资料照片失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}
	for _, p := range removed {
		s.blobStore.Delete(ctx, p.BlobId, "UserService.UpdateProfile")
	}

	// 5. 上传并写入新照片
	for slot, file := range photos {
		uploaded, upErr := s.blobStore.Upload(ctx, file.Reader, file.Size, file.FileName, "photo/")
		if upErr != nil {
			logger.Error(ctx, "资料照片上传失败",
				logger.Int("slot", int(slot)),
				logger.ErrorField("error", upErr),
			)
			return nil, bizError(consts.CodeUploadFail)
		}
		old, upsertErr := s.userRepo.UpsertPhoto(ctx, &model.ProfilePhoto{
			UserUuid:  user.Uuid,
			SlotIndex: slot,
			BlobId:    uploaded.ObjectName,
			Url:       uploaded.URL,
		})
		if upsertErr != nil {
			s.blobStore.Delete(ctx, uploaded.ObjectName, "UserService.UpdateProfile")
			logger.Error(ctx, "写入资料照片失败", logger.ErrorField("error", upsertErr))
			return nil, bizError(consts.CodeInternalError)
		}
		if old != nil {
			s.blobStore.Delete(ctx, old.BlobId, "UserService.UpdateProfile")
		}
	}

	s.photoCache.Remove(user.Uuid)

	finalPhotos := s.getPhotosCached(ctx, user.Uuid)
	return &dto.UpdateProfileResponse{
		Profile: converter.ModelToProfileInfo(user, finalPhotos),
	}, nil
}

// UpdateLocation 上报位置
func (s *userServiceImpl) UpdateLocation(ctx context.Context, req *dto.UpdateLocationRequest) error {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		logger.Error(ctx, "查询用户资料失败", logger.ErrorField("error", err))
		return bizError(consts.CodeInternalError)
	}
	if user == nil {
		return bizError(consts.CodeUserNotFound)
	}

	if err := s.userRepo.UpdateLocation(ctx, telegramID, req.Latitude, req.Longitude, req.Consent); err != nil {
		logger.Error(ctx, "更新位置失败", logger.ErrorField("error", err))
		return bizError(consts.CodeInternalError)
	}
	return nil
}

// Nearby 查询附近用户
// 原点优先用请求里的 lat/lng，不传时回退到用户上报过的位置
// （回退要求有位置且同意共享）。查询本身只返回开启共享、资料完整的用户。
func (s *userServiceImpl) Nearby(ctx context.Context, req *dto.NearbyRequest) (*dto.NearbyResponse, error) {
	telegramID, err := currentTelegramID(ctx)
	if err != nil {
		return nil, err
	}

	var lat, lng float64
	if req.Latitude != nil && req.Longitude != nil {
		lat, lng = *req.Latitude, *req.Longitude
	} else {
		user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
		if err != nil {
			logger.Error(ctx, "查询用户资料失败", logger.ErrorField("error", err))
			return nil, bizError(consts.CodeInternalError)
		}
		if user == nil {
			return nil, bizError(consts.CodeUserNotFound)
		}
		if !user.HasLocation() || !user.LocationConsent {
			return nil, bizError(consts.CodeLocationMissing)
		}
		lat, lng = *user.Latitude, *user.Longitude
	}

	radius := req.RadiusMeters
	if radius <= 0 {
		radius = 5000
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	nearby, err := s.userRepo.FindNearby(ctx, telegramID, lat, lng, radius, limit)
	if err != nil {
		logger.Error(ctx, "附近用户查询失败", logger.ErrorField("error", err))
		return nil, bizError(consts.CodeInternalError)
	}

	items := make([]*dto.NearbyUserInfo, 0, len(nearby))
	for _, n := range nearby {
		photos := s.getPhotosCached(ctx, n.Uuid)
		items = append(items, converter.ModelToNearbyUserInfo(&n.UserProfile, photos, n.DistanceMeters))
	}

	return &dto.NearbyResponse{Users: items}, nil
}

// getPhotosCached 取用户照片，LRU 短缓存，失败降级为空列表
func (s *userServiceImpl) getPhotosCached(ctx context.Context, userUUID string) []*model.ProfilePhoto {
	if cached, ok := s.photoCache.Get(userUUID); ok {
		return cached
	}

	photos, err := s.userRepo.GetPhotos(ctx, userUUID)
	if err != nil {
		logger.Warn(ctx, "查询资料照片失败", logger.ErrorField("error", err))
		return nil
	}
	s.photoCache.Add(userUUID, photos)
	return photos
}
