package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"MeetServer/consts/redisKey"
	"MeetServer/model"
	"MeetServer/pkg/async"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// userRepositoryImpl 用户资料数据访问层实现
type userRepositoryImpl struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewUserRepository 创建用户资料仓储实例
func NewUserRepository(db *gorm.DB, redisClient *redis.Client) IUserRepository {
	return &userRepositoryImpl{db: db, redisClient: redisClient}
}

// GetByTelegramID 根据 Telegram ID 查询用户资料
// Cache-Aside：优先查 Redis，未命中回源 MySQL 并异步回填；
// 空结果写 "{}" 占位防止穿透。
func (r *userRepositoryImpl) GetByTelegramID(ctx context.Context, telegramID int64) (*model.UserProfile, error) {
	// ==================== 1. 先从 Redis 缓存中查询 ====================
	cacheKey := rediskey.UserProfileKey(telegramID)
	if r.redisClient != nil {
		cachedData, err := r.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			// 缓存命中，先判空占位
			if cachedData == "{}" {
				return nil, nil
			}
			var user model.UserProfile
			if err := json.Unmarshal([]byte(cachedData), &user); err == nil {
				return &user, nil
			}
		}
		if err != nil && err != redis.Nil {
			LogRedisError(ctx, err) // 记录日志 降级处理
		}
	}

	// ==================== 2. 缓存未命中，查询 MySQL ====================
	var user model.UserProfile
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 存一份空占位，短 TTL
			r.setCacheAsync(ctx, cacheKey, "{}", getRandomExpireTime(rediskey.UserProfileEmptyTTL))
			return nil, nil
		}
		return nil, WrapDBError(err)
	}

	// ==================== 3. 异步回填 Redis 缓存 ====================
	if userJSON, marshalErr := json.Marshal(user); marshalErr == nil {
		r.setCacheAsync(ctx, cacheKey, string(userJSON), getRandomExpireTime(rediskey.UserProfileTTL))
	}

	return &user, nil
}

// GetByUUID 根据内部 UUID 查询用户资料（低频路径，直查 DB）
func (r *userRepositoryImpl) GetByUUID(ctx context.Context, uuid string) (*model.UserProfile, error) {
	var user model.UserProfile
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, WrapDBError(err)
	}
	return &user, nil
}

// Create 创建用户资料
func (r *userRepositoryImpl) Create(ctx context.Context, user *model.UserProfile) (*model.UserProfile, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, WrapDBError(err)
	}

	// 删除可能存在的空占位缓存
	r.invalidateCache(ctx, user.TelegramId)

	return user, nil
}

// Update 更新用户资料（全量字段）
func (r *userRepositoryImpl) Update(ctx context.Context, user *model.UserProfile) error {
	updates := map[string]interface{}{
		"display_name":     user.DisplayName,
		"age":              user.Age,
		"bio":              user.Bio,
		"interests":        jsonOrNull(user.Interests),
		"looking_for":      jsonOrNull(user.LookingFor),
		"languages":        jsonOrNull(user.Languages),
		"avatar_url":       user.AvatarUrl,
		"avatar_blob_id":   user.AvatarBlobId,
		"profile_complete": user.ProfileComplete,
		"updated_at":       time.Now(),
	}

	err := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Where("telegram_id = ?", user.TelegramId).
		Updates(updates).
		Error
	if err != nil {
		return WrapDBError(err)
	}

	r.invalidateCache(ctx, user.TelegramId)
	return nil
}

// UpdateLocation 更新用户位置与共享同意标记
// 位置写入同时刷新活跃时间：上报位置本身就是一次活跃行为。
func (r *userRepositoryImpl) UpdateLocation(ctx context.Context, telegramID int64, lat, lng float64, consent bool) error {
	err := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"latitude":         lat,
			"longitude":        lng,
			"location_consent": consent,
			"last_active_at":   time.Now(),
			"updated_at":       time.Now(),
		}).
		Error
	if err != nil {
		return WrapDBError(err)
	}

	r.invalidateCache(ctx, telegramID)
	return nil
}

// MarkActive 刷新最近活跃时间
// 高频调用，只更新时间戳，缓存中的资料字段不受影响，不做失效。
func (r *userRepositoryImpl) MarkActive(ctx context.Context, telegramID int64) error {
	err := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Where("telegram_id = ?", telegramID).
		Update("last_active_at", time.Now()).
		Error
	return WrapDBError(err)
}

// FindNearby 查询附近用户
// 空间计算交给 MySQL 的 ST_Distance_Sphere，距离随行返回；
// 排序先按距离再按 uuid，保证同距离时结果稳定。
func (r *userRepositoryImpl) FindNearby(ctx context.Context, telegramID int64, lat, lng, radiusMeters float64, limit int) ([]*NearbyUser, error) {
	if limit <= 0 {
		limit = 20
	}

	var users []*NearbyUser
	err := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Select("user_profile.*, ST_Distance_Sphere(POINT(longitude, latitude), POINT(?, ?)) AS distance_meters", lng, lat).
		Where("telegram_id <> ?", telegramID).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("location_consent = ?", true).
		Where("profile_complete = ?", true).
		Where("ST_Distance_Sphere(POINT(longitude, latitude), POINT(?, ?)) <= ?", lng, lat, radiusMeters).
		Order("distance_meters ASC, uuid ASC").
		Limit(limit).
		Find(&users).
		Error
	if err != nil {
		return nil, WrapDBError(err)
	}

	return users, nil
}

// ClearStaleLocations 清除长期不活跃用户的位置
// 只清坐标不删行，资料保留，用户回归后重新上报即可。
func (r *userRepositoryImpl) ClearStaleLocations(ctx context.Context, inactiveBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Where("last_active_at < ?", inactiveBefore).
		Where("latitude IS NOT NULL OR longitude IS NOT NULL").
		Updates(map[string]interface{}{
			"latitude":   nil,
			"longitude":  nil,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}
	return result.RowsAffected, nil
}

// GetPhotos 查询用户资料照片，按槽位升序
func (r *userRepositoryImpl) GetPhotos(ctx context.Context, userUUID string) ([]*model.ProfilePhoto, error) {
	var photos []*model.ProfilePhoto
	err := r.db.WithContext(ctx).
		Where("user_uuid = ?", userUUID).
		Order("slot_index ASC").
		Find(&photos).
		Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return photos, nil
}

// UpsertPhoto 写入指定槽位的照片
// 槽位被占用时覆盖，返回旧照片供调用方清理对象存储。
func (r *userRepositoryImpl) UpsertPhoto(ctx context.Context, photo *model.ProfilePhoto) (*model.ProfilePhoto, error) {
	var old *model.ProfilePhoto

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ProfilePhoto
		err := tx.Where("user_uuid = ? AND slot_index = ?", photo.UserUuid, photo.SlotIndex).
			First(&existing).Error
		switch {
		case err == nil:
			old = &existing
			return tx.Model(&model.ProfilePhoto{}).
				Where("id = ?", existing.Id).
				Updates(map[string]interface{}{
					"blob_id": photo.BlobId,
					"url":     photo.Url,
				}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(photo).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, WrapDBError(err)
	}

	return old, nil
}

// DeletePhotosNotIn 删除不在保留槽位集合中的照片
// keepSlots 为空表示全部删除。返回被删除的照片供调用方清理对象存储。
func (r *userRepositoryImpl) DeletePhotosNotIn(ctx context.Context, userUUID string, keepSlots []int8) ([]*model.ProfilePhoto, error) {
	var victims []*model.ProfilePhoto

	query := r.db.WithContext(ctx).Where("user_uuid = ?", userUUID)
	if len(keepSlots) > 0 {
		query = query.Where("slot_index NOT IN ?", keepSlots)
	}

	if err := query.Find(&victims).Error; err != nil {
		return nil, WrapDBError(err)
	}
	if len(victims) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(victims))
	for _, p := range victims {
		ids = append(ids, p.Id)
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.ProfilePhoto{}).Error; err != nil {
		return nil, WrapDBError(err)
	}

	return victims, nil
}

// ==================== 缓存辅助 ====================

// setCacheAsync 异步写缓存（尽力而为）
func (r *userRepositoryImpl) setCacheAsync(ctx context.Context, key, value string, ttl time.Duration) {
	if r.redisClient == nil {
		return
	}
	async.RunSafe(ctx, func(runCtx context.Context) {
		if err := r.redisClient.Set(runCtx, key, value, ttl).Err(); err != nil {
			LogRedisError(runCtx, err)
		}
	}, 0)
}

// invalidateCache 写路径后失效资料缓存（同步删，失败只记日志）
func (r *userRepositoryImpl) invalidateCache(ctx context.Context, telegramID int64) {
	if r.redisClient == nil {
		return
	}
	cacheKey := rediskey.UserProfileKey(telegramID)
	if err := r.redisClient.Del(ctx, cacheKey).Err(); err != nil && err != redis.Nil {
		LogRedisError(ctx, err)
	}
}

// jsonOrNull 标签集合序列化（Updates 的 map 不走 gorm serializer，需手动处理）
func jsonOrNull(values []string) interface{} {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}
