package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"MeetServer/consts/redisKey"
	"MeetServer/model"
	"MeetServer/pkg/async"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// connectionRepositoryImpl 连接请求数据访问层实现
type connectionRepositoryImpl struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewConnectionRepository 创建连接请求仓储实例
func NewConnectionRepository(db *gorm.DB, redisClient *redis.Client) IConnectionRepository {
	return &connectionRepositoryImpl{db: db, redisClient: redisClient}
}

// GetByID 根据 ID 查询连接请求
func (r *connectionRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, WrapDBError(err)
	}
	return &conn, nil
}

// GetByPair 查询有序对 (from, to) 的连接请求
func (r *connectionRepositoryImpl) GetByPair(ctx context.Context, fromTelegramID, toTelegramID int64) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.WithContext(ctx).
		Where("from_telegram_id = ? AND to_telegram_id = ?", fromTelegramID, toTelegramID).
		First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, WrapDBError(err)
	}
	return &conn, nil
}

// Create 创建连接请求
// 唯一键 uidx_from_to 是最终裁判：并发下两个请求同时通过前置检查时，
// 后写的一方收到冲突，按"已存在"返回已有记录，不视为错误。
func (r *connectionRepositoryImpl) Create(ctx context.Context, conn *model.Connection) (bool, *model.Connection, error) {
	err := r.db.WithContext(ctx).Create(conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, getErr := r.GetByPair(ctx, conn.FromTelegramId, conn.ToTelegramId)
			if getErr != nil {
				return false, nil, getErr
			}
			return false, existing, nil
		}
		return false, nil, WrapDBError(err)
	}

	// 尽力而为地更新接收方的待处理请求缓存。
	// 只有 Key 存在时才增量添加，Key 不存在时不操作（让读接口负责全量加载）。
	if r.redisClient != nil {
		cacheKey := rediskey.ConnectionPendingKey(conn.ToTelegramId)
		luaScript := redis.NewScript(luaAddPendingConnIfExists)
		expireSeconds := int(getRandomExpireTime(rediskey.ConnectionPendingTTL).Seconds())
		_, err = luaScript.Run(ctx, r.redisClient,
			[]string{cacheKey},
			conn.CreatedAt.Unix(),
			strconv.FormatInt(conn.FromTelegramId, 10),
			expireSeconds,
		).Result()
		if err != nil && err != redis.Nil {
			// Key 不存在返回 0 不是错误，读接口会负责全量加载
			LogRedisError(ctx, err)
		}
	}

	return true, conn, nil
}

// CooldownActive 判断 (from, to) 是否处于冷却窗口内
// 冷却只约束首条记录落库前的窗口：调用方先做过记录查重，
// 走到这里说明还没有记录。Redis 不可用时降级为"无冷却"，
// 唯一键仍然兜住重复写入。
func (r *connectionRepositoryImpl) CooldownActive(ctx context.Context, fromTelegramID, toTelegramID int64, window time.Duration) (bool, error) {
	if r.redisClient == nil {
		return false, nil
	}
	key := rediskey.ConnectionCooldownKey(fromTelegramID, toTelegramID)
	n, err := r.redisClient.Exists(ctx, key).Result()
	if err != nil {
		LogRedisError(ctx, err)
		return false, nil
	}
	return n > 0, nil
}

// MarkCooldown 记录一次新建尝试的冷却标记
// 只有通过记录查重、真正要写首条记录的尝试才会打标。
func (r *connectionRepositoryImpl) MarkCooldown(ctx context.Context, fromTelegramID, toTelegramID int64, window time.Duration) {
	if r.redisClient == nil {
		return
	}
	key := rediskey.ConnectionCooldownKey(fromTelegramID, toTelegramID)
	async.RunSafe(ctx, func(runCtx context.Context) {
		if err := r.redisClient.Set(runCtx, key, "1", window).Err(); err != nil {
			LogRedisError(runCtx, err)
		}
	}, 0)
}

// GetPendingList 查询发给某用户的待处理连接请求
// 冷热分离：待处理是高热数据，优先查 Redis ZSet，未命中回源 MySQL 并异步重建。
func (r *connectionRepositoryImpl) GetPendingList(ctx context.Context, toTelegramID int64, page, pageSize int) ([]*model.Connection, int64, error) {
	// 兜底分页参数
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	if r.redisClient != nil {
		conns, total, err := r.getPendingListFromCache(ctx, toTelegramID, page, pageSize)
		if err == nil {
			return conns, total, nil
		}
		// Redis 未命中或失败，降级走 MySQL 其中失败情况下打日志
		if err != redis.Nil {
			LogRedisError(ctx, err)
		}
	}

	return r.getPendingListFromDB(ctx, toTelegramID, page, pageSize)
}

// getPendingListFromCache 从 Redis ZSet 获取待处理请求列表
// 返回 error 表示缓存未命中或失败，调用方应降级到 MySQL
func (r *connectionRepositoryImpl) getPendingListFromCache(ctx context.Context, toTelegramID int64, page, pageSize int) ([]*model.Connection, int64, error) {
	cacheKey := rediskey.ConnectionPendingKey(toTelegramID)

	// 1. Pipeline 查询：总数 + 分页成员
	pipe := r.redisClient.Pipeline()
	totalCmd := pipe.ZCard(ctx, cacheKey)
	start := int64((page - 1) * pageSize)
	stop := start + int64(pageSize) - 1
	membersCmd := pipe.ZRevRange(ctx, cacheKey, start, stop) // 按 score(created_at) 倒序

	// 概率续期：1% 概率续期避免热点 key 过期
	if getRandomBool(0.01) {
		pipe.Expire(ctx, cacheKey, getRandomExpireTime(rediskey.ConnectionPendingTTL))
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return nil, 0, err
	}

	total := totalCmd.Val()
	members := membersCmd.Val()

	// 2. 缓存未命中（key 不存在）
	if total == 0 {
		return nil, 0, redis.Nil
	}

	// 3. 空值占位符检查
	if total == 1 && len(members) == 1 && members[0] == "__EMPTY__" {
		return []*model.Connection{}, 0, nil
	}

	fromIDs := make([]int64, 0, len(members))
	hasPlaceholder := false
	for _, m := range members {
		if m == "__EMPTY__" {
			hasPlaceholder = true
			continue
		}
		id, parseErr := strconv.ParseInt(m, 10, 64)
		if parseErr != nil {
			continue
		}
		fromIDs = append(fromIDs, id)
	}

	if len(fromIDs) == 0 {
		return []*model.Connection{}, total, nil
	}

	// 4. 根据 fromIDs 批量查 MySQL 补全完整字段
	var conns []*model.Connection
	err = r.db.WithContext(ctx).
		Where("to_telegram_id = ? AND status = ? AND from_telegram_id IN ?",
			toTelegramID, model.ConnectionStatusPending, fromIDs).
		Order("created_at DESC").
		Find(&conns).Error
	if err != nil {
		return nil, 0, WrapDBError(err)
	}

	// 5. 如果有占位符，总数需要减 1
	realTotal := total
	if hasPlaceholder {
		realTotal--
	}

	return conns, realTotal, nil
}

// getPendingListFromDB 从 MySQL 查询待处理请求列表
func (r *connectionRepositoryImpl) getPendingListFromDB(ctx context.Context, toTelegramID int64, page, pageSize int) ([]*model.Connection, int64, error) {
	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("to_telegram_id = ? AND status = ?", toTelegramID, model.ConnectionStatusPending)

	// 先查总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, WrapDBError(err)
	}

	// 再查列表，按创建时间倒序
	var conns []*model.Connection
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&conns).
		Error; err != nil {
		return nil, 0, WrapDBError(err)
	}

	// 缓存未命中，异步重建 Redis 缓存（需要查全量数据）
	r.rebuildPendingCacheAsync(ctx, toTelegramID)

	return conns, total, nil
}

// rebuildPendingCacheAsync 异步重建待处理请求的 Redis 缓存
// 注意：必须重新查询全量数据，不能使用分页数据
func (r *connectionRepositoryImpl) rebuildPendingCacheAsync(ctx context.Context, toTelegramID int64) {
	if r.redisClient == nil {
		return
	}
	cacheKey := rediskey.ConnectionPendingKey(toTelegramID)

	async.RunSafe(ctx, func(runCtx context.Context) {
		// 1. 重新查询全量待处理请求（只需要 from_telegram_id 和 created_at）
		var conns []model.Connection
		err := r.db.WithContext(runCtx).
			Select("from_telegram_id", "created_at").
			Where("to_telegram_id = ? AND status = ?", toTelegramID, model.ConnectionStatusPending).
			Find(&conns).Error
		if err != nil {
			// 异步重建缓存失败静默忽略，不影响主流程
			return
		}

		// 2. 重建缓存
		pipe := r.redisClient.Pipeline()
		pipe.Del(runCtx, cacheKey)

		if len(conns) == 0 {
			// 空值占位，防止缓存穿透
			pipe.ZAdd(runCtx, cacheKey, redis.Z{
				Score:  0,
				Member: "__EMPTY__",
			})
			pipe.Expire(runCtx, cacheKey, rediskey.ConnectionPendingEmptyTTL)
		} else {
			zs := make([]redis.Z, 0, len(conns))
			for _, conn := range conns {
				zs = append(zs, redis.Z{
					Score:  float64(conn.CreatedAt.Unix()),
					Member: strconv.FormatInt(conn.FromTelegramId, 10),
				})
			}
			pipe.ZAdd(runCtx, cacheKey, zs...)
			pipe.Expire(runCtx, cacheKey, getRandomExpireTime(rediskey.ConnectionPendingTTL))
		}

		if _, err := pipe.Exec(runCtx); err != nil {
			LogRedisError(runCtx, err)
		}
	}, 0)
}

// AcceptAndCreateSession 接受请求并创建聊天会话（事务 + CAS 幂等）
// 在同一事务中执行：
//  1. CAS 更新请求状态（WHERE status=0 守门员）
//  2. 创建聊天会话（无序对归一化 + Upsert 幂等）
//
// 返回值:
//   - alreadyProcessed=true: 请求已被处理（幂等成功，不是错误）
//   - conn: 请求记录（含双方 id，调用方用于通知）
func (r *connectionRepositoryImpl) AcceptAndCreateSession(ctx context.Context, connID int64) (bool, *model.Connection, error) {
	var alreadyProcessed bool
	var conn model.Connection

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", connID).First(&conn).Error; err != nil {
			return err
		}

		// 1. CAS 更新请求状态（WHERE status=0 作为守门员）
		result := tx.Model(&model.Connection{}).
			Where("id = ? AND status = ?", connID, model.ConnectionStatusPending).
			Update("status", model.ConnectionStatusAccepted)
		if result.Error != nil {
			return result.Error
		}

		// 幂等判断：RowsAffected=0 表示已被处理
		if result.RowsAffected == 0 {
			alreadyProcessed = true
			return nil // 不触发回滚，幂等成功
		}

		// 2. 创建聊天会话（归一化无序对，冲突视为已有会话）
		a, b := model.NormalizePair(conn.FromTelegramId, conn.ToTelegramId)
		session := &model.ChatSession{
			UserATelegramId: a,
			UserBTelegramId: b,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_telegram_id"}, {Name: "user_b_telegram_id"}},
			DoNothing: true,
		}).Create(session).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, ErrRecordNotFound
		}
		return false, nil, WrapDBError(err)
	}

	// 3. 事务成功后从接收方的待处理缓存里移除该请求
	if !alreadyProcessed {
		r.removePendingCacheAsync(ctx, conn.ToTelegramId, conn.FromTelegramId)
	}

	return alreadyProcessed, &conn, nil
}

// Reject 拒绝请求（CAS 幂等）
func (r *connectionRepositoryImpl) Reject(ctx context.Context, connID int64) (bool, error) {
	var conn model.Connection
	if err := r.db.WithContext(ctx).Where("id = ?", connID).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRecordNotFound
		}
		return false, WrapDBError(err)
	}

	result := r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("id = ? AND status = ?", connID, model.ConnectionStatusPending).
		Update("status", model.ConnectionStatusRejected)
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}

	if result.RowsAffected == 0 {
		return true, nil
	}

	r.removePendingCacheAsync(ctx, conn.ToTelegramId, conn.FromTelegramId)
	return false, nil
}

// removePendingCacheAsync 异步从待处理缓存移除指定发起方
func (r *connectionRepositoryImpl) removePendingCacheAsync(ctx context.Context, toTelegramID, fromTelegramID int64) {
	if r.redisClient == nil {
		return
	}
	cacheKey := rediskey.ConnectionPendingKey(toTelegramID)

	async.RunSafe(ctx, func(runCtx context.Context) {
		script := redis.NewScript(luaRemovePendingConnIfExists)
		expireSeconds := int(getRandomExpireTime(rediskey.ConnectionPendingTTL).Seconds())
		_, err := script.Run(runCtx, r.redisClient,
			[]string{cacheKey},
			strconv.FormatInt(fromTelegramID, 10),
			expireSeconds,
		).Result()
		if err != nil && err != redis.Nil {
			LogRedisError(runCtx, err)
		}
	}, 0)
}
