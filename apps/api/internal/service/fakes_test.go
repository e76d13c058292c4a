package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"MeetServer/apps/api/internal/repository"
	"MeetServer/apps/api/internal/storage"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/config"
	"MeetServer/model"
	"MeetServer/pkg/async"
	"MeetServer/pkg/logger"

	"go.uber.org/zap"
)

var serviceTestOnce sync.Once

func initServiceTestEnv() {
	serviceTestOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		_ = async.Init(config.DefaultAsyncConfig())
		utils.InitJWT(config.DefaultJWTConfig())
	})
}

// testCtx 注入认证中间件放进去的身份信息
func testCtx(telegramID int64, userUUID string) context.Context {
	ctx := context.WithValue(context.Background(), "telegram_id", telegramID)
	return context.WithValue(ctx, "user_uuid", userUUID)
}

// ==================== 仓储假实现 ====================

type fakeUserRepo struct {
	getByTelegramIDFn     func(context.Context, int64) (*model.UserProfile, error)
	getByUUIDFn           func(context.Context, string) (*model.UserProfile, error)
	createFn              func(context.Context, *model.UserProfile) (*model.UserProfile, error)
	updateFn              func(context.Context, *model.UserProfile) error
	updateLocationFn      func(context.Context, int64, float64, float64, bool) error
	markActiveFn          func(context.Context, int64) error
	findNearbyFn          func(context.Context, int64, float64, float64, float64, int) ([]*repository.NearbyUser, error)
	clearStaleLocationsFn func(context.Context, time.Time) (int64, error)
	getPhotosFn           func(context.Context, string) ([]*model.ProfilePhoto, error)
	upsertPhotoFn         func(context.Context, *model.ProfilePhoto) (*model.ProfilePhoto, error)
	deletePhotosNotInFn   func(context.Context, string, []int8) ([]*model.ProfilePhoto, error)
}

func (f *fakeUserRepo) GetByTelegramID(ctx context.Context, id int64) (*model.UserProfile, error) {
	if f.getByTelegramIDFn == nil {
		return nil, errors.New("unexpected GetByTelegramID call")
	}
	return f.getByTelegramIDFn(ctx, id)
}

func (f *fakeUserRepo) GetByUUID(ctx context.Context, uuid string) (*model.UserProfile, error) {
	if f.getByUUIDFn == nil {
		return nil, errors.New("unexpected GetByUUID call")
	}
	return f.getByUUIDFn(ctx, uuid)
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.UserProfile) (*model.UserProfile, error) {
	if f.createFn == nil {
		return nil, errors.New("unexpected Create call")
	}
	return f.createFn(ctx, u)
}

func (f *fakeUserRepo) Update(ctx context.Context, u *model.UserProfile) error {
	if f.updateFn == nil {
		return errors.New("unexpected Update call")
	}
	return f.updateFn(ctx, u)
}

func (f *fakeUserRepo) UpdateLocation(ctx context.Context, id int64, lat, lng float64, consent bool) error {
	if f.updateLocationFn == nil {
		return errors.New("unexpected UpdateLocation call")
	}
	return f.updateLocationFn(ctx, id, lat, lng, consent)
}

func (f *fakeUserRepo) MarkActive(ctx context.Context, id int64) error {
	if f.markActiveFn == nil {
		return nil // 活跃打点是旁路行为，默认放过
	}
	return f.markActiveFn(ctx, id)
}

func (f *fakeUserRepo) FindNearby(ctx context.Context, id int64, lat, lng, radius float64, limit int) ([]*repository.NearbyUser, error) {
	if f.findNearbyFn == nil {
		return nil, errors.New("unexpected FindNearby call")
	}
	return f.findNearbyFn(ctx, id, lat, lng, radius, limit)
}

func (f *fakeUserRepo) ClearStaleLocations(ctx context.Context, before time.Time) (int64, error) {
	if f.clearStaleLocationsFn == nil {
		return 0, errors.New("unexpected ClearStaleLocations call")
	}
	return f.clearStaleLocationsFn(ctx, before)
}

func (f *fakeUserRepo) GetPhotos(ctx context.Context, uuid string) ([]*model.ProfilePhoto, error) {
	if f.getPhotosFn == nil {
		return nil, nil
	}
	return f.getPhotosFn(ctx, uuid)
}

func (f *fakeUserRepo) UpsertPhoto(ctx context.Context, p *model.ProfilePhoto) (*model.ProfilePhoto, error) {
	if f.upsertPhotoFn == nil {
		return nil, errors.New("unexpected UpsertPhoto call")
	}
	return f.upsertPhotoFn(ctx, p)
}

func (f *fakeUserRepo) DeletePhotosNotIn(ctx context.Context, uuid string, keep []int8) ([]*model.ProfilePhoto, error) {
	if f.deletePhotosNotInFn == nil {
		return nil, errors.New("unexpected DeletePhotosNotIn call")
	}
	return f.deletePhotosNotInFn(ctx, uuid, keep)
}

type fakeConnRepo struct {
	getByIDFn          func(context.Context, int64) (*model.Connection, error)
	getByPairFn        func(context.Context, int64, int64) (*model.Connection, error)
	createFn           func(context.Context, *model.Connection) (bool, *model.Connection, error)
	cooldownActiveFn   func(context.Context, int64, int64, time.Duration) (bool, error)
	markCooldownCalls  []string
	getPendingListFn   func(context.Context, int64, int, int) ([]*model.Connection, int64, error)
	acceptFn           func(context.Context, int64) (bool, *model.Connection, error)
	rejectFn           func(context.Context, int64) (bool, error)
}

func (f *fakeConnRepo) GetByID(ctx context.Context, id int64) (*model.Connection, error) {
	if f.getByIDFn == nil {
		return nil, errors.New("unexpected GetByID call")
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeConnRepo) GetByPair(ctx context.Context, from, to int64) (*model.Connection, error) {
	if f.getByPairFn == nil {
		return nil, errors.New("unexpected GetByPair call")
	}
	return f.getByPairFn(ctx, from, to)
}

func (f *fakeConnRepo) Create(ctx context.Context, conn *model.Connection) (bool, *model.Connection, error) {
	if f.createFn == nil {
		return false, nil, errors.New("unexpected Create call")
	}
	return f.createFn(ctx, conn)
}

func (f *fakeConnRepo) CooldownActive(ctx context.Context, from, to int64, window time.Duration) (bool, error) {
	if f.cooldownActiveFn == nil {
		return false, errors.New("unexpected CooldownActive call")
	}
	return f.cooldownActiveFn(ctx, from, to, window)
}

func (f *fakeConnRepo) MarkCooldown(ctx context.Context, from, to int64, window time.Duration) {
	f.markCooldownCalls = append(f.markCooldownCalls, "marked")
}

func (f *fakeConnRepo) GetPendingList(ctx context.Context, to int64, page, pageSize int) ([]*model.Connection, int64, error) {
	if f.getPendingListFn == nil {
		return nil, 0, errors.New("unexpected GetPendingList call")
	}
	return f.getPendingListFn(ctx, to, page, pageSize)
}

func (f *fakeConnRepo) AcceptAndCreateSession(ctx context.Context, id int64) (bool, *model.Connection, error) {
	if f.acceptFn == nil {
		return false, nil, errors.New("unexpected AcceptAndCreateSession call")
	}
	return f.acceptFn(ctx, id)
}

func (f *fakeConnRepo) Reject(ctx context.Context, id int64) (bool, error) {
	if f.rejectFn == nil {
		return false, errors.New("unexpected Reject call")
	}
	return f.rejectFn(ctx, id)
}

type fakeChatRepo struct {
	getSessionByPairFn func(context.Context, int64, int64) (*model.ChatSession, error)
	getSessionByIDFn   func(context.Context, int64) (*model.ChatSession, error)
	listSessionsFn     func(context.Context, int64) ([]*model.ChatSession, error)
	createMessageFn    func(context.Context, *model.ChatMessage) (*model.ChatMessage, error)
	getHistoryFn       func(context.Context, int64, int64, int) ([]*model.ChatMessage, error)
}

func (f *fakeChatRepo) GetSessionByPair(ctx context.Context, a, b int64) (*model.ChatSession, error) {
	if f.getSessionByPairFn == nil {
		return nil, nil
	}
	return f.getSessionByPairFn(ctx, a, b)
}

func (f *fakeChatRepo) GetSessionByID(ctx context.Context, id int64) (*model.ChatSession, error) {
	if f.getSessionByIDFn == nil {
		return nil, errors.New("unexpected GetSessionByID call")
	}
	return f.getSessionByIDFn(ctx, id)
}

func (f *fakeChatRepo) ListSessions(ctx context.Context, id int64) ([]*model.ChatSession, error) {
	if f.listSessionsFn == nil {
		return nil, errors.New("unexpected ListSessions call")
	}
	return f.listSessionsFn(ctx, id)
}

func (f *fakeChatRepo) CreateMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	if f.createMessageFn == nil {
		return nil, errors.New("unexpected CreateMessage call")
	}
	return f.createMessageFn(ctx, msg)
}

func (f *fakeChatRepo) GetHistory(ctx context.Context, sessionID, beforeID int64, limit int) ([]*model.ChatMessage, error) {
	if f.getHistoryFn == nil {
		return nil, errors.New("unexpected GetHistory call")
	}
	return f.getHistoryFn(ctx, sessionID, beforeID, limit)
}

// ==================== 对象存储假实现 ====================

type fakeBlobStore struct {
	uploadFn    func(ctx context.Context, reader io.Reader, size int64, fileName, prefix string) (*storage.UploadedBlob, error)
	deleteCalls []string
}

func (f *fakeBlobStore) Upload(ctx context.Context, reader io.Reader, size int64, fileName, prefix string) (*storage.UploadedBlob, error) {
	if f.uploadFn == nil {
		return nil, errors.New("unexpected Upload call")
	}
	return f.uploadFn(ctx, reader, size, fileName, prefix)
}

func (f *fakeBlobStore) Delete(ctx context.Context, objectName string, source string) {
	f.deleteCalls = append(f.deleteCalls, objectName)
}

// ==================== 通知假实现 ====================

type fakeNotifier struct {
	mu             sync.Mutex
	requestCalls   []int64
	acceptedCalls  []int64
}

func (f *fakeNotifier) NotifyConnectionRequest(ctx context.Context, to int64, from *model.UserProfile, connID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestCalls = append(f.requestCalls, to)
}

func (f *fakeNotifier) NotifyConnectionAccepted(ctx context.Context, to int64, by *model.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acceptedCalls = append(f.acceptedCalls, to)
}
