package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"MeetServer/apps/api/internal/dto"
	"MeetServer/config"
	"MeetServer/consts"
	"MeetServer/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnService(connRepo *fakeConnRepo, userRepo *fakeUserRepo, chatRepo *fakeChatRepo, notifier Notifier) ConnectionService {
	initServiceTestEnv()
	return NewConnectionService(connRepo, userRepo, chatRepo, notifier, config.DefaultConnectionConfig())
}

func TestConnectionCreate_Created(t *testing.T) {
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id, Uuid: "u-" + strconv.FormatInt(id, 10)}, nil
		},
	}
	connRepo := &fakeConnRepo{
		cooldownActiveFn: func(ctx context.Context, from, to int64, window time.Duration) (bool, error) {
			return false, nil
		},
		getByPairFn: func(ctx context.Context, from, to int64) (*model.Connection, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, conn *model.Connection) (bool, *model.Connection, error) {
			assert.NotZero(t, conn.Id)
			return true, conn, nil
		},
	}

	svc := newConnService(connRepo, userRepo, &fakeChatRepo{}, nil)
	resp, err := svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 2})

	require.NoError(t, err)
	assert.Equal(t, dto.ConnectionOutcomeCreated, resp.Outcome)
	assert.NotZero(t, resp.ConnectionID)
	// 本次尝试刷新了冷却标记
	assert.Len(t, connRepo.markCooldownCalls, 1)
}

func TestConnectionCreate_Cooldown(t *testing.T) {
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id}, nil
		},
	}
	connRepo := &fakeConnRepo{
		getByPairFn: func(ctx context.Context, from, to int64) (*model.Connection, error) {
			return nil, nil
		},
		cooldownActiveFn: func(ctx context.Context, from, to int64, window time.Duration) (bool, error) {
			return true, nil
		},
	}

	svc := newConnService(connRepo, userRepo, &fakeChatRepo{}, nil)
	resp, err := svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 2})

	require.NoError(t, err)
	assert.Equal(t, dto.ConnectionOutcomeCooldown, resp.Outcome)
	assert.Positive(t, resp.CooldownLeft)
	// 冷却中的尝试不再刷新标记，也不触发写入
	assert.Empty(t, connRepo.markCooldownCalls)
}

func TestConnectionCreate_AlreadyExists(t *testing.T) {
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id}, nil
		},
	}
	connRepo := &fakeConnRepo{
		getByPairFn: func(ctx context.Context, from, to int64) (*model.Connection, error) {
			return &model.Connection{Id: 99, FromTelegramId: from, ToTelegramId: to}, nil
		},
	}

	svc := newConnService(connRepo, userRepo, &fakeChatRepo{}, nil)
	resp, err := svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 2})

	require.NoError(t, err)
	assert.Equal(t, dto.ConnectionOutcomeAlreadyExists, resp.Outcome)
	assert.Equal(t, int64(99), resp.ConnectionID)
	// 查重命中直接返回，不再进入冷却判断，也不刷新标记
	assert.Empty(t, connRepo.markCooldownCalls)
}

func TestConnectionCreate_RepeatWithinCooldownIsIdempotent(t *testing.T) {
	// 有状态假仓储：冷却标记和已写入记录都保留在两次调用之间。
	// 第二次相同请求必须返回 already_exists 和首次的记录 id，
	// 冷却只约束记录落库前的窗口，不能遮蔽查重。
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id}, nil
		},
	}
	var stored *model.Connection
	connRepo := &fakeConnRepo{}
	connRepo.getByPairFn = func(ctx context.Context, from, to int64) (*model.Connection, error) {
		return stored, nil
	}
	connRepo.cooldownActiveFn = func(ctx context.Context, from, to int64, window time.Duration) (bool, error) {
		return len(connRepo.markCooldownCalls) > 0, nil
	}
	connRepo.createFn = func(ctx context.Context, conn *model.Connection) (bool, *model.Connection, error) {
		stored = conn
		return true, conn, nil
	}

	svc := newConnService(connRepo, userRepo, &fakeChatRepo{}, nil)

	first, err := svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 2})
	require.NoError(t, err)
	require.Equal(t, dto.ConnectionOutcomeCreated, first.Outcome)
	require.NotZero(t, first.ConnectionID)

	second, err := svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 2})
	require.NoError(t, err)
	assert.Equal(t, dto.ConnectionOutcomeAlreadyExists, second.Outcome)
	assert.Equal(t, first.ConnectionID, second.ConnectionID)
}

func TestConnectionCreate_ConcurrentDuplicate(t *testing.T) {
	// 前置检查通过，但插入时另一请求抢先：归为 already_exists
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id}, nil
		},
	}
	connRepo := &fakeConnRepo{
		cooldownActiveFn: func(ctx context.Context, from, to int64, window time.Duration) (bool, error) {
			return false, nil
		},
		getByPairFn: func(ctx context.Context, from, to int64) (*model.Connection, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, conn *model.Connection) (bool, *model.Connection, error) {
			return false, &model.Connection{Id: 77}, nil
		},
	}

	svc := newConnService(connRepo, userRepo, &fakeChatRepo{}, nil)
	resp, err := svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 2})

	require.NoError(t, err)
	assert.Equal(t, dto.ConnectionOutcomeAlreadyExists, resp.Outcome)
	assert.Equal(t, int64(77), resp.ConnectionID)
}

func TestConnectionCreate_SelfAndMissingTarget(t *testing.T) {
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return nil, nil // 目标不存在
		},
	}
	svc := newConnService(&fakeConnRepo{}, userRepo, &fakeChatRepo{}, nil)

	// 向自己打招呼
	_, err := svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 1})
	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodeSelfConnection), err.Error())

	// 目标不存在
	_, err = svc.Create(testCtx(1, "u-1"), &dto.CreateConnectionRequest{ToTelegramID: 2})
	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodeUserNotFound), err.Error())
}

func TestConnectionAccept_CreatesSession(t *testing.T) {
	conn := &model.Connection{Id: 10, FromTelegramId: 1, ToTelegramId: 2, Status: model.ConnectionStatusPending}
	connRepo := &fakeConnRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Connection, error) {
			return conn, nil
		},
		acceptFn: func(ctx context.Context, id int64) (bool, *model.Connection, error) {
			return false, conn, nil
		},
	}
	chatRepo := &fakeChatRepo{
		getSessionByPairFn: func(ctx context.Context, a, b int64) (*model.ChatSession, error) {
			return &model.ChatSession{Id: 55, UserATelegramId: 1, UserBTelegramId: 2}, nil
		},
	}

	svc := newConnService(connRepo, &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id}, nil
		},
	}, chatRepo, nil)

	// 接收方（to=2）接受
	resp, err := svc.Accept(testCtx(2, "u-2"), &dto.HandleConnectionRequest{ConnectionID: 10})
	require.NoError(t, err)
	assert.False(t, resp.AlreadyProcessed)
	assert.Equal(t, int64(55), resp.ChatSessionID)
}

func TestConnectionAccept_Idempotent(t *testing.T) {
	conn := &model.Connection{Id: 10, FromTelegramId: 1, ToTelegramId: 2, Status: model.ConnectionStatusAccepted}
	connRepo := &fakeConnRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Connection, error) {
			return conn, nil
		},
		acceptFn: func(ctx context.Context, id int64) (bool, *model.Connection, error) {
			return true, conn, nil
		},
	}
	chatRepo := &fakeChatRepo{
		getSessionByPairFn: func(ctx context.Context, a, b int64) (*model.ChatSession, error) {
			return &model.ChatSession{Id: 55}, nil
		},
	}

	svc := newConnService(connRepo, &fakeUserRepo{}, chatRepo, nil)
	resp, err := svc.Accept(testCtx(2, "u-2"), &dto.HandleConnectionRequest{ConnectionID: 10})

	require.NoError(t, err)
	assert.True(t, resp.AlreadyProcessed)
	assert.Equal(t, int64(55), resp.ChatSessionID)
}

func TestConnectionAccept_OnlyRecipient(t *testing.T) {
	conn := &model.Connection{Id: 10, FromTelegramId: 1, ToTelegramId: 2}
	connRepo := &fakeConnRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Connection, error) {
			return conn, nil
		},
	}

	svc := newConnService(connRepo, &fakeUserRepo{}, &fakeChatRepo{}, nil)

	// 发起方（from=1）不能替对方接受
	_, err := svc.Accept(testCtx(1, "u-1"), &dto.HandleConnectionRequest{ConnectionID: 10})
	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodePermissionDeny), err.Error())

	// 无关用户同样拒绝
	_, err = svc.Accept(testCtx(3, "u-3"), &dto.HandleConnectionRequest{ConnectionID: 10})
	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodePermissionDeny), err.Error())
}

func TestConnectionReject(t *testing.T) {
	conn := &model.Connection{Id: 10, FromTelegramId: 1, ToTelegramId: 2}
	connRepo := &fakeConnRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Connection, error) {
			return conn, nil
		},
		rejectFn: func(ctx context.Context, id int64) (bool, error) {
			return false, nil
		},
	}

	svc := newConnService(connRepo, &fakeUserRepo{}, &fakeChatRepo{}, nil)
	resp, err := svc.Reject(testCtx(2, "u-2"), &dto.HandleConnectionRequest{ConnectionID: 10})

	require.NoError(t, err)
	assert.False(t, resp.AlreadyProcessed)
}

func TestConnectionReject_NotFound(t *testing.T) {
	connRepo := &fakeConnRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Connection, error) {
			return nil, nil
		},
	}

	svc := newConnService(connRepo, &fakeUserRepo{}, &fakeChatRepo{}, nil)
	_, err := svc.Reject(testCtx(2, "u-2"), &dto.HandleConnectionRequest{ConnectionID: 404})

	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodeConnectionNotFound), err.Error())
}

func TestConnectionPending(t *testing.T) {
	connRepo := &fakeConnRepo{
		getPendingListFn: func(ctx context.Context, to int64, page, pageSize int) ([]*model.Connection, int64, error) {
			assert.Equal(t, int64(2), to)
			return []*model.Connection{
				{Id: 1, FromTelegramId: 10, ToTelegramId: 2, CreatedAt: time.Now()},
				{Id: 2, FromTelegramId: 11, ToTelegramId: 2, CreatedAt: time.Now()},
			}, 2, nil
		},
	}
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id, DisplayName: "user"}, nil
		},
	}

	svc := newConnService(connRepo, userRepo, &fakeChatRepo{}, nil)
	resp, err := svc.Pending(testCtx(2, "u-2"), &dto.PendingConnectionsRequest{})

	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, int64(2), resp.Pagination.Total)
	assert.NotNil(t, resp.Items[0].FromProfile)
}
