package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"

	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/repository"
	"MeetServer/apps/api/internal/storage"
	"MeetServer/config"
	"MeetServer/consts"
	"MeetServer/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(userRepo *fakeUserRepo, blobStore BlobStorage) UserService {
	initServiceTestEnv()
	return NewUserService(userRepo, blobStore, config.DefaultValidationConfig())
}

func testAvatar() *UploadFile {
	return &UploadFile{
		Reader:   strings.NewReader("fake-image-bytes"),
		Size:     16,
		FileName: "avatar.jpg",
	}
}

func okBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		uploadFn: func(ctx context.Context, reader io.Reader, size int64, fileName, prefix string) (*storage.UploadedBlob, error) {
			return &storage.UploadedBlob{
				ObjectName: prefix + "obj-" + fileName,
				URL:        "http://minio.local/" + prefix + fileName,
				Size:       size,
			}, nil
		},
	}
}

func TestRegister_NewUser(t *testing.T) {
	var created *model.UserProfile
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, u *model.UserProfile) (*model.UserProfile, error) {
			created = u
			return u, nil
		},
	}
	blobStore := okBlobStore()

	svc := newUserService(userRepo, blobStore)
	resp, err := svc.Register(testCtx(1, ""), &dto.RegisterRequest{
		DisplayName: "Alice",
		Age:         25,
		Interests:   []string{"music"},
	}, testAvatar())

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.Uuid)
	assert.True(t, created.ProfileComplete)
	assert.Equal(t, "avatar/obj-avatar.jpg", created.AvatarBlobId)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Alice", resp.Profile.DisplayName)
	// 坐标不下发
	assert.False(t, resp.Profile.HasLocation)
}

func TestRegister_AvatarRequired(t *testing.T) {
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return nil, nil
		},
	}

	svc := newUserService(userRepo, &fakeBlobStore{})
	_, err := svc.Register(testCtx(1, ""), &dto.RegisterRequest{DisplayName: "Alice", Age: 25}, nil)

	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodeAvatarRequired), err.Error())
}

func TestRegister_ValidationBounds(t *testing.T) {
	svc := newUserService(&fakeUserRepo{}, &fakeBlobStore{})
	cfg := config.DefaultValidationConfig()

	cases := []struct {
		name string
		req  *dto.RegisterRequest
	}{
		{"昵称为空", &dto.RegisterRequest{DisplayName: "", Age: 25}},
		{"昵称超长", &dto.RegisterRequest{DisplayName: strings.Repeat("名", cfg.DisplayNameMaxLen+1), Age: 25}},
		{"年龄过小", &dto.RegisterRequest{DisplayName: "Alice", Age: cfg.AgeMin - 1}},
		{"年龄过大", &dto.RegisterRequest{DisplayName: "Alice", Age: cfg.AgeMax + 1}},
		{"简介超长", &dto.RegisterRequest{DisplayName: "Alice", Age: 25, Bio: strings.Repeat("字", cfg.BioMaxLen+1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(testCtx(1, ""), tc.req, testAvatar())
			require.Error(t, err)
			assert.Equal(t, strconv.Itoa(consts.CodeParamError), err.Error())
		})
	}
}

func TestRegister_BoundaryAgeAccepted(t *testing.T) {
	cfg := config.DefaultValidationConfig()
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, u *model.UserProfile) (*model.UserProfile, error) {
			return u, nil
		},
	}

	svc := newUserService(userRepo, okBlobStore())
	_, err := svc.Register(testCtx(1, ""), &dto.RegisterRequest{DisplayName: "Alice", Age: cfg.AgeMin}, testAvatar())
	require.NoError(t, err)
	_, err = svc.Register(testCtx(2, ""), &dto.RegisterRequest{DisplayName: "Bob", Age: cfg.AgeMax}, testAvatar())
	require.NoError(t, err)
}

func TestRegister_CreateFailReclaimsBlob(t *testing.T) {
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, u *model.UserProfile) (*model.UserProfile, error) {
			return nil, repository.ErrDuplicateKey
		},
	}
	blobStore := okBlobStore()

	svc := newUserService(userRepo, blobStore)
	_, err := svc.Register(testCtx(1, ""), &dto.RegisterRequest{DisplayName: "Alice", Age: 25}, testAvatar())

	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodeUserAlreadyExist), err.Error())
	// 入库失败要回收刚上传的头像
	require.Len(t, blobStore.deleteCalls, 1)
	assert.Equal(t, "avatar/obj-avatar.jpg", blobStore.deleteCalls[0])
}

func TestRegister_ExistingUserUpdates(t *testing.T) {
	existing := &model.UserProfile{
		Uuid:         "u-1",
		TelegramId:   1,
		DisplayName:  "OldName",
		Age:          30,
		AvatarBlobId: "avatar/old",
	}
	var updated bool
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, u *model.UserProfile) error {
			updated = true
			return nil
		},
	}
	blobStore := okBlobStore()

	svc := newUserService(userRepo, blobStore)
	resp, err := svc.Register(testCtx(1, "u-1"), &dto.RegisterRequest{DisplayName: "NewName", Age: 26}, testAvatar())

	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "NewName", resp.Profile.DisplayName)
	// 库写成功后删旧头像
	require.Len(t, blobStore.deleteCalls, 1)
	assert.Equal(t, "avatar/old", blobStore.deleteCalls[0])
}

func TestNearby_RequiresLocation(t *testing.T) {
	lat, lng := 55.75, 37.62

	cases := []struct {
		name string
		user *model.UserProfile
	}{
		{"无坐标", &model.UserProfile{TelegramId: 1, LocationConsent: true}},
		{"未同意共享", &model.UserProfile{TelegramId: 1, Latitude: &lat, Longitude: &lng}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userRepo := &fakeUserRepo{
				getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
					return tc.user, nil
				},
			}
			svc := newUserService(userRepo, &fakeBlobStore{})
			_, err := svc.Nearby(testCtx(1, "u-1"), &dto.NearbyRequest{})
			require.Error(t, err)
			assert.Equal(t, strconv.Itoa(consts.CodeLocationMissing), err.Error())
		})
	}
}

func TestNearby_Defaults(t *testing.T) {
	lat, lng := 55.75, 37.62
	me := &model.UserProfile{TelegramId: 1, Latitude: &lat, Longitude: &lng, LocationConsent: true}

	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return me, nil
		},
		findNearbyFn: func(ctx context.Context, id int64, qLat, qLng, radius float64, limit int) ([]*repository.NearbyUser, error) {
			assert.Equal(t, lat, qLat)
			assert.Equal(t, lng, qLng)
			assert.Equal(t, float64(5000), radius)
			assert.Equal(t, 20, limit)
			return []*repository.NearbyUser{
				{
					UserProfile:    model.UserProfile{Uuid: "u-2", TelegramId: 2, DisplayName: "Bob"},
					DistanceMeters: 1449,
				},
			}, nil
		},
	}

	svc := newUserService(userRepo, &fakeBlobStore{})
	resp, err := svc.Nearby(testCtx(1, "u-1"), &dto.NearbyRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "Bob", resp.Users[0].Profile.DisplayName)
	// 距离按 100m 取整
	assert.Equal(t, 1400, resp.Users[0].DistanceMeters)
}

func TestNearby_CallerSuppliedOrigin(t *testing.T) {
	// 请求自带原点时不回查存储位置，无存储位置的用户也能查
	qLat, qLng := 59.93, 30.31

	userRepo := &fakeUserRepo{
		findNearbyFn: func(ctx context.Context, id int64, lat, lng, radius float64, limit int) ([]*repository.NearbyUser, error) {
			assert.Equal(t, qLat, lat)
			assert.Equal(t, qLng, lng)
			return []*repository.NearbyUser{}, nil
		},
	}

	svc := newUserService(userRepo, &fakeBlobStore{})
	resp, err := svc.Nearby(testCtx(1, "u-1"), &dto.NearbyRequest{
		Latitude:  &qLat,
		Longitude: &qLng,
	})

	require.NoError(t, err)
	assert.Empty(t, resp.Users)
}

func TestUpdateProfile_SlotBounds(t *testing.T) {
	user := &model.UserProfile{Uuid: "u-1", TelegramId: 1, DisplayName: "Alice", Age: 25}
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return user, nil
		},
	}

	svc := newUserService(userRepo, &fakeBlobStore{})
	maxSlot := int8(config.DefaultValidationConfig().MaxProfilePhotos)

	// 槽位越界的新照片
	_, err := svc.UpdateProfile(testCtx(1, "u-1"), &dto.UpdateProfileRequest{}, nil,
		map[int8]*UploadFile{maxSlot: testAvatar()})
	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodePhotoSlotInvalid), err.Error())

	// 保留集中的越界槽位
	_, err = svc.UpdateProfile(testCtx(1, "u-1"), &dto.UpdateProfileRequest{RetainPhotoSlots: []int8{-1}}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodePhotoSlotInvalid), err.Error())
}

func TestUpdateProfile_PhotoLifecycle(t *testing.T) {
	user := &model.UserProfile{Uuid: "u-1", TelegramId: 1, DisplayName: "Alice", Age: 25}
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return user, nil
		},
		updateFn: func(ctx context.Context, u *model.UserProfile) error {
			return nil
		},
		deletePhotosNotInFn: func(ctx context.Context, uuid string, keep []int8) ([]*model.ProfilePhoto, error) {
			// 槽位 0 未保留，淘汰
			assert.ElementsMatch(t, []int8{1}, keep)
			return []*model.ProfilePhoto{{SlotIndex: 0, BlobId: "photo/stale"}}, nil
		},
		upsertPhotoFn: func(ctx context.Context, p *model.ProfilePhoto) (*model.ProfilePhoto, error) {
			assert.Equal(t, int8(1), p.SlotIndex)
			// 槽位 1 原有照片被覆盖
			return &model.ProfilePhoto{SlotIndex: 1, BlobId: "photo/replaced"}, nil
		},
		getPhotosFn: func(ctx context.Context, uuid string) ([]*model.ProfilePhoto, error) {
			return nil, nil
		},
	}
	blobStore := okBlobStore()

	svc := newUserService(userRepo, blobStore)
	_, err := svc.UpdateProfile(testCtx(1, "u-1"), &dto.UpdateProfileRequest{}, nil,
		map[int8]*UploadFile{1: {Reader: strings.NewReader("img"), Size: 3, FileName: "p1.jpg"}})

	require.NoError(t, err)
	// 淘汰的和被覆盖的对象都要删
	assert.ElementsMatch(t, []string{"photo/stale", "photo/replaced"}, blobStore.deleteCalls)
}

func TestUpdateLocation(t *testing.T) {
	var gotLat, gotLng float64
	var gotConsent bool
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return &model.UserProfile{TelegramId: id}, nil
		},
		updateLocationFn: func(ctx context.Context, id int64, lat, lng float64, consent bool) error {
			gotLat, gotLng, gotConsent = lat, lng, consent
			return nil
		},
	}

	svc := newUserService(userRepo, &fakeBlobStore{})
	err := svc.UpdateLocation(testCtx(1, "u-1"), &dto.UpdateLocationRequest{Latitude: 55.75, Longitude: 37.62, Consent: true})

	require.NoError(t, err)
	assert.Equal(t, 55.75, gotLat)
	assert.Equal(t, 37.62, gotLng)
	assert.True(t, gotConsent)
}

func TestGetMe_NotFound(t *testing.T) {
	userRepo := &fakeUserRepo{
		getByTelegramIDFn: func(ctx context.Context, id int64) (*model.UserProfile, error) {
			return nil, nil
		},
	}

	svc := newUserService(userRepo, &fakeBlobStore{})
	_, err := svc.GetMe(testCtx(1, "u-1"))

	require.Error(t, err)
	assert.Equal(t, strconv.Itoa(consts.CodeUserNotFound), err.Error())
}
