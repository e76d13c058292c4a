package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/service"
	"MeetServer/consts"
	"MeetServer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConnectionHTTPService struct {
	createFn  func(context.Context, *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error)
	acceptFn  func(context.Context, *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error)
	rejectFn  func(context.Context, *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error)
	pendingFn func(context.Context, *dto.PendingConnectionsRequest) (*dto.PendingConnectionsResponse, error)
}

func (f *fakeConnectionHTTPService) Create(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error) {
	if f.createFn == nil {
		return &dto.CreateConnectionResponse{Outcome: dto.ConnectionOutcomeCreated}, nil
	}
	return f.createFn(ctx, req)
}

func (f *fakeConnectionHTTPService) Accept(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error) {
	if f.acceptFn == nil {
		return &dto.HandleConnectionResponse{}, nil
	}
	return f.acceptFn(ctx, req)
}

func (f *fakeConnectionHTTPService) Reject(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error) {
	if f.rejectFn == nil {
		return &dto.HandleConnectionResponse{}, nil
	}
	return f.rejectFn(ctx, req)
}

func (f *fakeConnectionHTTPService) Pending(ctx context.Context, req *dto.PendingConnectionsRequest) (*dto.PendingConnectionsResponse, error) {
	if f.pendingFn == nil {
		return &dto.PendingConnectionsResponse{}, nil
	}
	return f.pendingFn(ctx, req)
}

func (f *fakeConnectionHTTPService) SetNotifier(service.Notifier) {}

type resultBody struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

var connectionHandlerTestOnce sync.Once

func initConnectionHandlerTest() {
	connectionHandlerTestOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		gin.SetMode(gin.TestMode)
	})
}

// bizTestError 构造 Service 层风格的业务错误
func bizTestError(code int) error {
	return errors.New(strconv.Itoa(code))
}

func decodeResultBody(t *testing.T, w *httptest.ResponseRecorder) resultBody {
	t.Helper()
	var body resultBody
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	return body
}

func newConnectionTestRouter(svc *fakeConnectionHTTPService) *gin.Engine {
	h := NewConnectionHandler(svc)
	r := gin.New()
	r.POST("/connection", h.Create)
	r.GET("/connection/pending", h.Pending)
	r.POST("/connection/:connectionId/accept", h.Accept)
	r.POST("/connection/:connectionId/reject", h.Reject)
	return r
}

func TestConnectionHandlerCreate(t *testing.T) {
	initConnectionHandlerTest()

	tests := []struct {
		name     string
		body     string
		svc      *fakeConnectionHTTPService
		wantCode int
	}{
		{
			name:     "bind_json_failed",
			body:     "{",
			svc:      &fakeConnectionHTTPService{},
			wantCode: consts.CodeParamError,
		},
		{
			name:     "missing_target",
			body:     `{}`,
			svc:      &fakeConnectionHTTPService{},
			wantCode: consts.CodeParamError,
		},
		{
			name: "business_error_passthrough",
			body: `{"toTelegramId": 2}`,
			svc: &fakeConnectionHTTPService{
				createFn: func(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error) {
					return nil, bizTestError(consts.CodeSelfConnection)
				},
			},
			wantCode: consts.CodeSelfConnection,
		},
		{
			name: "internal_error_masked",
			body: `{"toTelegramId": 2}`,
			svc: &fakeConnectionHTTPService{
				createFn: func(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error) {
					return nil, bizTestError(consts.CodeInternalError)
				},
			},
			wantCode: consts.CodeInternalError,
		},
		{
			name: "success",
			body: `{"toTelegramId": 2}`,
			svc: &fakeConnectionHTTPService{
				createFn: func(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error) {
					assert.Equal(t, int64(2), req.ToTelegramID)
					return &dto.CreateConnectionResponse{Outcome: dto.ConnectionOutcomeCreated, ConnectionID: 7}, nil
				},
			},
			wantCode: consts.CodeSuccess,
		},
		{
			name: "already_exists_maps_to_business_code",
			body: `{"toTelegramId": 2}`,
			svc: &fakeConnectionHTTPService{
				createFn: func(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error) {
					return &dto.CreateConnectionResponse{Outcome: dto.ConnectionOutcomeAlreadyExists, ConnectionID: 7}, nil
				},
			},
			wantCode: consts.CodeConnectionExists,
		},
		{
			name: "cooldown_maps_to_business_code",
			body: `{"toTelegramId": 2}`,
			svc: &fakeConnectionHTTPService{
				createFn: func(ctx context.Context, req *dto.CreateConnectionRequest) (*dto.CreateConnectionResponse, error) {
					return &dto.CreateConnectionResponse{Outcome: dto.ConnectionOutcomeCooldown, CooldownLeft: 30}, nil
				},
			},
			wantCode: consts.CodeConnectionCooldown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newConnectionTestRouter(tt.svc)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/connection", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			body := decodeResultBody(t, w)
			assert.Equal(t, tt.wantCode, body.Code)
			if tt.wantCode == consts.CodeConnectionExists {
				// 失败包里仍要带原请求 id
				var resp dto.CreateConnectionResponse
				require.NoError(t, json.Unmarshal(body.Data, &resp))
				assert.Equal(t, int64(7), resp.ConnectionID)
			}
		})
	}
}

func TestConnectionHandlerAccept(t *testing.T) {
	initConnectionHandlerTest()

	t.Run("invalid_id", func(t *testing.T) {
		r := newConnectionTestRouter(&fakeConnectionHTTPService{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connection/abc/accept", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, consts.CodeParamError, decodeResultBody(t, w).Code)
	})

	t.Run("id_forwarded", func(t *testing.T) {
		var gotID int64
		svc := &fakeConnectionHTTPService{
			acceptFn: func(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error) {
				gotID = req.ConnectionID
				return &dto.HandleConnectionResponse{ChatSessionID: 55}, nil
			},
		}
		r := newConnectionTestRouter(svc)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connection/412398/accept", nil)
		r.ServeHTTP(w, req)

		body := decodeResultBody(t, w)
		assert.Equal(t, consts.CodeSuccess, body.Code)
		assert.Equal(t, int64(412398), gotID)
	})

	t.Run("not_found_passthrough", func(t *testing.T) {
		svc := &fakeConnectionHTTPService{
			acceptFn: func(ctx context.Context, req *dto.HandleConnectionRequest) (*dto.HandleConnectionResponse, error) {
				return nil, bizTestError(consts.CodeConnectionNotFound)
			},
		}
		r := newConnectionTestRouter(svc)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connection/1/accept", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, consts.CodeConnectionNotFound, decodeResultBody(t, w).Code)
	})
}

func TestConnectionHandlerPending(t *testing.T) {
	initConnectionHandlerTest()

	svc := &fakeConnectionHTTPService{
		pendingFn: func(ctx context.Context, req *dto.PendingConnectionsRequest) (*dto.PendingConnectionsResponse, error) {
			assert.Equal(t, 2, req.Page)
			return &dto.PendingConnectionsResponse{
				Items:      []*dto.ConnectionInfo{},
				Pagination: &dto.PaginationInfo{Page: 2, PageSize: 20},
			}, nil
		},
	}
	r := newConnectionTestRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/connection/pending?page=2", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, consts.CodeSuccess, decodeResultBody(t, w).Code)
}
