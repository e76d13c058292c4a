package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"MeetServer/apps/api/internal/service"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 客户端来自 Telegram WebApp 和 Web 端，来源校验放开，
	// 身份靠 token 参数保证。
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Handler 负责 /ws 接入请求。
// 握手阶段完成 Token 校验和可选的会话成员校验，
// 升级后的连接交给 Manager 维护，下行推送由聊天服务触发。
type Handler struct {
	manager     *Manager
	chatService service.ChatService
}

// NewHandler 创建 WebSocket 入口处理器。
func NewHandler(manager *Manager, chatService service.ChatService) *Handler {
	return &Handler{
		manager:     manager,
		chatService: chatService,
	}
}

// ServeWS 处理 WebSocket 握手与接入。
// query 参数：token 必传；chatSessionId 可选，传了就校验成员身份。
func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未提供认证信息"})
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "Token 无效或已过期"})
		return
	}
	if claims.UserUUID == "" {
		c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "请先完成资料注册"})
		return
	}

	// 带会话参数时校验成员身份，拦住拿别人会话 ID 偷听的请求
	if raw := c.Query("chatSessionId"); raw != "" {
		sessionID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || sessionID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "会话参数错误"})
			return
		}
		allowed, accessErr := h.chatService.CanAccess(c.Request.Context(), sessionID, claims.TelegramID)
		if accessErr != nil {
			logger.Error(c, "会话成员校验失败", logger.ErrorField("error", accessErr))
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "服务器内部错误"})
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "不是会话成员"})
			return
		}
	}

	connCtx := context.WithValue(context.Background(), "telegram_id", claims.TelegramID)
	if traceID := c.GetString("trace_id"); traceID != "" {
		connCtx = context.WithValue(connCtx, "trace_id", traceID)
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(connCtx, "WebSocket 升级失败",
			logger.ErrorField("error", err),
		)
		return
	}

	h.handleConnection(connCtx, conn, claims.TelegramID)
}

// handleConnection 承载单个连接的完整生命周期。
// 同用户重复连接时，用新连接替换旧连接。
func (h *Handler) handleConnection(ctx context.Context, conn *websocket.Conn, telegramID int64) {
	client := NewClient(conn, telegramID)
	replaced := h.manager.Register(client)
	if replaced != nil {
		replaced.Close()
	}

	logger.Info(ctx, "WebSocket 连接已建立",
		logger.Int64("telegram_id", telegramID),
		logger.Int("online_count", h.manager.Count()),
	)

	client.Run(ctx, func(raw []byte) {
		h.handleMessage(ctx, client, raw)
	}, func() {
		h.manager.Unregister(client)
		logger.Info(ctx, "WebSocket 连接已断开",
			logger.Int64("telegram_id", telegramID),
			logger.Int("online_count", h.manager.Count()),
		)
	})
}

// handleMessage 处理客户端上行帧。
// 消息发送走 REST 接口，这里只支持心跳。
func (h *Handler) handleMessage(ctx context.Context, client *Client, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		frame, _ := json.Marshal(Envelope{Type: "error", Data: "invalid frame format"})
		client.Enqueue(frame)
		return
	}

	switch envelope.Type {
	case "heartbeat":
		frame, err := json.Marshal(Envelope{Type: "heartbeat_ack"})
		if err != nil {
			logger.Warn(ctx, "心跳应答序列化失败", logger.ErrorField("error", err))
			return
		}
		client.Enqueue(frame)
	default:
		frame, _ := json.Marshal(Envelope{Type: "error", Data: "unsupported frame type"})
		client.Enqueue(frame)
	}
}
