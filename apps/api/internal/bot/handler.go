package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"MeetServer/apps/api/internal/dto"
	"MeetServer/apps/api/internal/service"
	"MeetServer/apps/api/internal/utils"
	"MeetServer/config"
	"MeetServer/consts"
	"MeetServer/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	// photoDownloadTimeout 从 Telegram 拉取照片的超时
	photoDownloadTimeout = 30 * time.Second
	// photoMaxBytes 照片大小上限
	photoMaxBytes = 10 * 1024 * 1024
	// convSweepInterval 闲置会话清理周期
	convSweepInterval = 5 * time.Minute
)

// Bot Telegram 机器人
// 承担两件事：/start 注册向导（状态机收集资料后调用 UserService），
// 以及连接请求的推送和 inline 按钮处理（实现 service.Notifier）。
type Bot struct {
	tg    *tgbot.Bot
	token string
	cfg   config.TelegramConfig

	userService       service.UserService
	connectionService service.ConnectionService

	convs *conversationStore
}

// New 创建机器人实例
func New(cfg config.TelegramConfig, userService service.UserService, connectionService service.ConnectionService) (*Bot, error) {
	b := &Bot{
		token:             cfg.BotToken,
		cfg:               cfg,
		userService:       userService,
		connectionService: connectionService,
		convs:             newConversationStore(),
	}

	tg, err := tgbot.New(cfg.BotToken, tgbot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("创建 Telegram 机器人失败: %w", err)
	}
	b.tg = tg

	tg.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, b.handleStart)

	return b, nil
}

// Run 启动机器人，阻塞到 ctx 取消
func (b *Bot) Run(ctx context.Context) {
	// 闲置注册会话清理
	go func() {
		ticker := time.NewTicker(convSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := b.convs.SweepIdle(b.cfg.ConversationTTL); removed > 0 {
					logger.Info(ctx, "清理闲置注册会话", logger.Int("removed", removed))
				}
			}
		}
	}()

	b.tg.Start(ctx)
}

// botContext 构造带用户身份的 context，Service 层从里面取 telegram_id
func botContext(ctx context.Context, telegramID int64) context.Context {
	return context.WithValue(ctx, "telegram_id", telegramID)
}

// sendText 给用户发一条纯文本消息
func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := b.tg.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		logger.Warn(ctx, "发送 Telegram 消息失败",
			logger.Int64("chat_id", chatID),
			logger.ErrorField("error", err),
		)
	}
}

// handleStart /start 命令：开启或重置注册向导
func (b *Bot) handleStart(ctx context.Context, tg *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	// 已注册用户不再走向导
	if _, err := b.userService.GetMe(botContext(ctx, userID)); err == nil {
		b.sendText(ctx, chatID, "你已经注册过了，打开应用就能看看附近有谁。")
		return
	}

	b.convs.Begin(userID)
	b.sendText(ctx, chatID, "欢迎！来创建你的资料吧。\n\n先告诉我你的昵称？")
}

// handleUpdate 默认处理器：注册向导步骤和 inline 按钮回调
func (b *Bot) handleUpdate(ctx context.Context, tg *tgbot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	conv := b.convs.Get(userID)
	if conv == nil {
		// 没有进行中的会话，提示入口
		b.sendText(ctx, update.Message.Chat.ID, "发送 /start 开始注册。")
		return
	}

	// 同一用户的更新逐条推进，跨用户互不阻塞
	conv.mu.Lock()
	defer conv.mu.Unlock()
	b.advanceConversation(ctx, conv, update.Message)
}

// advanceConversation 推进注册状态机一步，调用方负责持有 conv.mu
func (b *Bot) advanceConversation(ctx context.Context, conv *conversation, msg *models.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch conv.State {
	case stateAwaitName:
		if text == "" {
			b.sendText(ctx, chatID, "昵称不能为空，再发一次？")
			return
		}
		conv.DisplayName = text
		conv.State = stateAwaitAge
		b.sendText(ctx, chatID, "多大了？（发一个数字）")

	case stateAwaitAge:
		age, err := strconv.Atoi(text)
		if err != nil {
			b.sendText(ctx, chatID, "年龄要是个数字，再发一次？")
			return
		}
		conv.Age = age
		conv.State = stateAwaitPhoto
		b.sendText(ctx, chatID, "来一张你的照片当头像。")

	case stateAwaitPhoto:
		if len(msg.Photo) == 0 {
			b.sendText(ctx, chatID, "需要发一张照片（不是文件）。")
			return
		}
		// 取最大尺寸的那张
		photo := msg.Photo[len(msg.Photo)-1]
		data, err := b.downloadPhoto(ctx, photo.FileID)
		if err != nil {
			logger.Warn(ctx, "下载注册照片失败",
				logger.Int64("telegram_id", userID),
				logger.ErrorField("error", err),
			)
			b.sendText(ctx, chatID, "照片没收到，再发一次试试？")
			return
		}
		conv.PhotoData = data
		conv.PhotoName = fmt.Sprintf("tg-%d.jpg", userID)
		conv.State = stateAwaitLocation
		b.sendText(ctx, chatID, "分享你的位置就能发现附近的人（发送定位，或回复 /skip 跳过）。")

	case stateAwaitLocation:
		if msg.Location != nil {
			lat, lng := msg.Location.Latitude, msg.Location.Longitude
			conv.Latitude = &lat
			conv.Longitude = &lng
			conv.Consent = true
		} else if text != "/skip" {
			b.sendText(ctx, chatID, "发送定位，或回复 /skip 跳过。")
			return
		}
		conv.State = stateAwaitBio
		b.sendText(ctx, chatID, "最后，用一两句话介绍下自己（或回复 /skip 跳过）。")

	case stateAwaitBio:
		if text != "/skip" {
			conv.Bio = text
		}
		b.finishRegistration(ctx, conv, userID, chatID)
		return

	default:
		b.convs.End(userID)
		b.sendText(ctx, chatID, "发送 /start 重新开始。")
		return
	}

	b.convs.Touch(userID)
}

// finishRegistration 收集完资料后调用注册服务
func (b *Bot) finishRegistration(ctx context.Context, conv *conversation, userID, chatID int64) {
	req := &dto.RegisterRequest{
		DisplayName: conv.DisplayName,
		Age:         conv.Age,
		Bio:         conv.Bio,
		Latitude:    conv.Latitude,
		Longitude:   conv.Longitude,
		Consent:     conv.Consent,
	}
	avatar := &service.UploadFile{
		Reader:   bytes.NewReader(conv.PhotoData),
		Size:     int64(len(conv.PhotoData)),
		FileName: conv.PhotoName,
	}

	_, err := b.userService.Register(botContext(ctx, userID), req, avatar)
	if err != nil {
		code := utils.ExtractErrorCode(err)
		if code == consts.CodeParamError {
			// 字段不合规（多半是年龄越界），从头再来
			b.convs.Begin(userID)
			b.sendText(ctx, chatID, "资料没通过校验（检查下昵称长度和年龄），我们重新来一遍。先发昵称？")
			return
		}
		logger.Error(ctx, "机器人注册失败",
			logger.Int64("telegram_id", userID),
			logger.ErrorField("error", err),
		)
		b.sendText(ctx, chatID, "注册出了点问题，稍后再试试。")
		return
	}

	b.convs.End(userID)
	b.sendText(ctx, chatID, "搞定！资料建好了，打开应用看看附近有谁吧。")
}

// downloadPhoto 通过 Bot API 拉取照片内容
func (b *Bot) downloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	dlCtx, cancel := context.WithTimeout(ctx, photoDownloadTimeout)
	defer cancel()

	fileObj, err := b.tg.GetFile(dlCtx, &tgbot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("获取文件信息失败: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, fmt.Errorf("Telegram 返回了空文件路径")
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.token, fileObj.FilePath)
	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载文件失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载文件返回状态码 %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, photoMaxBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("文件内容为空")
	}
	return data, nil
}

// handleCallback 处理连接请求通知里的 accept/reject 按钮
func (b *Bot) handleCallback(ctx context.Context, cq *models.CallbackQuery) {
	userID := cq.From.ID

	action, connID, ok := parseConnectionCallback(cq.Data)
	if !ok {
		b.answerCallback(ctx, cq.ID, "无法识别的操作")
		return
	}

	svcCtx := botContext(ctx, userID)
	req := &dto.HandleConnectionRequest{ConnectionID: connID}

	var err error
	var reply string
	switch action {
	case "accept":
		var resp *dto.HandleConnectionResponse
		resp, err = b.connectionService.Accept(svcCtx, req)
		if err == nil {
			if resp.AlreadyProcessed {
				reply = "这条请求已经处理过了"
			} else {
				reply = "已接受，现在可以开始聊天了"
			}
		}
	case "reject":
		var resp *dto.HandleConnectionResponse
		resp, err = b.connectionService.Reject(svcCtx, req)
		if err == nil {
			if resp.AlreadyProcessed {
				reply = "这条请求已经处理过了"
			} else {
				reply = "已拒绝"
			}
		}
	}

	if err != nil {
		code := utils.ExtractErrorCode(err)
		switch code {
		case consts.CodeConnectionNotFound:
			reply = "这条请求不存在了"
		case consts.CodePermissionDeny:
			reply = "只有接收方能处理这条请求"
		default:
			logger.Error(ctx, "处理连接请求回调失败",
				logger.Int64("telegram_id", userID),
				logger.Int64("connection_id", connID),
				logger.ErrorField("error", err),
			)
			reply = "操作失败，稍后再试"
		}
	}

	b.answerCallback(ctx, cq.ID, reply)
}

// answerCallback 响应 inline 按钮点击（Telegram 要求必须应答，否则客户端一直转圈）
func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	_, err := b.tg.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		logger.Warn(ctx, "应答回调失败", logger.ErrorField("error", err))
	}
}

// parseConnectionCallback 解析按钮回调数据 accept:{id} / reject:{id}
func parseConnectionCallback(data string) (action string, connID int64, ok bool) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	if parts[0] != "accept" && parts[0] != "reject" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return parts[0], id, true
}
