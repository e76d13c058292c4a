package bot

import (
	"context"
	"fmt"

	"MeetServer/model"
	"MeetServer/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Bot 同时实现 service.Notifier：连接请求相关事件推送给接收方。
// 推送失败只记日志，用户打开应用还是能在待处理列表里看到。

// NotifyConnectionRequest 有人打招呼时推送给接收方，带接受/拒绝按钮
func (b *Bot) NotifyConnectionRequest(ctx context.Context, to int64, from *model.UserProfile, connID int64) {
	text := fmt.Sprintf("%s（%d 岁）向你打了个招呼！", from.DisplayName, from.Age)
	if from.Bio != nil && *from.Bio != "" {
		text += "\n\n" + *from.Bio
	}

	markup := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "接受", CallbackData: fmt.Sprintf("accept:%d", connID)},
				{Text: "拒绝", CallbackData: fmt.Sprintf("reject:%d", connID)},
			},
		},
	}

	_, err := b.tg.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      to,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		logger.Warn(ctx, "推送连接请求通知失败",
			logger.Int64("to", to),
			logger.Int64("connection_id", connID),
			logger.ErrorField("error", err),
		)
	}
}

// NotifyConnectionAccepted 请求被接受时通知发起方
func (b *Bot) NotifyConnectionAccepted(ctx context.Context, to int64, by *model.UserProfile) {
	text := fmt.Sprintf("%s 接受了你的招呼，去开始聊天吧！", by.DisplayName)

	_, err := b.tg.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: to,
		Text:   text,
	})
	if err != nil {
		logger.Warn(ctx, "推送接受通知失败",
			logger.Int64("to", to),
			logger.ErrorField("error", err),
		)
	}
}
