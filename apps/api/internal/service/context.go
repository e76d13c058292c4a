package service

import (
	"context"
	"errors"
	"strconv"

	"MeetServer/consts"
)

// currentTelegramID 从 context 中取当前登录用户的 Telegram ID
// 认证中间件负责注入，取不到视为未认证。
func currentTelegramID(ctx context.Context) (int64, error) {
	id, ok := ctx.Value("telegram_id").(int64)
	if !ok || id == 0 {
		return 0, errors.New(strconv.Itoa(consts.CodeUnauthorized))
	}
	return id, nil
}

// currentUserUUID 从 context 中取当前登录用户的内部 UUID
// 未注册用户的 Token 里 uuid 为空，返回空串不报错，由调用方决定语义。
func currentUserUUID(ctx context.Context) string {
	uuid, _ := ctx.Value("user_uuid").(string)
	return uuid
}

// bizError 构造业务错误（错误码作为 error 文本传递，Handler 层解码）
func bizError(code int) error {
	return errors.New(strconv.Itoa(code))
}
