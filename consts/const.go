package consts

// 通用错误码
const (
	CodeSuccess = 0 // 成功
)

// 客户端错误 (1xxxx)
const (
	CodeParamError       = 10001 // 参数验证失败
	CodeBodyError        = 10002 // 请求体格式错误
	CodeResourceNotFound = 10003 // 资源不存在
	CodeMethodNotAllowed = 10004 // 请求方法不允许
	CodeTooManyRequests  = 10005 // 请求过于频繁
	CodeBodyTooLarge     = 10006 // 请求体过大
)

// 认证错误 (2xxxx)
const (
	CodeUnauthorized   = 20001 // 未认证
	CodeInvalidToken   = 20002 // Token 无效
	CodeTokenExpired   = 20003 // Token 已过期
	CodePermissionDeny = 20004 // 权限不足
	CodeTelegramAuth   = 20005 // Telegram 登录校验失败
)

// 用户模块错误 (11xxx)
const (
	CodeUserNotFound     = 11001 // 用户不存在
	CodeUserAlreadyExist = 11002 // 用户已注册
	CodeAvatarRequired   = 11003 // 缺少头像
	CodePhotoSlotInvalid = 11004 // 照片槽位越界
	CodeLocationMissing  = 11005 // 未共享位置
)

// 连接模块错误 (12xxx)
const (
	CodeConnectionExists   = 12001 // 连接请求已存在
	CodeConnectionCooldown = 12002 // 打招呼过于频繁
	CodeConnectionNotFound = 12003 // 连接请求不存在
	CodeSelfConnection     = 12004 // 不能向自己打招呼
)

// 聊天模块错误 (13xxx)
const (
	CodeChatSessionNotFound = 13001 // 会话不存在
	CodeNotSessionMember    = 13002 // 不是会话成员
	CodeMessageSendFail     = 13003 // 消息发送失败
)

// 存储模块错误 (15xxx)
const (
	CodeUploadFail      = 15001 // 文件上传失败
	CodeFileTypeInvalid = 15002 // 文件类型不支持
	CodeFileTooLarge    = 15003 // 文件过大
)

// 服务端错误 (3xxxx)
const (
	CodeInternalError      = 30001 // 服务器内部错误
	CodeServiceUnavailable = 30002 // 服务暂不可用
)

// 错误消息映射
var CodeMessage = map[int]string{
	CodeSuccess: "success",

	// 客户端错误
	CodeParamError:       "参数验证失败",
	CodeBodyError:        "请求体格式错误",
	CodeResourceNotFound: "资源不存在",
	CodeMethodNotAllowed: "请求方法不允许",
	CodeTooManyRequests:  "请求过于频繁",
	CodeBodyTooLarge:     "请求体过大",

	// 认证错误
	CodeUnauthorized:   "未认证",
	CodeInvalidToken:   "Token 无效",
	CodeTokenExpired:   "Token 已过期",
	CodePermissionDeny: "权限不足",
	CodeTelegramAuth:   "Telegram 登录校验失败",

	// 用户模块
	CodeUserNotFound:     "用户不存在",
	CodeUserAlreadyExist: "用户已注册",
	CodeAvatarRequired:   "缺少头像",
	CodePhotoSlotInvalid: "照片槽位越界",
	CodeLocationMissing:  "未共享位置",

	// 连接模块
	CodeConnectionExists:   "连接请求已存在",
	CodeConnectionCooldown: "打招呼过于频繁，请稍后再试",
	CodeConnectionNotFound: "连接请求不存在",
	CodeSelfConnection:     "不能向自己打招呼",

	// 聊天模块
	CodeChatSessionNotFound: "会话不存在",
	CodeNotSessionMember:    "不是会话成员",
	CodeMessageSendFail:     "消息发送失败",

	// 存储模块
	CodeUploadFail:      "文件上传失败",
	CodeFileTypeInvalid: "文件类型不支持",
	CodeFileTooLarge:    "文件过大",

	// 服务端错误
	CodeInternalError:      "服务器内部错误",
	CodeServiceUnavailable: "服务暂不可用",
}

// GetMessage 根据错误码获取错误消息
func GetMessage(code int) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}

// IsNonServerError 判断是否为业务错误（非 3xxxx 服务端段）
// 业务错误由客户端输入或业务状态导致，Handler 层不打 Error 日志。
func IsNonServerError(code int) bool {
	return code > 0 && code < 30000
}
