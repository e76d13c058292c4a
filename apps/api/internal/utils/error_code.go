package utils

import (
	"strconv"

	"MeetServer/consts"
)

// ExtractErrorCode 从业务错误中提取错误码
// Service 层业务错误用 errors.New(strconv.Itoa(code)) 表达，
// 解析失败时归为内部错误。
func ExtractErrorCode(err error) int {
	if err == nil {
		return consts.CodeSuccess
	}
	code, convErr := strconv.Atoi(err.Error())
	if convErr != nil {
		return consts.CodeInternalError
	}
	return code
}
