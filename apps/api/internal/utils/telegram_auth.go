package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrTelegramHashMismatch 签名不匹配
	ErrTelegramHashMismatch = errors.New("telegram auth: hash mismatch")
	// ErrTelegramAuthExpired 登录数据过期
	ErrTelegramAuthExpired = errors.New("telegram auth: data expired")
)

// telegramAuthMaxAge 登录数据最长可信窗口
const telegramAuthMaxAge = 24 * time.Hour

// VerifyTelegramAuth 校验 Telegram Login Widget 的登录数据。
// 算法（Telegram 官方规定）：
//  1. secret_key = SHA256(bot_token)
//  2. data_check_string = 除 hash 外所有字段按 key 升序拼接 "key=value"，换行分隔
//  3. HMAC-SHA256(data_check_string, secret_key) 的十六进制与 hash 比对
//
// fields 为登录回调里除 hash 以外的全部字段（含 auth_date）。
func VerifyTelegramAuth(botToken string, fields map[string]string, hash string, authDate int64) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	dataCheckString := strings.Join(pairs, "\n")

	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(dataCheckString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return ErrTelegramHashMismatch
	}

	// 重放窗口：过旧的登录数据拒绝
	if authDate > 0 && time.Since(time.Unix(authDate, 0)) > telegramAuthMaxAge {
		return ErrTelegramAuthExpired
	}

	return nil
}
