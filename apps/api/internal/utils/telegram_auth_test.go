package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// signFields 按官方算法给字段签名，测试用
func signFields(botToken string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyTelegramAuth_Valid(t *testing.T) {
	botToken := "123456:test-token"
	authDate := time.Now().Unix()
	fields := map[string]string{
		"id":         "42",
		"first_name": "Alice",
		"auth_date":  strconv.FormatInt(authDate, 10),
	}
	hash := signFields(botToken, fields)

	err := VerifyTelegramAuth(botToken, fields, hash, authDate)
	assert.NoError(t, err)
}

func TestVerifyTelegramAuth_TamperedField(t *testing.T) {
	botToken := "123456:test-token"
	authDate := time.Now().Unix()
	fields := map[string]string{
		"id":        "42",
		"auth_date": strconv.FormatInt(authDate, 10),
	}
	hash := signFields(botToken, fields)

	// 篡改字段后签名不再匹配
	fields["id"] = "43"
	err := VerifyTelegramAuth(botToken, fields, hash, authDate)
	assert.ErrorIs(t, err, ErrTelegramHashMismatch)
}

func TestVerifyTelegramAuth_WrongToken(t *testing.T) {
	authDate := time.Now().Unix()
	fields := map[string]string{
		"id":        "42",
		"auth_date": strconv.FormatInt(authDate, 10),
	}
	hash := signFields("123456:real-token", fields)

	err := VerifyTelegramAuth("123456:other-token", fields, hash, authDate)
	assert.ErrorIs(t, err, ErrTelegramHashMismatch)
}

func TestVerifyTelegramAuth_Expired(t *testing.T) {
	botToken := "123456:test-token"
	authDate := time.Now().Add(-48 * time.Hour).Unix()
	fields := map[string]string{
		"id":        "42",
		"auth_date": strconv.FormatInt(authDate, 10),
	}
	hash := signFields(botToken, fields)

	err := VerifyTelegramAuth(botToken, fields, hash, authDate)
	assert.ErrorIs(t, err, ErrTelegramAuthExpired)
}

func TestVerifyTelegramAuth_HashFieldIgnored(t *testing.T) {
	botToken := "123456:test-token"
	authDate := time.Now().Unix()
	fields := map[string]string{
		"id":        "42",
		"auth_date": strconv.FormatInt(authDate, 10),
	}
	hash := signFields(botToken, fields)

	// 传入的 map 里带 hash 字段也不影响校验
	fieldsWithHash := map[string]string{
		"id":        fields["id"],
		"auth_date": fields["auth_date"],
		"hash":      hash,
	}
	err := VerifyTelegramAuth(botToken, fieldsWithHash, hash, authDate)
	assert.NoError(t, err)
}
