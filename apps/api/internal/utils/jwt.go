package utils

import (
	"errors"
	"time"

	"MeetServer/config"

	"github.com/golang-jwt/jwt/v5"
)

// jwtConfig 进程级 JWT 配置，启动时注入
var jwtConfig = config.DefaultJWTConfig()

// InitJWT 注入 JWT 配置（main 启动时调用一次）
func InitJWT(cfg config.JWTConfig) {
	jwtConfig = cfg
}

// Claims JWT 负载
// 双轨身份都放进去：telegram_id 用于连接/附近等业务主键，
// user_uuid 用于照片等以内部 uuid 寻址的资源。
type Claims struct {
	TelegramID int64  `json:"telegram_id"`
	UserUUID   string `json:"user_uuid"`
	jwt.RegisteredClaims
}

// GenerateToken 签发 Token
func GenerateToken(telegramID int64, userUUID string) (string, error) {
	now := time.Now()
	claims := Claims{
		TelegramID: telegramID,
		UserUUID:   userUUID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtConfig.Expire)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.Secret))
}

// ParseToken 解析并验证 Token
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
