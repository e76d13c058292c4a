package converter

import (
	"fmt"
	"math"
	"time"

	"MeetServer/apps/api/internal/dto"
	"MeetServer/model"
)

// ==================== UserProfile 转换函数 ====================

// ModelToProfileInfo 将 UserProfile Model 转换为 DTO
// 注意：坐标不下发，只暴露"是否有位置"；telegram_id 是双方互发消息的寻址键，保留。
func ModelToProfileInfo(user *model.UserProfile, photos []*model.ProfilePhoto) *dto.ProfileInfo {
	if user == nil {
		return nil
	}

	bio := ""
	if user.Bio != nil {
		bio = *user.Bio
	}

	return &dto.ProfileInfo{
		UUID:            user.Uuid,
		TelegramID:      user.TelegramId,
		DisplayName:     user.DisplayName,
		Age:             user.Age,
		Bio:             bio,
		Interests:       emptyIfNil(user.Interests),
		LookingFor:      emptyIfNil(user.LookingFor),
		Languages:       emptyIfNil(user.Languages),
		AvatarURL:       user.AvatarUrl,
		Photos:          ModelListToPhotoInfoList(photos),
		HasLocation:     user.HasLocation(),
		LocationConsent: user.LocationConsent,
		ProfileComplete: user.ProfileComplete,
		LastActiveLabel: LastActiveLabel(user.LastActiveAt, time.Now()),
	}
}

// ModelListToPhotoInfoList 批量转换资料照片
func ModelListToPhotoInfoList(photos []*model.ProfilePhoto) []*dto.PhotoInfo {
	result := make([]*dto.PhotoInfo, 0, len(photos))
	for _, p := range photos {
		if p == nil {
			continue
		}
		result = append(result, &dto.PhotoInfo{
			SlotIndex: p.SlotIndex,
			URL:       p.Url,
		})
	}
	return result
}

// ModelToNearbyUserInfo 将附近用户查询结果转换为 DTO
// 距离取整到百米，模糊化避免三点定位。
func ModelToNearbyUserInfo(user *model.UserProfile, photos []*model.ProfilePhoto, distanceMeters float64) *dto.NearbyUserInfo {
	if user == nil {
		return nil
	}
	rounded := int(math.Round(distanceMeters/100) * 100)
	return &dto.NearbyUserInfo{
		Profile:        ModelToProfileInfo(user, photos),
		DistanceMeters: rounded,
	}
}

// ==================== Connection 转换函数 ====================

// ModelToConnectionInfo 将 Connection Model 转换为 DTO
func ModelToConnectionInfo(conn *model.Connection, fromProfile *dto.ProfileInfo) *dto.ConnectionInfo {
	if conn == nil {
		return nil
	}
	return &dto.ConnectionInfo{
		ID:          conn.Id,
		FromProfile: fromProfile,
		Status:      conn.Status,
		CreatedAt:   conn.CreatedAt.Unix(),
	}
}

// ==================== ChatMessage 转换函数 ====================

// ModelToMessageInfo 将 ChatMessage Model 转换为 DTO
func ModelToMessageInfo(msg *model.ChatMessage) *dto.MessageInfo {
	if msg == nil {
		return nil
	}
	return &dto.MessageInfo{
		ID:             msg.Id,
		ChatSessionID:  msg.ChatSessionId,
		FromTelegramID: msg.FromTelegramId,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt.Unix(),
	}
}

// ModelListToMessageInfoList 批量转换消息
func ModelListToMessageInfoList(msgs []*model.ChatMessage) []*dto.MessageInfo {
	result := make([]*dto.MessageInfo, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, ModelToMessageInfo(m))
	}
	return result
}

// ==================== 活跃时间标签 ====================

// LastActiveLabel 把最近活跃时间转成人类可读的模糊标签。
// 有意模糊化：精确的在线时间会被用来跟踪别人的作息。
// 分桶（按自然日差）：
//
//	<0        "In the future"（客户端时钟漂移兜底）
//	0         "Today"
//	1         "Yesterday"
//	2..6      "N days ago"
//	7..30     "N week(s) ago"
//	>30       "Long time ago"
func LastActiveLabel(lastActive, now time.Time) string {
	// 任何负的时间差都算"未来"，包括同一自然日内的时钟漂移
	if now.Before(lastActive) {
		return "In the future"
	}

	dayStart := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}

	days := int(dayStart(now).Sub(dayStart(lastActive)).Hours() / 24)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days <= 6:
		return fmt.Sprintf("%d days ago", days)
	case days <= 30:
		weeks := days / 7
		if weeks < 1 {
			weeks = 1
		}
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		return "Long time ago"
	}
}

// emptyIfNil 前端拿到的集合统一为数组而非 null
func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
