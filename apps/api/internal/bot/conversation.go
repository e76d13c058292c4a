package bot

import (
	"sync"
	"time"
)

// 注册会话状态机
// /start 之后按 昵称 -> 年龄 -> 头像照片 -> 位置 -> 简介 的顺序收集，
// 位置和简介可跳过，头像不可跳过。
type convState int

const (
	stateNone convState = iota
	stateAwaitName
	stateAwaitAge
	stateAwaitPhoto
	stateAwaitLocation
	stateAwaitBio
)

// conversation 单个用户的注册会话
// 机器人对每条更新都开新 goroutine 分发，同一用户连发两条消息会并发
// 进入状态机，推进一步前必须持有 mu。
type conversation struct {
	mu sync.Mutex

	State convState

	DisplayName string
	Age         int
	PhotoData   []byte
	PhotoName   string
	Latitude    *float64
	Longitude   *float64
	Consent     bool
	Bio         string

	updatedAt time.Time
}

// conversationStore 注册会话表
// 会话只存在于内存里：机器人重启后用户重新 /start 即可，不值得持久化。
type conversationStore struct {
	mu    sync.Mutex
	convs map[int64]*conversation
}

func newConversationStore() *conversationStore {
	return &conversationStore{
		convs: make(map[int64]*conversation),
	}
}

// Get 取用户当前会话，没有则返回 nil
func (s *conversationStore) Get(telegramID int64) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convs[telegramID]
}

// Begin 开启新会话，旧会话（若有）直接丢弃
func (s *conversationStore) Begin(telegramID int64) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := &conversation{
		State:     stateAwaitName,
		updatedAt: time.Now(),
	}
	s.convs[telegramID] = conv
	return conv
}

// Touch 更新会话活跃时间，状态推进时调用
func (s *conversationStore) Touch(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.convs[telegramID]; ok {
		conv.updatedAt = time.Now()
	}
}

// End 结束会话
func (s *conversationStore) End(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, telegramID)
}

// SweepIdle 清理超过 ttl 未活跃的会话，返回清理数量
func (s *conversationStore) SweepIdle(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, conv := range s.convs {
		if conv.updatedAt.Before(cutoff) {
			delete(s.convs, id)
			removed++
		}
	}
	return removed
}

// Len 当前会话数
func (s *conversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}
