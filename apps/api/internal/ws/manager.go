package ws

import (
	"encoding/json"
	"sync"

	"MeetServer/apps/api/internal/dto"
)

// Envelope WebSocket 下行帧
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Manager 管理所有在线 WebSocket 连接，按 Telegram ID 索引。
// 每个用户最多一条活跃连接，新连接替换旧连接。
// 同时实现 service.MessagePusher，聊天服务落库后从这里推在线增量。
type Manager struct {
	mu       sync.RWMutex
	byUser   map[int64]*Client
	shutdown bool
}

// NewManager 创建连接管理器实例。
func NewManager() *Manager {
	return &Manager{
		byUser: make(map[int64]*Client),
	}
}

// Register 注册一个连接。
// 返回被新连接替换掉的旧连接（如果存在），调用方应主动关闭它。
func (m *Manager) Register(client *Client) (replaced *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil
	}

	if old, ok := m.byUser[client.TelegramID()]; ok && old != client {
		replaced = old
	}
	m.byUser[client.TelegramID()] = client
	return replaced
}

// Unregister 注销一个连接。
// 只有当表中当前连接与入参一致时才删除，防止并发替换时误删新连接。
func (m *Manager) Unregister(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byUser[client.TelegramID()]
	if !ok || current != client {
		return
	}
	delete(m.byUser, client.TelegramID())
}

// Push 向用户推送一条聊天消息。
// 返回 false 表示用户不在线或写队列不可用，调用方按离线处理
// （消息已落库，用户上线后通过历史接口补齐）。
func (m *Manager) Push(telegramID int64, msg *dto.MessageInfo) bool {
	m.mu.RLock()
	client := m.byUser[telegramID]
	m.mu.RUnlock()
	if client == nil {
		return false
	}

	frame, err := json.Marshal(Envelope{Type: "message", Data: msg})
	if err != nil {
		return false
	}
	return client.Enqueue(frame)
}

// Count 当前在线连接数。
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}

// Shutdown 关闭全部连接并阻止后续注册，用于进程优雅退出。
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	clients := make([]*Client, 0, len(m.byUser))
	for _, client := range m.byUser {
		clients = append(clients, client)
	}
	m.byUser = make(map[int64]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
