package ws

import (
	"encoding/json"
	"testing"

	"MeetServer/apps/api/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRegisterReplace(t *testing.T) {
	m := NewManager()

	first := NewClient(nil, 1)
	assert.Nil(t, m.Register(first))
	assert.Equal(t, 1, m.Count())

	// 同一用户的新连接替换旧连接
	second := NewClient(nil, 1)
	replaced := m.Register(second)
	assert.Same(t, first, replaced)
	assert.Equal(t, 1, m.Count())

	// 旧连接注销不影响新连接
	m.Unregister(first)
	assert.Equal(t, 1, m.Count())

	m.Unregister(second)
	assert.Equal(t, 0, m.Count())
}

func TestManagerPush(t *testing.T) {
	m := NewManager()

	// 不在线：按离线处理
	assert.False(t, m.Push(42, &dto.MessageInfo{ID: 1, Text: "hi"}))

	client := NewClient(nil, 42)
	m.Register(client)

	msg := &dto.MessageInfo{ID: 1, ChatSessionID: 5, FromTelegramID: 7, Text: "hi"}
	require.True(t, m.Push(42, msg))

	// 入队的帧是 message 信封
	select {
	case frame := <-client.send:
		var envelope Envelope
		require.NoError(t, json.Unmarshal(frame, &envelope))
		assert.Equal(t, "message", envelope.Type)
	default:
		t.Fatal("帧未入队")
	}
}

func TestManagerPushQueueFull(t *testing.T) {
	m := NewManager()
	client := NewClient(nil, 1)
	m.Register(client)

	msg := &dto.MessageInfo{ID: 1, Text: "x"}
	for i := 0; i < defaultSendQueueSize; i++ {
		require.True(t, m.Push(1, msg))
	}

	// 队列满了返回 false，不阻塞
	assert.False(t, m.Push(1, msg))
}
