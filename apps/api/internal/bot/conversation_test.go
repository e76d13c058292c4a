package bot

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStoreLifecycle(t *testing.T) {
	store := newConversationStore()

	assert.Nil(t, store.Get(1))

	conv := store.Begin(1)
	require.NotNil(t, conv)
	assert.Equal(t, stateAwaitName, conv.State)
	assert.Same(t, conv, store.Get(1))

	// Begin 重置旧会话
	conv.DisplayName = "Alice"
	fresh := store.Begin(1)
	assert.NotSame(t, conv, fresh)
	assert.Empty(t, fresh.DisplayName)

	store.End(1)
	assert.Nil(t, store.Get(1))
	assert.Equal(t, 0, store.Len())
}

func TestConversationStoreSweepIdle(t *testing.T) {
	store := newConversationStore()

	stale := store.Begin(1)
	stale.updatedAt = time.Now().Add(-time.Hour)

	store.Begin(2)

	removed := store.SweepIdle(30 * time.Minute)
	assert.Equal(t, 1, removed)
	assert.Nil(t, store.Get(1))
	assert.NotNil(t, store.Get(2))
}

func TestConversationStoreTouchKeepsAlive(t *testing.T) {
	store := newConversationStore()

	conv := store.Begin(1)
	conv.updatedAt = time.Now().Add(-time.Hour)
	store.Touch(1)

	assert.Equal(t, 0, store.SweepIdle(30*time.Minute))
	assert.NotNil(t, store.Get(1))
}

// 同一用户连发多条消息时推进会并发发生，状态机字段的写入必须
// 经过 conv.mu，清理协程同时扫描也不能撕裂数据（-race 下验证）。
func TestConversationConcurrentStepsSerialized(t *testing.T) {
	store := newConversationStore()
	conv := store.Begin(1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conv.mu.Lock()
			conv.DisplayName = fmt.Sprintf("name-%d", n)
			conv.State = stateAwaitAge
			conv.mu.Unlock()
			store.Touch(1)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			store.SweepIdle(time.Hour)
			store.Len()
		}
	}()

	wg.Wait()
	assert.Equal(t, stateAwaitAge, conv.State)
	assert.NotEmpty(t, conv.DisplayName)
	assert.NotNil(t, store.Get(1))
}

func TestParseConnectionCallback(t *testing.T) {
	tests := []struct {
		data       string
		wantAction string
		wantID     int64
		wantOK     bool
	}{
		{"accept:42", "accept", 42, true},
		{"reject:1", "reject", 1, true},
		{"accept:", "", 0, false},
		{"accept:abc", "", 0, false},
		{"accept:-5", "", 0, false},
		{"block:42", "", 0, false},
		{"accept", "", 0, false},
		{"", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, id, ok := parseConnectionCallback(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantAction, action)
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}
