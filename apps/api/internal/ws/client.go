package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultSendQueueSize = 64
	wsWriteTimeout       = 5 * time.Second
)

// MessageHandler 定义上行消息回调。
type MessageHandler func(raw []byte)

// CloseHandler 定义连接关闭回调。
type CloseHandler func()

// Client 封装单条 WebSocket 连接。
// send 队列用于削峰，避免业务 goroutine 直接阻塞在网络写；
// done 统一关闭信号；once 保证 Close 幂等。
type Client struct {
	conn       *websocket.Conn
	telegramID int64
	send       chan []byte
	done       chan struct{}
	once       sync.Once
}

// NewClient 创建连接包装对象。
func NewClient(conn *websocket.Conn, telegramID int64) *Client {
	return &Client{
		conn:       conn,
		telegramID: telegramID,
		send:       make(chan []byte, defaultSendQueueSize),
		done:       make(chan struct{}),
	}
}

func (c *Client) TelegramID() int64 {
	return c.telegramID
}

// Done 返回连接关闭信号通道。
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Enqueue 将待发送消息投递到写队列。
// 返回 false 表示连接已关闭或队列已满，调用方可选择丢弃消息。
func (c *Client) Enqueue(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	cloned := append([]byte(nil), msg...)
	select {
	case <-c.done:
		return false
	case c.send <- cloned:
		return true
	default:
		return false
	}
}

// Run 启动读写循环并阻塞等待 readLoop 结束。
// writeLoop 在独立 goroutine 中运行；退出时保证调用 Close 和 onClose。
func (c *Client) Run(ctx context.Context, onMessage MessageHandler, onClose CloseHandler) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	go c.writeLoop(ctx)
	c.readLoop(ctx, onMessage)
}

// Close 幂等关闭连接。
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readLoop 持续读取客户端上行帧并交由 onMessage 处理。
func (c *Client) readLoop(ctx context.Context, onMessage MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if onMessage != nil {
			onMessage(raw)
		}
	}
}

// writeLoop 持续从 send 队列取消息写入客户端。
// 每次写操作设置超时，避免慢连接长期占用写协程。
func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}
