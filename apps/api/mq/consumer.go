package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"MeetServer/pkg/logger"

	kafkago "github.com/segmentio/kafka-go"
)

// ObjectDeleter 对象删除接口（生产环境是 MinIO 客户端，测试用假实现）
type ObjectDeleter interface {
	Delete(ctx context.Context, objectName string) error
}

// MessageReader 消费侧最小接口，*kafka.Reader 满足
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
}

// BlobRetryConsumer 孤儿图片清理消费者。
// 从重试 Topic 拉取删除任务，逐条尝试删除；仍失败则重新入队，
// 超过最大重试次数后记日志放弃（留给人工对账）。
type BlobRetryConsumer struct {
	reader  MessageReader
	deleter ObjectDeleter
}

// NewBlobRetryConsumer 创建消费者实例
func NewBlobRetryConsumer(reader MessageReader, deleter ObjectDeleter) *BlobRetryConsumer {
	return &BlobRetryConsumer{reader: reader, deleter: deleter}
}

// Run 循环消费直到 ctx 取消
func (c *BlobRetryConsumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			logger.Error(ctx, "读取删除重试消息失败", logger.ErrorField("error", err))
			// 避免 broker 异常时空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.handle(ctx, msg)
	}
}

// handle 处理单条删除任务
func (c *BlobRetryConsumer) handle(ctx context.Context, msg kafkago.Message) {
	var task BlobDeleteTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		logger.Error(ctx, "删除重试任务反序列化失败，丢弃",
			logger.ErrorField("error", err),
			logger.Int("payload_len", len(msg.Value)),
		)
		return
	}

	if task.ObjectName == "" {
		return
	}

	err := c.deleter.Delete(ctx, task.ObjectName)
	if err == nil {
		logger.Info(ctx, "孤儿图片删除成功",
			logger.String("object_name", task.ObjectName),
			logger.Int("retry_count", task.RetryCount),
		)
		return
	}

	// 删除仍失败：未超限则重新入队，超限则放弃
	task.RetryCount++
	if task.RetryCount >= task.MaxRetries {
		logger.Error(ctx, "孤儿图片删除重试超限，放弃",
			logger.String("object_name", task.ObjectName),
			logger.Int("retry_count", task.RetryCount),
			logger.ErrorField("error", err),
		)
		return
	}

	if sendErr := SendBlobDeleteTask(ctx, task.WithError(err)); sendErr != nil {
		logger.Error(ctx, "删除重试任务重新入队失败",
			logger.String("object_name", task.ObjectName),
			logger.ErrorField("error", sendErr),
		)
	}
}
