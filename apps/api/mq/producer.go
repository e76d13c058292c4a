package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"MeetServer/pkg/kafka"

	kafkago "github.com/segmentio/kafka-go"
)

// ErrProducerNotReady Kafka 生产者未初始化（未配置或启动失败）
var ErrProducerNotReady = errors.New("kafka producer not ready")

// SendBlobDeleteTask 发送删除重试任务到 Kafka。
// 以对象名作为消息 Key，同一对象的重试落到同一分区保持顺序。
func SendBlobDeleteTask(ctx context.Context, task BlobDeleteTask) error {
	writer := kafka.Writer()
	if writer == nil {
		return ErrProducerNotReady
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	return writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(task.ObjectName),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "retry_count", Value: []byte(strconv.Itoa(task.RetryCount))},
		},
	})
}
