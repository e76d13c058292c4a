package kafka

import (
	"time"

	"MeetServer/config"
	"MeetServer/pkg/logger"

	kafkago "github.com/segmentio/kafka-go"
)

var globalWriter *kafkago.Writer

// Writer 返回全局生产者（未初始化时为 nil）
func Writer() *kafkago.Writer {
	return globalWriter
}

// ReplaceGlobalWriter 设置全局生产者
func ReplaceGlobalWriter(w *kafkago.Writer) {
	globalWriter = w
}

// zapErrorLogger 把 kafka-go 的错误日志接到 zap 上
type zapErrorLogger struct{}

func (zapErrorLogger) Printf(format string, args ...interface{}) {
	logger.L().Sugar().Errorf("kafka: "+format, args...)
}

// BuildWriter 创建指向重试 Topic 的生产者。
// 异步模式 + 每条消息单独发送，丢消息的代价只是对象存储里多一张孤儿图片，
// 可以接受，不值得为此做同步确认。
func BuildWriter(cfg config.KafkaConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.BlobRetryTopic,
		Balancer:     &kafkago.LeastBytes{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
		ErrorLogger:  zapErrorLogger{},
	}
}

// BuildReader 创建重试 Topic 的消费者
func BuildReader(cfg config.KafkaConfig) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.BlobRetryTopic,
		GroupID:        cfg.ConsumerConfig.GroupID,
		MinBytes:       cfg.ConsumerConfig.MinBytes,
		MaxBytes:       cfg.ConsumerConfig.MaxBytes,
		CommitInterval: cfg.ConsumerConfig.CommitInterval,
		ErrorLogger:    zapErrorLogger{},
	})
}
