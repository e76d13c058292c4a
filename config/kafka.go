package config

import "time"

// KafkaConsumerConfig Kafka 消费者配置
type KafkaConsumerConfig struct {
	GroupID        string        `json:"groupId" yaml:"groupId"`               // 消费组
	MinBytes       int           `json:"minBytes" yaml:"minBytes"`             // 单次拉取最小字节数
	MaxBytes       int           `json:"maxBytes" yaml:"maxBytes"`             // 单次拉取最大字节数
	CommitInterval time.Duration `json:"commitInterval" yaml:"commitInterval"` // 位点提交间隔
}

// KafkaConfig Kafka 配置
// 当前只用于对象存储删除失败的重试队列（孤儿图片清理）。
type KafkaConfig struct {
	Brokers        []string            `json:"brokers" yaml:"brokers"`               // Broker 列表
	BlobRetryTopic string              `json:"blobRetryTopic" yaml:"blobRetryTopic"` // 删除重试 Topic
	ConsumerConfig KafkaConsumerConfig `json:"consumer" yaml:"consumer"`
}

// DefaultKafkaConfig 返回本地开发的默认配置
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:        []string{"kafka:9092"},
		BlobRetryTopic: "meetserver.blob.delete.retry",
		ConsumerConfig: KafkaConsumerConfig{
			GroupID:        "meetserver-blob-retry",
			MinBytes:       1,
			MaxBytes:       1 << 20,
			CommitInterval: time.Second,
		},
	}
}
