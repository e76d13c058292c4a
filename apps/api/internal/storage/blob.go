package storage

import (
	"context"
	"io"
	"time"

	"MeetServer/apps/api/mq"
	"MeetServer/pkg/logger"
	pkgminio "MeetServer/pkg/minio"

	"github.com/sony/gobreaker"
)

// BlobStore 资料图片对象存储门面。
// MinIO 前面套一层熔断器：对象存储抖动时快速失败，
// 不让上传请求把 HTTP worker 拖死。
// 删除失败不报错，投递到 Kafka 重试队列由后台消费者兜底。
type BlobStore struct {
	client  *pkgminio.MinIOClient
	breaker *gobreaker.CircuitBreaker
}

// UploadedBlob 上传结果
type UploadedBlob struct {
	ObjectName string // 对象名，作为 blob_id 持久化
	URL        string // 外部访问 URL
	Size       int64
}

// NewBlobStore 创建对象存储门面
func NewBlobStore(client *pkgminio.MinIOClient) *BlobStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "minio",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BlobStore{client: client, breaker: breaker}
}

// Upload 上传一张图片
// prefix: 对象名前缀（avatar / photo），fileName 用于推断内容类型
func (s *BlobStore) Upload(ctx context.Context, reader io.Reader, size int64, fileName, prefix string) (*UploadedBlob, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Upload(ctx, reader, size, pkgminio.UploadOptions{
			FileName:   fileName,
			PathPrefix: prefix,
		})
	})
	if err != nil {
		return nil, err
	}

	uploaded := result.(*pkgminio.UploadResult)
	return &UploadedBlob{
		ObjectName: uploaded.ObjectName,
		URL:        uploaded.URL,
		Size:       uploaded.Size,
	}, nil
}

// Delete 删除一个对象（尽力而为）
// 同步删除失败时投递重试任务，调用方不感知失败。
func (s *BlobStore) Delete(ctx context.Context, objectName string, source string) {
	if objectName == "" {
		return
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Delete(ctx, objectName)
	})
	if err == nil {
		return
	}

	logger.Warn(ctx, "对象删除失败，发送到重试队列",
		logger.String("object_name", objectName),
		logger.String("source", source),
		logger.ErrorField("error", err),
	)

	task := mq.BuildBlobDeleteTask(objectName).
		WithContext(ctx).
		WithError(err).
		WithSource(source)
	if sendErr := mq.SendBlobDeleteTask(ctx, task); sendErr != nil {
		// Kafka 也失败，记日志放弃（留给人工对账）
		logger.Error(ctx, "删除重试任务入队失败，放弃处理",
			logger.String("object_name", objectName),
			logger.ErrorField("kafka_error", sendErr),
			logger.ErrorField("original_error", err),
		)
	}
}
