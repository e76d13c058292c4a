package mq

import (
	"context"
	"time"
)

// ==================== 对象存储删除重试任务 ====================

// BlobDeleteTask 存放在 Kafka 里的消息体。
// 资料更新或注销时对象存储删除失败，不能阻塞主流程，
// 投递到重试队列由后台消费者兜底，避免孤儿图片堆积。
type BlobDeleteTask struct {
	ObjectName string `json:"object_name"` // 对象名（含桶内路径）

	// 元数据（用于追踪和重试控制）
	TraceID     string    `json:"trace_id,omitempty"`
	UserUUID    string    `json:"user_uuid,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	RetryCount  int       `json:"retry_count"`      // 已重试次数
	MaxRetries  int       `json:"max_retries"`      // 最大重试次数
	OriginalErr string    `json:"original_err"`     // 原始错误信息
	Source      string    `json:"source,omitempty"` // 操作来源（service 方法名）
}

// BuildBlobDeleteTask 构造一个删除重试任务
func BuildBlobDeleteTask(objectName string) BlobDeleteTask {
	return BlobDeleteTask{
		ObjectName: objectName,
		Timestamp:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ==================== 链式方法 ====================

// WithContext 为任务添加上下文信息
func (t BlobDeleteTask) WithContext(ctx context.Context) BlobDeleteTask {
	if traceID, ok := ctx.Value("trace_id").(string); ok {
		t.TraceID = traceID
	}
	if userUUID, ok := ctx.Value("user_uuid").(string); ok {
		t.UserUUID = userUUID
	}
	return t
}

// WithError 为任务添加错误信息
func (t BlobDeleteTask) WithError(err error) BlobDeleteTask {
	t.OriginalErr = err.Error()
	return t
}

// WithSource 为任务添加来源信息
func (t BlobDeleteTask) WithSource(source string) BlobDeleteTask {
	t.Source = source
	return t
}

// WithMaxRetries 设置最大重试次数
func (t BlobDeleteTask) WithMaxRetries(maxRetries int) BlobDeleteTask {
	t.MaxRetries = maxRetries
	return t
}
