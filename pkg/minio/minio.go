package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"MeetServer/config"
	"MeetServer/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// global 全局 MinIO 客户端实例
var global *MinIOClient

// MinIOClient 资料图片对象存储客户端
// 本服务只存头像和资料照片，上传一律按图片校验。
type MinIOClient struct {
	client *minio.Client
	config config.MinIOConfig
}

// Client 返回全局 MinIO 客户端（未初始化时为 nil）
func Client() *MinIOClient {
	return global
}

// ReplaceGlobal 设置全局 MinIO 客户端
func ReplaceGlobal(c *MinIOClient) {
	global = c
}

// Build 基于配置创建客户端并确保 Bucket 可用
func Build(cfg config.MinIOConfig) (*MinIOClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is empty")
	}
	if strings.TrimSpace(cfg.AccessKeyID) == "" {
		return nil, errors.New("minio accessKeyId is empty")
	}
	if strings.TrimSpace(cfg.SecretAccessKey) == "" {
		return nil, errors.New("minio secretAccessKey is empty")
	}
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("minio bucketName is empty")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	client := &MinIOClient{
		client: minioClient,
		config: cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket exists: %w", err)
	}

	if !exists {
		err = minioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Location,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}

		logger.Info(ctx, "MinIO Bucket 创建成功",
			logger.String("bucket", cfg.BucketName),
			logger.String("location", cfg.Location),
		)

		// 头像和资料照片直接走 URL 访问，Bucket 需要公开读
		if cfg.PublicRead {
			policy := fmt.Sprintf(`{
				"Version": "2012-10-17",
				"Statement": [
					{
						"Effect": "Allow",
						"Principal": {"AWS": ["*"]},
						"Action": ["s3:GetObject"],
						"Resource": ["arn:aws:s3:::%s/*"]
					}
				]
			}`, cfg.BucketName)

			err = minioClient.SetBucketPolicy(ctx, cfg.BucketName, policy)
			if err != nil {
				logger.Warn(ctx, "设置 Bucket 公开策略失败",
					logger.String("bucket", cfg.BucketName),
					logger.ErrorField("error", err),
				)
			}
		}
	}

	return client, nil
}

// UploadOptions 上传选项
type UploadOptions struct {
	// 对象名前缀（如: "avatar/"、"photo/"）
	PathPrefix string
	// 原始文件名，用于扩展名校验；为空时生成 UUID 对象名
	FileName string
}

// UploadResult 上传结果
type UploadResult struct {
	ObjectName string // 对象名（含前缀）
	Size       int64  // 字节数
	URL        string // 外部访问 URL
}

// Upload 上传一张资料图片
// 内容类型以文件头 Magic Bytes 为准，扩展名改名绕不过校验。
func (c *MinIOClient) Upload(ctx context.Context, reader io.Reader, fileSize int64, opts UploadOptions) (*UploadResult, error) {
	if c.config.MaxFileSize > 0 && fileSize > c.config.MaxFileSize {
		return nil, fmt.Errorf("文件大小超过限制: %d bytes (最大: %d bytes)", fileSize, c.config.MaxFileSize)
	}

	objectName := c.generateObjectName(opts)

	// http.DetectContentType 最多看前 512 字节
	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("读取文件内容失败: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)

	if len(c.config.AllowedTypes) > 0 && !c.isAllowedType(contentType) {
		logger.Warn(ctx, "文件类型不在允许列表中",
			logger.String("content_type", contentType),
			logger.String("file_name", opts.FileName),
			logger.Any("allowed_types", c.config.AllowedTypes),
		)
		return nil, fmt.Errorf("不支持的文件类型: %s (允许: %v)", contentType, c.config.AllowedTypes)
	}

	if opts.FileName != "" && !validImageExtension(opts.FileName, contentType) {
		logger.Warn(ctx, "文件扩展名与实际内容类型不匹配",
			logger.String("file_name", opts.FileName),
			logger.String("content_type", contentType),
		)
		return nil, fmt.Errorf("文件扩展名与实际内容类型不匹配（检测到: %s）", contentType)
	}

	// 已消费的文件头拼回流前面
	body := io.MultiReader(bytes.NewReader(head), reader)

	uploadCtx := ctx
	if c.config.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, c.config.UploadTimeout)
		defer cancel()
	}

	uploadInfo, err := c.client.PutObject(
		uploadCtx,
		c.config.BucketName,
		objectName,
		body,
		fileSize,
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		logger.Error(ctx, "MinIO 上传失败",
			logger.String("object", objectName),
			logger.String("content_type", contentType),
			logger.Int64("size", fileSize),
			logger.ErrorField("error", err),
		)
		return nil, fmt.Errorf("上传失败: %w", err)
	}

	url := c.generateURL(objectName)

	logger.Info(ctx, "MinIO 上传成功",
		logger.String("object", objectName),
		logger.String("url", url),
		logger.String("content_type", contentType),
		logger.Int64("size", uploadInfo.Size),
	)

	return &UploadResult{
		ObjectName: objectName,
		Size:       uploadInfo.Size,
		URL:        url,
	}, nil
}

// Delete 删除一个对象
func (c *MinIOClient) Delete(ctx context.Context, objectName string) error {
	err := c.client.RemoveObject(ctx, c.config.BucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error(ctx, "MinIO 删除失败",
			logger.String("object", objectName),
			logger.ErrorField("error", err),
		)
		return fmt.Errorf("删除失败: %w", err)
	}

	logger.Info(ctx, "MinIO 删除成功",
		logger.String("object", objectName),
	)
	return nil
}

// generateObjectName 生成对象名，保留原始扩展名便于排查
func (c *MinIOClient) generateObjectName(opts UploadOptions) string {
	name := uuid.New().String()
	if ext := strings.ToLower(filepath.Ext(opts.FileName)); ext != "" {
		name += ext
	}

	if opts.PathPrefix != "" {
		prefix := strings.TrimSuffix(opts.PathPrefix, "/")
		return prefix + "/" + name
	}
	return name
}

// generateURL 生成外部访问 URL
func (c *MinIOClient) generateURL(objectName string) string {
	baseURL := strings.TrimSuffix(c.config.BaseURL, "/")
	objectName = strings.TrimPrefix(objectName, "/")

	return fmt.Sprintf("%s/%s/%s", baseURL, c.config.BucketName, objectName)
}

// imageExtensions 检测到的图片类型对应的合法扩展名
var imageExtensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// validImageExtension 校验扩展名与检测到的内容类型是否一致
// 未收录的类型放行，由 AllowedTypes 白名单兜底。
func validImageExtension(fileName, contentType string) bool {
	allowed, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return true
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// isAllowedType 检查内容类型是否在白名单内
func (c *MinIOClient) isAllowedType(contentType string) bool {
	for _, allowed := range c.config.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
