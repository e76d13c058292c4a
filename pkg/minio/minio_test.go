package minio

import (
	"strings"
	"testing"

	"MeetServer/config"

	"github.com/stretchr/testify/assert"
)

func TestValidImageExtension(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		want        bool
	}{
		{"jpg 匹配 jpeg", "me.jpg", "image/jpeg", true},
		{"jpeg 匹配 jpeg", "me.JPEG", "image/jpeg", true},
		{"png 匹配 png", "pic.png", "image/png", true},
		{"exe 冒充 jpg", "virus.exe", "image/jpeg", false},
		{"png 内容带 jpg 扩展名", "pic.jpg", "image/png", false},
		{"未收录类型放行", "doc.bin", "application/octet-stream", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validImageExtension(tt.fileName, tt.contentType))
		})
	}
}

func TestGenerateObjectName(t *testing.T) {
	c := &MinIOClient{config: config.MinIOConfig{}}

	t.Run("带前缀和扩展名", func(t *testing.T) {
		name := c.generateObjectName(UploadOptions{PathPrefix: "avatar/", FileName: "Selfie.JPG"})
		assert.True(t, strings.HasPrefix(name, "avatar/"))
		assert.True(t, strings.HasSuffix(name, ".jpg"))
		// 对象名不复用调用方文件名
		assert.NotContains(t, name, "Selfie")
	})

	t.Run("无文件名时纯 UUID", func(t *testing.T) {
		name := c.generateObjectName(UploadOptions{})
		assert.NotEmpty(t, name)
		assert.NotContains(t, name, "/")
		assert.NotContains(t, name, ".")
	})

	t.Run("两次生成互不相同", func(t *testing.T) {
		opts := UploadOptions{PathPrefix: "photo", FileName: "a.png"}
		assert.NotEqual(t, c.generateObjectName(opts), c.generateObjectName(opts))
	})
}

func TestGenerateURL(t *testing.T) {
	c := &MinIOClient{config: config.MinIOConfig{
		BucketName: "profile-images",
		BaseURL:    "https://cdn.example.com/",
	}}

	assert.Equal(t,
		"https://cdn.example.com/profile-images/avatar/abc.jpg",
		c.generateURL("/avatar/abc.jpg"),
	)
}

func TestIsAllowedType(t *testing.T) {
	c := &MinIOClient{config: config.MinIOConfig{
		AllowedTypes: []string{"image/jpeg", "image/png"},
	}}

	assert.True(t, c.isAllowedType("image/jpeg"))
	assert.True(t, c.isAllowedType("IMAGE/PNG"))
	assert.False(t, c.isAllowedType("application/pdf"))
}
