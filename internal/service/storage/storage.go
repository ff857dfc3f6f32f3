// Package storage 对象存储适配层，按机器人位置前缀管理文档
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ashwinyue/chatbot-admin/internal/config"
)

// ErrNotConfigured 存储未配置，所有操作直接失败
var ErrNotConfigured = errors.New("object storage is not configured")

// FileInfo 存储对象的基本信息
type FileInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// UploadResult 批量上传中单个文件的结果
type UploadResult struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// Service 对象存储服务。client 为 nil 表示未配置，
// 操作返回 ErrNotConfigured 而不是崩溃。
type Service struct {
	client *minio.Client
	bucket string
}

// New 创建对象存储服务。存储未配置时返回可用但降级的实例。
func New(cfg *config.Config) (*Service, error) {
	if !cfg.StorageConfigured() {
		return &Service{}, nil
	}

	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}

	return &Service{client: client, bucket: cfg.Storage.Bucket}, nil
}

// Configured 存储是否可用
func (s *Service) Configured() bool {
	return s.client != nil
}

// EnsureBucket 检查 bucket，不存在则创建
func (s *Service) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Upload 上传单个文件到指定位置。空文件拒绝上传。
func (s *Service) Upload(ctx context.Context, location, name string, reader io.Reader, size int64) error {
	if size == 0 {
		return fmt.Errorf("file %s is empty", name)
	}
	if s.client == nil {
		return ErrNotConfigured
	}

	objectName := location + "/" + name
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

// UploadFile 批量上传的单项输入
type UploadFile struct {
	Name   string
	Reader io.Reader
	Size   int64
}

// UploadMany 批量上传，逐个记录结果，返回成功数量。
// 单个文件失败不中断其余文件。
func (s *Service) UploadMany(ctx context.Context, location string, files []UploadFile) (int, []UploadResult) {
	results := make([]UploadResult, 0, len(files))
	uploaded := 0
	for _, f := range files {
		r := UploadResult{Name: f.Name}
		if err := s.Upload(ctx, location, f.Name, f.Reader, f.Size); err != nil {
			r.Error = err.Error()
		} else {
			uploaded++
		}
		results = append(results, r)
	}
	return uploaded, results
}

// List 列出指定位置下的所有文件
func (s *Service) List(ctx context.Context, location string) ([]FileInfo, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	prefix := location + "/"
	files := make([]FileInfo, 0)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		files = append(files, FileInfo{
			Name:         strings.TrimPrefix(object.Key, prefix),
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return files, nil
}

// ListAll 列出 bucket 内的全部对象（完整对象名）
func (s *Service) ListAll(ctx context.Context) ([]FileInfo, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	files := make([]FileInfo, 0)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		files = append(files, FileInfo{
			Name:         object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return files, nil
}

// Get 读取指定位置下的文件内容
func (s *Service) Get(ctx context.Context, location, name string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}
	object, err := s.client.GetObject(ctx, s.bucket, location+"/"+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	return object, nil
}

// GetInfo 获取单个文件的元信息
func (s *Service) GetInfo(ctx context.Context, location, name string) (*FileInfo, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}
	stat, err := s.client.StatObject(ctx, s.bucket, location+"/"+name, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return &FileInfo{
		Name:         name,
		Size:         stat.Size,
		LastModified: stat.LastModified,
	}, nil
}

// Delete 删除指定位置下的文件
func (s *Service) Delete(ctx context.Context, location, name string) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	if err := s.client.RemoveObject(ctx, s.bucket, location+"/"+name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// NormalizeLocation 规范化存储位置：小写，空格和下划线转为连字符
func NormalizeLocation(location string) string {
	location = strings.ToLower(strings.TrimSpace(location))
	location = strings.ReplaceAll(location, " ", "-")
	location = strings.ReplaceAll(location, "_", "-")
	return location
}

// FormatFileSize 字节数转为可读大小
func FormatFileSize(size int64) string {
	switch {
	case size >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(size)/(1024*1024*1024))
	case size >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
