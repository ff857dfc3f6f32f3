// Package chatbot 机器人目录编排：注册、文档管理与索引生命周期
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ashwinyue/chatbot-admin/internal/model"
	"github.com/ashwinyue/chatbot-admin/internal/service/indexer"
	"github.com/ashwinyue/chatbot-admin/internal/service/storage"
)

// ErrBlankName 机器人名称为空
var ErrBlankName = errors.New("chatbot name is required")

// Catalog 机器人目录的持久化操作
type Catalog interface {
	Create(bot *model.Chatbot) error
	GetByID(id uint) (*model.Chatbot, error)
	GetByName(name string) (*model.Chatbot, error)
	List() ([]*model.Chatbot, error)
	Delete(id uint) error
	SetIndex(id uint, ready bool, indexName *string) error
	SetLocation(id uint, location string) error
}

// DocumentStore 编排层所需的存储操作
type DocumentStore interface {
	Configured() bool
	UploadMany(ctx context.Context, location string, files []storage.UploadFile) (int, []storage.UploadResult)
	List(ctx context.Context, location string) ([]storage.FileInfo, error)
	GetInfo(ctx context.Context, location, name string) (*storage.FileInfo, error)
	Delete(ctx context.Context, location, name string) error
}

// IndexProvisioner 编排层所需的索引构建操作
type IndexProvisioner interface {
	Provision(ctx context.Context, location string) (*indexer.Result, error)
}

// Service 机器人编排服务
type Service struct {
	repo        Catalog
	store       DocumentStore
	provisioner IndexProvisioner
}

// NewService 创建编排服务
func NewService(repo Catalog, store DocumentStore, provisioner IndexProvisioner) *Service {
	return &Service{repo: repo, store: store, provisioner: provisioner}
}

// Register 注册新机器人。位置为空时由名称派生默认位置。
func (s *Service) Register(name, location, description string) (*model.Chatbot, error) {
	if name == "" {
		return nil, ErrBlankName
	}
	if location == "" {
		location = name
	}

	bot := &model.Chatbot{
		Name:        name,
		Location:    storage.NormalizeLocation(location),
		Description: description,
	}
	if err := s.repo.Create(bot); err != nil {
		return nil, err
	}
	return bot, nil
}

// List 按注册时间倒序列出全部机器人
func (s *Service) List() ([]*model.Chatbot, error) {
	return s.repo.List()
}

// Get 根据 ID 获取机器人
func (s *Service) Get(id uint) (*model.Chatbot, error) {
	return s.repo.GetByID(id)
}

// GetByName 根据名称获取机器人
func (s *Service) GetByName(name string) (*model.Chatbot, error) {
	return s.repo.GetByName(name)
}

// UpdateLocation 更改机器人的存储位置。旧位置的索引随之失效，
// 旧位置下的文档保留为孤儿。
func (s *Service) UpdateLocation(ctx context.Context, id uint, location string) (*model.Chatbot, error) {
	if location == "" {
		return nil, errors.New("location is required")
	}
	bot, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	normalized := storage.NormalizeLocation(location)
	if err := s.repo.SetLocation(id, normalized); err != nil {
		return nil, err
	}
	if err := s.repo.SetIndex(id, false, nil); err != nil {
		return nil, fmt.Errorf("failed to invalidate index: %w", err)
	}

	if bot.Location != "" && bot.Location != normalized {
		log.Printf("Chatbot %s moved from %s to %s, old documents are kept", bot.Name, bot.Location, normalized)
	}
	return s.repo.GetByID(id)
}

// Delete 注销机器人。存储中的文档与搜索索引保留为孤儿，
// 仅记录日志提示人工清理。
func (s *Service) Delete(ctx context.Context, id uint) error {
	bot, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	if bot.Location != "" {
		log.Printf("Chatbot %s deleted, documents under %s/ are kept", bot.Name, bot.Location)
	}
	if bot.IndexName != nil {
		log.Printf("Chatbot %s deleted, index %s is kept", bot.Name, *bot.IndexName)
	}
	return nil
}

// UploadDocuments 上传文档。只要有至少一个文件确认上传成功，
// 现有索引即标记为过期（index_ready=false、索引名清空）。
func (s *Service) UploadDocuments(ctx context.Context, id uint, files []storage.UploadFile) (int, []storage.UploadResult, error) {
	bot, err := s.repo.GetByID(id)
	if err != nil {
		return 0, nil, err
	}

	uploaded, results := s.store.UploadMany(ctx, bot.Location, files)
	if uploaded > 0 {
		if err := s.repo.SetIndex(id, false, nil); err != nil {
			return uploaded, results, fmt.Errorf("failed to invalidate index: %w", err)
		}
	}
	return uploaded, results, nil
}

// ListDocuments 列出机器人的文档
func (s *Service) ListDocuments(ctx context.Context, id uint) ([]storage.FileInfo, error) {
	bot, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, bot.Location)
}

// GetDocument 获取机器人单个文档的元信息
func (s *Service) GetDocument(ctx context.Context, id uint, name string) (*storage.FileInfo, error) {
	bot, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.store.GetInfo(ctx, bot.Location, name)
}

// DeleteDocument 删除机器人的单个文档并标记索引过期
func (s *Service) DeleteDocument(ctx context.Context, id uint, name string) error {
	bot, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, bot.Location, name); err != nil {
		return err
	}
	return s.repo.SetIndex(id, false, nil)
}

// RefreshIndex 重建机器人的搜索索引。成功后记录索引名并置就绪；
// 失败时显式置为未就绪。
func (s *Service) RefreshIndex(ctx context.Context, id uint) (*indexer.Result, error) {
	bot, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	result, err := s.provisioner.Provision(ctx, bot.Location)
	if err != nil {
		if setErr := s.repo.SetIndex(id, false, nil); setErr != nil {
			log.Printf("Warning: failed to mark index not ready: %v", setErr)
		}
		return nil, err
	}

	if err := s.repo.SetIndex(id, true, &result.IndexName); err != nil {
		return nil, fmt.Errorf("failed to record index: %w", err)
	}
	return result, nil
}
