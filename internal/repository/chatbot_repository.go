package repository

import (
	"errors"
	"strings"

	"github.com/ashwinyue/chatbot-admin/internal/model"
	"gorm.io/gorm"
)

// 目录层哨兵错误
var (
	// ErrDuplicateName 名称已存在
	ErrDuplicateName = errors.New("chatbot name already exists")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("chatbot not found")
)

// ChatbotRepository 聊天机器人目录仓库
type ChatbotRepository struct {
	db *gorm.DB
}

// NewChatbotRepository 创建目录仓库
func NewChatbotRepository(db *gorm.DB) *ChatbotRepository {
	return &ChatbotRepository{db: db}
}

// Create 新增机器人，名称冲突返回 ErrDuplicateName
func (r *ChatbotRepository) Create(bot *model.Chatbot) error {
	err := r.db.Create(bot).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateName
	}
	return err
}

// GetByID 根据 ID 获取机器人
func (r *ChatbotRepository) GetByID(id uint) (*model.Chatbot, error) {
	var bot model.Chatbot
	err := r.db.Where("id = ?", id).First(&bot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// GetByName 根据名称获取机器人
func (r *ChatbotRepository) GetByName(name string) (*model.Chatbot, error) {
	var bot model.Chatbot
	err := r.db.Where("name = ?", name).First(&bot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// List 列出全部机器人，按创建时间倒序
func (r *ChatbotRepository) List() ([]*model.Chatbot, error) {
	var bots []*model.Chatbot
	err := r.db.Order("created_at DESC").Find(&bots).Error
	return bots, err
}

// Count 已注册机器人数量
func (r *ChatbotRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Chatbot{}).Count(&count).Error
	return count, err
}

// SetIndex 更新索引状态。ready 为 false 时索引名一并清空，
// 保证 index_ready=true 蕴含 index_name 非空。
func (r *ChatbotRepository) SetIndex(id uint, ready bool, indexName *string) error {
	if !ready {
		indexName = nil
	}
	result := r.db.Model(&model.Chatbot{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"index_ready": ready,
			"index_name":  indexName,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLocation 更新存储位置
func (r *ChatbotRepository) SetLocation(id uint, location string) error {
	result := r.db.Model(&model.Chatbot{}).Where("id = ?", id).
		Update("location", location)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除机器人
func (r *ChatbotRepository) Delete(id uint) error {
	result := r.db.Delete(&model.Chatbot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
