// Package model 提供聊天机器人目录的数据模型
package model

import (
	"time"
)

// Chatbot 聊天机器人（租户）：一个机器人对应一个存储位置和一个搜索索引
type Chatbot struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	Location    string    `json:"location" gorm:"type:varchar(255)"`
	Description string    `json:"description" gorm:"type:text"`
	IndexName   *string   `json:"index_name" gorm:"type:varchar(255)"`
	IndexReady  bool      `json:"index_ready" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chatbot) TableName() string {
	return "chatbots"
}
