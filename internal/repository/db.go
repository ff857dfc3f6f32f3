// Package repository 数据访问层
package repository

import (
	"errors"
	"fmt"
	"log"

	"github.com/ashwinyue/chatbot-admin/internal/config"
	"github.com/ashwinyue/chatbot-admin/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 目录当前 schema 版本。版本 1 为早期 foldername 列的结构，
// 版本 2 将该列改名为 location。
const schemaVersion = 2

// schemaInfo 记录目录的 schema 版本（单行表）
type schemaInfo struct {
	ID      uint `gorm:"primaryKey"`
	Version int
}

// TableName 指定表名
func (schemaInfo) TableName() string {
	return "schema_info"
}

// NewDB 打开本地 SQLite 目录数据库并执行启动迁移
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate 一次性前向迁移：读取 schema 版本，逐版本升级后写回。
// 运行期代码只假设当前版本的结构。
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaInfo{}); err != nil {
		return err
	}

	var info schemaInfo
	err := db.First(&info).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		info = schemaInfo{ID: 1, Version: detectVersion(db)}
		if err := db.Create(&info).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if info.Version == 1 {
		// 版本 1 → 2：foldername 列改名为 location
		if err := db.Migrator().RenameColumn(&model.Chatbot{}, "foldername", "location"); err != nil {
			return fmt.Errorf("failed to rename foldername column: %w", err)
		}
		info.Version = 2
		log.Printf("Catalog schema migrated to version 2")
	}

	if err := db.AutoMigrate(&model.Chatbot{}); err != nil {
		return err
	}

	info.Version = schemaVersion
	return db.Save(&info).Error
}

// detectVersion 为没有版本记录的旧库判定起始版本
func detectVersion(db *gorm.DB) int {
	m := db.Migrator()
	if m.HasTable(&model.Chatbot{}) && m.HasColumn(&model.Chatbot{}, "foldername") {
		return 1
	}
	return schemaVersion
}
