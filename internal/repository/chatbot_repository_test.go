// Package repository 提供目录仓库单元测试
package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ashwinyue/chatbot-admin/internal/config"
	"github.com/ashwinyue/chatbot-admin/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(&config.Config{Database: config.DatabaseConfig{Path: path}})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestCreateAndGet(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))

	bot := &model.Chatbot{Name: "support-bot", Location: "support-bot", Description: "desc"}
	if err := repo.Create(bot); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if bot.ID == 0 {
		t.Error("Create() should assign an ID")
	}

	got, err := repo.GetByID(bot.ID)
	if err != nil {
		t.Fatalf("GetByID() unexpected error: %v", err)
	}
	if got.Name != "support-bot" {
		t.Errorf("Name = %s, want support-bot", got.Name)
	}
	if got.IndexReady {
		t.Error("new chatbot should not have a ready index")
	}

	byName, err := repo.GetByName("support-bot")
	if err != nil {
		t.Fatalf("GetByName() unexpected error: %v", err)
	}
	if byName.ID != bot.ID {
		t.Errorf("GetByName() ID = %d, want %d", byName.ID, bot.ID)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))

	if err := repo.Create(&model.Chatbot{Name: "bot", Location: "bot"}); err != nil {
		t.Fatalf("first Create() error: %v", err)
	}
	err := repo.Create(&model.Chatbot{Name: "bot", Location: "other"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Create() error = %v, want ErrDuplicateName", err)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))

	if _, err := repo.GetByID(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByName("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByName() error = %v, want ErrNotFound", err)
	}
}

func TestListOrderedByCreatedAtDesc(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"oldest", "middle", "newest"} {
		bot := &model.Chatbot{
			Name:      name,
			Location:  name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(bot); err != nil {
			t.Fatalf("Create(%s) error: %v", name, err)
		}
	}

	bots, err := repo.List()
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(bots) != 3 {
		t.Fatalf("List() count = %d, want 3", len(bots))
	}
	wantOrder := []string{"newest", "middle", "oldest"}
	for i, want := range wantOrder {
		if bots[i].Name != want {
			t.Errorf("List()[%d] = %s, want %s", i, bots[i].Name, want)
		}
	}
}

func TestSetIndex(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))

	bot := &model.Chatbot{Name: "bot", Location: "bot"}
	if err := repo.Create(bot); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	indexName := "bot-index"
	if err := repo.SetIndex(bot.ID, true, &indexName); err != nil {
		t.Fatalf("SetIndex(ready) error: %v", err)
	}
	got, _ := repo.GetByID(bot.ID)
	if !got.IndexReady {
		t.Error("IndexReady = false, want true")
	}
	if got.IndexName == nil || *got.IndexName != indexName {
		t.Error("IndexName not recorded")
	}

	// 置为未就绪时索引名必须清空
	staleName := "stale"
	if err := repo.SetIndex(bot.ID, false, &staleName); err != nil {
		t.Fatalf("SetIndex(not ready) error: %v", err)
	}
	got, _ = repo.GetByID(bot.ID)
	if got.IndexReady {
		t.Error("IndexReady = true, want false")
	}
	if got.IndexName != nil {
		t.Errorf("IndexName = %v, want nil", *got.IndexName)
	}
}

func TestSetIndexNotFound(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))
	if err := repo.SetIndex(42, true, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetIndex() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))

	bot := &model.Chatbot{Name: "bot", Location: "bot"}
	if err := repo.Create(bot); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := repo.Delete(bot.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if _, err := repo.GetByID(bot.ID); !errors.Is(err, ErrNotFound) {
		t.Error("chatbot should be gone after Delete()")
	}
	if err := repo.Delete(bot.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestCount(t *testing.T) {
	repo := NewChatbotRepository(openTestDB(t))

	for _, name := range []string{"a", "b"} {
		if err := repo.Create(&model.Chatbot{Name: name, Location: name}); err != nil {
			t.Fatalf("Create(%s) error: %v", name, err)
		}
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count() unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestMigrateLegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// 构造版本 1 的库：chatbots 表仍使用 foldername 列
	raw, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open raw database: %v", err)
	}
	if err := raw.Exec(`CREATE TABLE chatbots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(255) NOT NULL UNIQUE,
		foldername VARCHAR(255),
		description TEXT,
		index_name VARCHAR(255),
		index_ready BOOLEAN DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	if err := raw.Exec(`INSERT INTO chatbots (name, foldername, created_at, updated_at)
		VALUES ('legacy-bot', 'legacy-folder', DATETIME('now'), DATETIME('now'))`).Error; err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}

	// 启动迁移应把 foldername 改名为 location 并保留数据
	db, err := NewDB(&config.Config{Database: config.DatabaseConfig{Path: path}})
	if err != nil {
		t.Fatalf("NewDB() migration error: %v", err)
	}

	repo := NewChatbotRepository(db)
	bot, err := repo.GetByName("legacy-bot")
	if err != nil {
		t.Fatalf("GetByName() after migration error: %v", err)
	}
	if bot.Location != "legacy-folder" {
		t.Errorf("Location = %s, want legacy-folder", bot.Location)
	}

	var info schemaInfo
	if err := db.First(&info).Error; err != nil {
		t.Fatalf("failed to read schema info: %v", err)
	}
	if info.Version != schemaVersion {
		t.Errorf("schema version = %d, want %d", info.Version, schemaVersion)
	}
}
