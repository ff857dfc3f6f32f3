// Package session 会话历史管理：内存为主，Redis 可选持久化
package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/chatbot-admin/internal/model"
)

const (
	// 会话在 Redis 中的过期时间
	sessionTTL = 24 * time.Hour
	// Redis key 前缀
	sessionKeyPrefix = "chat:session:"
)

// Manager 会话管理器。不同会话 ID 的历史相互隔离；
// Redis 不可用时降级为纯内存。
type Manager struct {
	mu     sync.RWMutex
	memory map[string][]model.ChatTurn
	redis  *redis.Client
}

// NewManager 创建会话管理器，redisClient 可为 nil
func NewManager(redisClient *redis.Client) *Manager {
	return &Manager{
		memory: make(map[string][]model.ChatTurn),
		redis:  redisClient,
	}
}

// Append 追加一轮消息并返回消息 ID
func (m *Manager) Append(ctx context.Context, sessionID, role, content string, sources []string) model.ChatTurn {
	turn := model.ChatTurn{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.memory[sessionID] = append(m.memory[sessionID], turn)
	turns := append([]model.ChatTurn{}, m.memory[sessionID]...)
	m.mu.Unlock()

	if m.redis != nil {
		if err := m.saveToRedis(ctx, sessionID, turns); err != nil {
			log.Printf("Warning: failed to save session to redis: %v", err)
		}
	}

	return turn
}

// History 获取会话历史，内存缺失时尝试从 Redis 恢复
func (m *Manager) History(ctx context.Context, sessionID string) []model.ChatTurn {
	m.mu.RLock()
	turns, ok := m.memory[sessionID]
	m.mu.RUnlock()

	if !ok && m.redis != nil {
		if loaded := m.loadFromRedis(ctx, sessionID); loaded != nil {
			m.mu.Lock()
			m.memory[sessionID] = loaded
			m.mu.Unlock()
			turns = loaded
		}
	}

	return append([]model.ChatTurn{}, turns...)
}

// Clear 清空会话历史
func (m *Manager) Clear(ctx context.Context, sessionID string) {
	m.mu.Lock()
	delete(m.memory, sessionID)
	m.mu.Unlock()

	if m.redis != nil {
		if err := m.redis.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
			log.Printf("Warning: failed to delete session from redis: %v", err)
		}
	}
}

// loadFromRedis 从 Redis 加载会话历史
func (m *Manager) loadFromRedis(ctx context.Context, sessionID string) []model.ChatTurn {
	data, err := m.redis.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return nil
	}

	var turns []model.ChatTurn
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		return nil
	}
	return turns
}

// saveToRedis 保存会话历史到 Redis
func (m *Manager) saveToRedis(ctx context.Context, sessionID string, turns []model.ChatTurn) error {
	data, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return m.redis.Set(ctx, sessionKeyPrefix+sessionID, data, sessionTTL).Err()
}
