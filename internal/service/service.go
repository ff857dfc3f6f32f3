// Package service 服务集合的装配
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/chatbot-admin/internal/config"
	"github.com/ashwinyue/chatbot-admin/internal/repository"
	"github.com/ashwinyue/chatbot-admin/internal/service/answer"
	"github.com/ashwinyue/chatbot-admin/internal/service/chatbot"
	"github.com/ashwinyue/chatbot-admin/internal/service/indexer"
	"github.com/ashwinyue/chatbot-admin/internal/service/launcher"
	"github.com/ashwinyue/chatbot-admin/internal/service/session"
	"github.com/ashwinyue/chatbot-admin/internal/service/storage"
)

// 答案生成参数
const (
	answerTemperature = float32(0.2)
	answerMaxTokens   = 1500
)

// Services 服务集合
type Services struct {
	Chatbot     *chatbot.Service
	Storage     *storage.Service
	Provisioner *indexer.Provisioner
	Engine      *answer.Engine
	SessionMgr  *session.Manager
	Launcher    *launcher.Launcher
	Config      *config.Config
}

// NewServices 创建所有服务。外部依赖（存储、搜索、模型、Redis）
// 未配置时对应能力降级，进程照常启动。
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	store, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}
	if store.Configured() {
		if err := store.EnsureBucket(ctx); err != nil {
			log.Printf("Warning: failed to ensure bucket: %v", err)
		}
	} else {
		log.Printf("Warning: object storage not configured, document operations disabled")
	}

	esClient := newESClient(cfg)
	provisioner := indexer.NewProvisioner(esClient, store)

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		log.Printf("Warning: failed to create chat model: %v", err)
	}
	engine := answer.NewEngine(answer.NewESSearcher(esClient), chatModel)

	return &Services{
		Chatbot:     chatbot.NewService(repo.Chatbot, store, provisioner),
		Storage:     store,
		Provisioner: provisioner,
		Engine:      engine,
		SessionMgr:  session.NewManager(redisClient),
		Launcher:    launcher.New(cfg),
		Config:      cfg,
	}, nil
}

// newESClient 创建 ES 客户端，未配置时返回 nil
func newESClient(cfg *config.Config) *elasticsearch.Client {
	if cfg.Elastic.Host == "" {
		log.Printf("Warning: elasticsearch host not configured")
		return nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		log.Printf("Warning: failed to create es client: %v", err)
		return nil
	}
	return client
}

// newChatModel 创建答案生成用的 ChatModel
func newChatModel(ctx context.Context, cfg *config.Config) (ecomodel.ChatModel, error) {
	aiCfg := cfg.AI

	if aiCfg.APIKey == "" {
		return nil, fmt.Errorf("ai api_key is required")
	}

	modelName := aiCfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := answerTemperature
	maxTokens := answerMaxTokens

	modelCfg := &openai.ChatModelConfig{
		APIKey:      aiCfg.APIKey,
		BaseURL:     aiCfg.BaseURL,
		Model:       modelName,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if aiCfg.Timeout > 0 {
		modelCfg.Timeout = time.Duration(aiCfg.Timeout) * time.Second
	}
	if aiCfg.Deployment != "" {
		// Azure 兼容端点按部署名路由
		modelCfg.ByAzure = true
		modelCfg.Model = aiCfg.Deployment
	}

	return openai.NewChatModel(ctx, modelCfg)
}
