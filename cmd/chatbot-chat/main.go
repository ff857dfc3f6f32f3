package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/chatbot-admin/internal/config"
	"github.com/ashwinyue/chatbot-admin/internal/handler"
	"github.com/ashwinyue/chatbot-admin/internal/middleware"
	"github.com/ashwinyue/chatbot-admin/internal/repository"
	"github.com/ashwinyue/chatbot-admin/internal/service"
)

// 聊天子进程：由管理控制台按机器人启动，
// 机器人身份通过环境变量注入。
func main() {
	_ = godotenv.Load()

	botName := os.Getenv("CHATBOT_NAME")
	indexName := os.Getenv("CHATBOT_INDEX_NAME")
	if botName == "" || indexName == "" {
		log.Fatal("CHATBOT_NAME and CHATBOT_INDEX_NAME are required")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	port := cfg.Chat.PortStart
	if p := os.Getenv("CHATBOT_CHAT_PORT"); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			log.Fatalf("Invalid CHATBOT_CHAT_PORT: %v", err)
		}
	}

	gin.SetMode(cfg.Server.Mode)

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	repos := repository.NewRepositories(db)
	services, err := service.NewServices(repos, cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to init services: %v", err)
	}

	chatHandler := handler.NewChatHandler(services.Engine, services.SessionMgr, botName, indexName)

	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "chatbot": botName})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/info", chatHandler.Info)
		v1.POST("/chat", chatHandler.Chat)
		v1.GET("/history", chatHandler.History)
		v1.DELETE("/history", chatHandler.ClearHistory)
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Chat server for %s starting on %s (index: %s)", botName, srv.Addr, indexName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chat server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Chat server exited")
}
