// Package router 路由装配
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/chatbot-admin/internal/handler"
	"github.com/ashwinyue/chatbot-admin/internal/middleware"
	"github.com/ashwinyue/chatbot-admin/internal/service"
)

// SetupRouter 设置管理控制台路由
func SetupRouter(svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	chatbotHandler := handler.NewChatbotHandler(svc)
	systemHandler := handler.NewSystemHandler(svc)

	// 健康检查
	r.GET("/health", systemHandler.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Chatbot 机器人目录
		bots := v1.Group("/chatbots")
		{
			bots.POST("", chatbotHandler.Create)
			bots.GET("", chatbotHandler.List)
			bots.GET("/running", chatbotHandler.Running)
			bots.GET("/:id", chatbotHandler.Get)
			bots.DELETE("/:id", chatbotHandler.Delete)
			bots.PUT("/:id/location", chatbotHandler.UpdateLocation)
			bots.POST("/:id/documents", chatbotHandler.Upload)
			bots.GET("/:id/documents", chatbotHandler.ListDocuments)
			bots.GET("/:id/documents/:name", chatbotHandler.GetDocument)
			bots.DELETE("/:id/documents/:name", chatbotHandler.DeleteDocument)
			bots.POST("/:id/index", chatbotHandler.RefreshIndex)
			bots.POST("/:id/chat", chatbotHandler.Ask)
			bots.GET("/:id/history", chatbotHandler.History)
			bots.DELETE("/:id/history", chatbotHandler.ClearHistory)
			bots.POST("/:id/launch", chatbotHandler.Launch)
			bots.POST("/:id/stop", chatbotHandler.Stop)
		}

		// System 系统状态
		system := v1.Group("/system")
		{
			system.GET("/config", systemHandler.ConfigStatus)
			system.GET("/storage", systemHandler.StorageOverview)
		}
	}

	return r
}
