package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/chatbot-admin/internal/service"
	"github.com/ashwinyue/chatbot-admin/internal/service/storage"
)

// SystemHandler 系统状态处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统状态处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	Success(c, gin.H{"status": "ok"})
}

// ConfigStatus 配置检查清单：外部依赖是否配置齐全，缺失项列表
func (h *SystemHandler) ConfigStatus(c *gin.Context) {
	complete, missing := h.svc.Config.Status()
	Success(c, gin.H{
		"complete": complete,
		"missing":  missing,
	})
}

// StorageOverview 存储总览：bucket 内全部对象与总大小
func (h *SystemHandler) StorageOverview(c *gin.Context) {
	files, err := h.svc.Storage.ListAll(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}

	Success(c, gin.H{
		"objects":         files,
		"count":           len(files),
		"total_size":      totalSize,
		"total_size_text": storage.FormatFileSize(totalSize),
	})
}
