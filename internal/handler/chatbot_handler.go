// Package handler 提供管理控制台的 HTTP 处理器
package handler

import (
	"fmt"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/chatbot-admin/internal/model"
	"github.com/ashwinyue/chatbot-admin/internal/service"
	"github.com/ashwinyue/chatbot-admin/internal/service/answer"
	"github.com/ashwinyue/chatbot-admin/internal/service/storage"
)

// ChatbotHandler 机器人管理处理器
type ChatbotHandler struct {
	svc *service.Services
}

// NewChatbotHandler 创建机器人管理处理器
func NewChatbotHandler(svc *service.Services) *ChatbotHandler {
	return &ChatbotHandler{svc: svc}
}

// createRequest 注册请求体
type createRequest struct {
	Name        string `json:"name" binding:"required"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Create 注册机器人
// @Summary      注册机器人
// @Description  注册新的聊天机器人，位置为空时由名称派生
// @Tags         机器人管理
// @Accept       json
// @Produce      json
// @Param        request  body      createRequest  true  "机器人信息"
// @Success      201      {object}  SuccessResponse
// @Router       /api/v1/chatbots [post]
func (h *ChatbotHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	bot, err := h.svc.Chatbot.Register(req.Name, req.Location, req.Description)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, bot)
}

// List 列出机器人
// @Summary      列出机器人
// @Description  按注册时间倒序返回全部机器人
// @Tags         机器人管理
// @Produce      json
// @Success      200  {object}  SuccessResponse
// @Router       /api/v1/chatbots [get]
func (h *ChatbotHandler) List(c *gin.Context) {
	bots, err := h.svc.Chatbot.List()
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, bots)
}

// Get 获取机器人详情
// @Summary      获取机器人
// @Tags         机器人管理
// @Produce      json
// @Param        id   path      int  true  "机器人 ID"
// @Success      200  {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id} [get]
func (h *ChatbotHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	bot, err := h.svc.Chatbot.Get(id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, bot)
}

// Delete 注销机器人
// @Summary      注销机器人
// @Description  从目录移除机器人，文档与索引保留
// @Tags         机器人管理
// @Produce      json
// @Param        id   path      int  true  "机器人 ID"
// @Success      200  {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id} [delete]
func (h *ChatbotHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Chatbot.Delete(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"message": "机器人已注销"})
}

// locationRequest 位置变更请求体
type locationRequest struct {
	Location string `json:"location" binding:"required"`
}

// UpdateLocation 更改存储位置
// @Summary      更改存储位置
// @Description  更改机器人的存储位置，现有索引随之失效
// @Tags         机器人管理
// @Accept       json
// @Produce      json
// @Param        id       path      int              true  "机器人 ID"
// @Param        request  body      locationRequest  true  "新位置"
// @Success      200      {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/location [put]
func (h *ChatbotHandler) UpdateLocation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	bot, err := h.svc.Chatbot.UpdateLocation(c.Request.Context(), id, req.Location)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, bot)
}

// Upload 上传文档
// @Summary      上传文档
// @Description  批量上传文档，成功后现有索引标记为过期
// @Tags         文档管理
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      int   true  "机器人 ID"
// @Param        files  formData  file  true  "文档文件"
// @Success      200    {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/documents [post]
func (h *ChatbotHandler) Upload(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		BadRequest(c, "files is required")
		return
	}

	files := make([]storage.UploadFile, 0, len(fileHeaders))
	opened := make([]multipart.File, 0, len(fileHeaders))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		opened = append(opened, f)
		files = append(files, storage.UploadFile{
			Name:   fh.Filename,
			Reader: f,
			Size:   fh.Size,
		})
	}

	uploaded, results, err := h.svc.Chatbot.UploadDocuments(c.Request.Context(), id, files)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{
		"uploaded": uploaded,
		"total":    len(files),
		"results":  results,
	})
}

// documentView 带可读大小的文档信息
type documentView struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	SizeText     string `json:"size_text"`
	LastModified string `json:"last_modified"`
}

// ListDocuments 列出机器人的文档
// @Summary      列出文档
// @Tags         文档管理
// @Produce      json
// @Param        id   path      int  true  "机器人 ID"
// @Success      200  {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/documents [get]
func (h *ChatbotHandler) ListDocuments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	files, err := h.svc.Chatbot.ListDocuments(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}

	var totalSize int64
	views := make([]documentView, 0, len(files))
	for _, f := range files {
		totalSize += f.Size
		views = append(views, documentView{
			Name:         f.Name,
			Size:         f.Size,
			SizeText:     storage.FormatFileSize(f.Size),
			LastModified: f.LastModified.Format("2006-01-02 15:04:05"),
		})
	}

	Success(c, gin.H{
		"documents":       views,
		"count":           len(views),
		"total_size":      totalSize,
		"total_size_text": storage.FormatFileSize(totalSize),
	})
}

// GetDocument 获取单个文档的元信息
// @Summary      获取文档
// @Tags         文档管理
// @Produce      json
// @Param        id    path      int     true  "机器人 ID"
// @Param        name  path      string  true  "文件名"
// @Success      200   {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/documents/{name} [get]
func (h *ChatbotHandler) GetDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if name == "" {
		BadRequest(c, "name is required")
		return
	}

	info, err := h.svc.Chatbot.GetDocument(c.Request.Context(), id, name)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, documentView{
		Name:         info.Name,
		Size:         info.Size,
		SizeText:     storage.FormatFileSize(info.Size),
		LastModified: info.LastModified.Format("2006-01-02 15:04:05"),
	})
}

// DeleteDocument 删除单个文档
// @Summary      删除文档
// @Tags         文档管理
// @Produce      json
// @Param        id    path      int     true  "机器人 ID"
// @Param        name  path      string  true  "文件名"
// @Success      200   {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/documents/{name} [delete]
func (h *ChatbotHandler) DeleteDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if name == "" {
		BadRequest(c, "name is required")
		return
	}

	if err := h.svc.Chatbot.DeleteDocument(c.Request.Context(), id, name); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"message": "文档已删除"})
}

// RefreshIndex 重建搜索索引
// @Summary      重建索引
// @Description  解析机器人的全部文档并重建搜索索引
// @Tags         索引管理
// @Produce      json
// @Param        id   path      int  true  "机器人 ID"
// @Success      200  {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/index [post]
func (h *ChatbotHandler) RefreshIndex(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Chatbot.RefreshIndex(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// Launch 启动聊天子进程
// @Summary      启动聊天
// @Description  为机器人启动独立的聊天服务进程，索引未就绪时拒绝
// @Tags         机器人管理
// @Produce      json
// @Param        id   path      int  true  "机器人 ID"
// @Success      200  {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/launch [post]
func (h *ChatbotHandler) Launch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	bot, err := h.svc.Chatbot.Get(id)
	if err != nil {
		Error(c, err)
		return
	}
	if !bot.IndexReady || bot.IndexName == nil {
		Conflict(c, "index is not ready, refresh the index first")
		return
	}

	result := <-h.svc.Launcher.Launch(c.Request.Context(), bot)
	if result.Err != nil {
		Error(c, result.Err)
		return
	}
	Success(c, result.Instance)
}

// askRequest 控制台内嵌聊天的提问请求体
type askRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

// botSessionKey 会话按机器人隔离
func botSessionKey(id uint, sessionID string) string {
	return fmt.Sprintf("bot:%d:%s", id, sessionID)
}

// Ask 控制台内嵌聊天：不经子进程直接问答
// @Summary      提问
// @Description  对指定机器人提问，索引未就绪时拒绝
// @Tags         聊天
// @Accept       json
// @Produce      json
// @Param        id       path      int         true  "机器人 ID"
// @Param        request  body      askRequest  true  "提问内容"
// @Success      200      {object}  SuccessResponse
// @Router       /api/v1/chatbots/{id}/chat [post]
func (h *ChatbotHandler) Ask(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	bot, err := h.svc.Chatbot.Get(id)
	if err != nil {
		Error(c, err)
		return
	}
	if !bot.IndexReady || bot.IndexName == nil {
		Conflict(c, "index is not ready, refresh the index first")
		return
	}

	key := botSessionKey(id, req.SessionID)
	h.svc.SessionMgr.Append(ctx, key, model.RoleUser, req.Question, nil)

	// 空索引预检：无文档时直接返回提示，不发起检索
	if count, err := h.svc.Engine.DocumentCount(ctx, *bot.IndexName); err != nil {
		log.Printf("Warning: failed to count documents in %s: %v", *bot.IndexName, err)
	} else if count == 0 {
		empty := &answer.Answer{Text: "📭 아직 등록된 문서가 없습니다. 관리자에게 문의해주세요.", Sources: []string{}}
		turn := h.svc.SessionMgr.Append(ctx, key, model.RoleAssistant, empty.Text, empty.Sources)
		Success(c, gin.H{"answer": empty, "turn": turn})
		return
	}

	ans := h.svc.Engine.Ask(ctx, *bot.IndexName, req.Question)
	turn := h.svc.SessionMgr.Append(ctx, key, model.RoleAssistant, ans.Text, ans.Sources)

	Success(c, gin.H{"answer": ans, "turn": turn})
}

// History 获取内嵌聊天的会话历史
func (h *ChatbotHandler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		BadRequest(c, "session_id is required")
		return
	}
	Success(c, h.svc.SessionMgr.History(c.Request.Context(), botSessionKey(id, sessionID)))
}

// ClearHistory 清空内嵌聊天的会话历史
func (h *ChatbotHandler) ClearHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		BadRequest(c, "session_id is required")
		return
	}
	h.svc.SessionMgr.Clear(c.Request.Context(), botSessionKey(id, sessionID))
	Success(c, gin.H{"message": "会话已清空"})
}

// Running 列出运行中的聊天实例
func (h *ChatbotHandler) Running(c *gin.Context) {
	Success(c, h.svc.Launcher.Running())
}

// Stop 停止聊天子进程
func (h *ChatbotHandler) Stop(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	bot, err := h.svc.Chatbot.Get(id)
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.svc.Launcher.Stop(bot.Name); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"message": "聊天进程已停止"})
}

// parseID 解析路径中的机器人 ID
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
