package handler

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/chatbot-admin/internal/model"
	"github.com/ashwinyue/chatbot-admin/internal/service/answer"
	"github.com/ashwinyue/chatbot-admin/internal/service/session"
)

// ChatHandler 单机器人聊天处理器，由聊天子进程使用
type ChatHandler struct {
	engine     *answer.Engine
	sessionMgr *session.Manager
	botName    string
	indexName  string
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(engine *answer.Engine, sessionMgr *session.Manager, botName, indexName string) *ChatHandler {
	return &ChatHandler{
		engine:     engine,
		sessionMgr: sessionMgr,
		botName:    botName,
		indexName:  indexName,
	}
}

// chatRequest 提问请求体
type chatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

// Chat 提问并返回答案，问答双方都写入会话历史
func (h *ChatHandler) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	h.sessionMgr.Append(ctx, req.SessionID, model.RoleUser, req.Question, nil)

	// 空索引预检：无文档时直接返回提示，不发起检索
	if count, err := h.engine.DocumentCount(ctx, h.indexName); err != nil {
		log.Printf("Warning: failed to count documents in %s: %v", h.indexName, err)
	} else if count == 0 {
		empty := &answer.Answer{Text: "📭 아직 등록된 문서가 없습니다. 관리자에게 문의해주세요.", Sources: []string{}}
		turn := h.sessionMgr.Append(ctx, req.SessionID, model.RoleAssistant, empty.Text, empty.Sources)
		Success(c, gin.H{"answer": empty, "turn": turn})
		return
	}

	ans := h.engine.Ask(ctx, h.indexName, req.Question)
	turn := h.sessionMgr.Append(ctx, req.SessionID, model.RoleAssistant, ans.Text, ans.Sources)

	Success(c, gin.H{"answer": ans, "turn": turn})
}

// History 获取会话历史
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		BadRequest(c, "session_id is required")
		return
	}
	Success(c, h.sessionMgr.History(c.Request.Context(), sessionID))
}

// ClearHistory 清空会话历史
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		BadRequest(c, "session_id is required")
		return
	}
	h.sessionMgr.Clear(c.Request.Context(), sessionID)
	Success(c, gin.H{"message": "会话已清空"})
}

// Info 机器人信息
func (h *ChatHandler) Info(c *gin.Context) {
	Success(c, gin.H{
		"name":       h.botName,
		"index_name": h.indexName,
	})
}
