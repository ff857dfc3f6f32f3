package model

import "time"

// 聊天角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn 一轮对话消息，assistant 消息附带参考文档标签
type ChatTurn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
