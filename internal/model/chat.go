package model

import (
	"strings"
	"sync"
)

// Role 对话角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn 一轮对话中的一条消息
type ChatTurn struct {
	Role    Role   `json:"role" validate:"oneof=user assistant" jsonschema:"enum=user,enum=assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatInput 辅导对话请求，历史由调用方完整传入
type ChatInput struct {
	Message   string     `json:"message" validate:"required"`
	History   []ChatTurn `json:"history,omitempty" validate:"dive"`
	Documents []string   `json:"documents,omitempty" validate:"dive,docref"`
}

// ChatReply 辅导回复
type ChatReply struct {
	Reply string `json:"reply"`
}

// ChatSession 调用方持有的会话：附件 + 只追加的对话历史
// 不限制历史长度
type ChatSession struct {
	mu        sync.RWMutex
	documents []string
	turns     []ChatTurn
}

// NewChatSession 创建会话
func NewChatSession(documents []string) *ChatSession {
	return &ChatSession{documents: append([]string(nil), documents...)}
}

// Clone 复制附件和历史，副本与原会话互不影响
func (s *ChatSession) Clone() *ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &ChatSession{
		documents: append([]string(nil), s.documents...),
		turns:     append([]ChatTurn(nil), s.turns...),
	}
}

// Attach 追加附件
func (s *ChatSession) Attach(documents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, documents...)
}

// Append 追加一条消息
func (s *ChatSession) Append(turn ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// Turns 历史副本
func (s *ChatSession) Turns() []ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatTurn(nil), s.turns...)
}

// Documents 附件副本
func (s *ChatSession) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.documents...)
}

// Len 历史条数
func (s *ChatSession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// NextInput 以当前历史构造下一次请求（不修改会话）
func (s *ChatSession) NextInput(message string) ChatInput {
	return ChatInput{
		Message:   strings.TrimSpace(message),
		History:   s.Turns(),
		Documents: s.Documents(),
	}
}

// Record 请求成功后依次追加用户消息和助手回复
func (s *ChatSession) Record(message, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns,
		ChatTurn{Role: RoleUser, Content: message},
		ChatTurn{Role: RoleAssistant, Content: reply},
	)
}

// Reset 清空历史和附件
func (s *ChatSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = nil
	s.turns = nil
}
