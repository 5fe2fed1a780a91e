package model

import "time"

// 辅导会话消息类型
const (
	MessageAttach     = "ATTACH"      // 追加学习资料
	MessageChat       = "CHAT"        // 用户提问
	MessageHeartbeat  = "HEARTBEAT"   // 心跳
	MessageReset      = "RESET"       // 清空对话
	MessageSession    = "SESSION"     // 连接建立后下发会话信息
	MessageAIResponse = "AI_RESPONSE" // 助手回复
	MessageAck        = "ACK"         // 确认
	MessageError      = "ERROR"
)

// TutorMessage WebSocket 消息
type TutorMessage struct {
	MessageID string    `json:"messageId"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Documents []string  `json:"documents,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Turns     int       `json:"turns,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError 错误响应体
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
}

// ScoreQuizRequest 测验评分请求
type ScoreQuizRequest struct {
	Questions []QuizQuestion `json:"questions" binding:"required,min=1"`
	Answers   []string       `json:"answers"`
}
