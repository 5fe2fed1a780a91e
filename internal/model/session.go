package model

import (
	"sync"
	"time"
)

// MessageConn 会话使用的连接（*websocket.Conn 满足该接口）
type MessageConn interface {
	WriteJSON(v any) error
	Close() error
}

// TutorSession 辅导会话：一条 WebSocket 连接 + 对话状态
type TutorSession struct {
	UserID        string
	SessionID     string
	ClientIP      string
	Conn          MessageConn
	Chat          *ChatSession
	LastHeartbeat time.Time
	MissedBeats   int
	mu            sync.RWMutex // 保护心跳字段
	writeMu       sync.Mutex   // 连接写入不能并发
}

// UpdateHeartbeat 更新心跳时间
func (s *TutorSession) UpdateHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeartbeat = time.Now()
	s.MissedBeats = 0
}

// SinceHeartbeat 距上次心跳的时间
func (s *TutorSession) SinceHeartbeat(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.LastHeartbeat)
}

// IncrementMissedBeats 增加丢失心跳次数
func (s *TutorSession) IncrementMissedBeats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MissedBeats++
	return s.MissedBeats
}

// ShouldBeCleaned 判断是否应该清理
func (s *TutorSession) ShouldBeCleaned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MissedBeats >= 3
}

// WriteMessage 向连接写入消息（线程安全）
func (s *TutorSession) WriteMessage(message any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.Conn.WriteJSON(message)
}

// Close 关闭连接
func (s *TutorSession) Close() error {
	return s.Conn.Close()
}
