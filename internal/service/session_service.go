package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/eschoolbooks/neox-go/internal/metrics"
	"github.com/eschoolbooks/neox-go/internal/model"
	"go.uber.org/zap"
)

var (
	ErrUserOffline = fmt.Errorf("用户不在线")
)

const (
	heartbeatInterval = 30 * time.Second
	heartbeatTimeout  = 60 * time.Second
)

// SessionService 辅导会话管理服务，每个用户同时只保留一个连接
type SessionService struct {
	userSessions  map[string]*model.TutorSession // userId -> session
	sessionToUser map[string]string              // sessionId -> userId
	mu            sync.RWMutex                   // 读写锁保护
	metrics       *metrics.Metrics
	logger        *zap.Logger
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewSessionService 创建会话管理服务并启动心跳检测
func NewSessionService(m *metrics.Metrics, logger *zap.Logger) *SessionService {
	s := &SessionService{
		userSessions:  make(map[string]*model.TutorSession),
		sessionToUser: make(map[string]string),
		metrics:       m,
		logger:        logger,
		stop:          make(chan struct{}),
	}

	// 启动心跳检测
	go s.heartbeatChecker(heartbeatInterval)

	return s
}

// RegisterUser 注册用户会话
// 用户重新连接时关闭旧连接，新会话拿到对话历史和学习资料的副本，旧连接上未完成的请求不会写入新会话
func (s *SessionService) RegisterUser(userID string, conn model.MessageConn, sessionID, clientIP string) *model.TutorSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := model.NewChatSession(nil)
	if existing, ok := s.userSessions[userID]; ok {
		s.logger.Info("用户重新连接，关闭旧连接",
			zap.String("userId", userID),
			zap.String("oldSessionId", existing.SessionID))
		_ = existing.Close()
		delete(s.sessionToUser, existing.SessionID)
		chat = existing.Chat.Clone()
	}

	session := &model.TutorSession{
		UserID:        userID,
		SessionID:     sessionID,
		ClientIP:      clientIP,
		Conn:          conn,
		Chat:          chat,
		LastHeartbeat: time.Now(),
	}

	s.userSessions[userID] = session
	s.sessionToUser[sessionID] = userID
	s.updateGauge()

	s.logger.Info("用户会话注册成功",
		zap.String("userId", userID),
		zap.String("sessionId", sessionID),
		zap.Int("turns", chat.Len()))
	return session
}

// Get 获取用户会话
func (s *SessionService) Get(userID string) (*model.TutorSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.userSessions[userID]
	return session, ok
}

// current 判断会话是否仍是该用户的当前连接，调用方持有锁
func (s *SessionService) current(session *model.TutorSession) bool {
	return s.userSessions[session.UserID] == session
}

// Send 向会话发送消息，会话已被替换或移除时返回 ErrUserOffline
func (s *SessionService) Send(session *model.TutorSession, message any) error {
	s.mu.RLock()
	ok := s.current(session)
	s.mu.RUnlock()
	if !ok {
		s.logger.Debug("会话已失效，消息丢弃",
			zap.String("userId", session.UserID),
			zap.String("sessionId", session.SessionID))
		return ErrUserOffline
	}

	if err := session.WriteMessage(message); err != nil {
		s.logger.Error("消息发送失败",
			zap.String("userId", session.UserID),
			zap.Error(err))
		// 异步清理无效连接
		go s.RemoveUserBySessionID(session.SessionID)
		return err
	}
	return nil
}

// UpdateHeartbeat 更新心跳时间，已被替换的会话返回 false
func (s *SessionService) UpdateHeartbeat(session *model.TutorSession) bool {
	s.mu.RLock()
	ok := s.current(session)
	s.mu.RUnlock()
	if !ok {
		return false
	}

	session.UpdateHeartbeat()
	return true
}

// ResetChat 清空会话的对话历史和学习资料
func (s *SessionService) ResetChat(session *model.TutorSession) bool {
	s.mu.RLock()
	ok := s.current(session)
	s.mu.RUnlock()
	if !ok {
		return false
	}
	session.Chat.Reset()
	s.logger.Info("对话已重置", zap.String("userId", session.UserID))
	return true
}

// RemoveUserBySessionID 根据 sessionId 移除会话，已被新连接替换的会话不影响新会话
func (s *SessionService) RemoveUserBySessionID(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID, ok := s.sessionToUser[sessionID]; ok {
		delete(s.userSessions, userID)
		delete(s.sessionToUser, sessionID)
		s.updateGauge()
		s.logger.Info("用户会话已移除",
			zap.String("userId", userID),
			zap.String("sessionId", sessionID))
	}
}

// GetOnlineCount 获取在线用户数
func (s *SessionService) GetOnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.userSessions)
}

// Close 停止心跳检测并关闭所有连接
func (s *SessionService) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)

		s.mu.Lock()
		defer s.mu.Unlock()
		for userID, session := range s.userSessions {
			_ = session.Close()
			delete(s.userSessions, userID)
			delete(s.sessionToUser, session.SessionID)
		}
		s.updateGauge()
	})
}

// updateGauge 调用方持有写锁
func (s *SessionService) updateGauge() {
	if s.metrics != nil {
		s.metrics.TutorSessions.Set(float64(len(s.userSessions)))
	}
}

// heartbeatChecker 心跳检测器
func (s *SessionService) heartbeatChecker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.checkHeartbeats(now)
		}
	}
}

// checkHeartbeats 连续 3 次检测超时的会话被清理
func (s *SessionService) checkHeartbeats(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, session := range s.userSessions {
		if session.SinceHeartbeat(now) <= heartbeatTimeout {
			continue
		}

		missed := session.IncrementMissedBeats()
		if session.ShouldBeCleaned() {
			s.logger.Info("清理无效会话",
				zap.String("userId", userID),
				zap.Int("missedBeats", missed))

			_ = session.Close()
			delete(s.userSessions, userID)
			delete(s.sessionToUser, session.SessionID)
		} else {
			s.logger.Warn("用户心跳丢失",
				zap.String("userId", userID),
				zap.Int("missedBeats", missed))
		}
	}
	s.updateGauge()
}
