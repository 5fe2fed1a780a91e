package handler

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/config"
	"github.com/eschoolbooks/neox-go/internal/middleware"
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/eschoolbooks/neox-go/internal/service"
	"github.com/eschoolbooks/neox-go/pkg/datauri"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 辅导会话
type WebSocketHandler struct {
	sessions *service.SessionService
	analysis *service.AnalysisService
	limits   config.LimitsConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器，origins 为空时不校验来源
func NewWebSocketHandler(sessions *service.SessionService, analysis *service.AnalysisService, limits config.LimitsConfig, origins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		analysis: analysis,
		limits:   limits,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || slices.Contains(origins, origin)
			},
		},
		logger: logger,
	}
}

// HandleTutor WebSocket 连接入口
func (h *WebSocketHandler) HandleTutor(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Error: &model.APIError{Message: "辅导会话需要登录", Type: "unauthorized"},
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	session := h.sessions.RegisterUser(userID, conn, sessionID, c.ClientIP())
	defer h.sessions.RemoveUserBySessionID(sessionID)

	h.logger.Info("WebSocket 连接建立",
		zap.String("userId", userID),
		zap.String("sessionId", sessionID))

	h.send(session, &model.TutorMessage{
		Type:      model.MessageSession,
		SessionID: sessionID,
		Turns:     session.Chat.Len(),
	})

	ctx := c.Request.Context()
	for {
		var msg model.TutorMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Error("WebSocket 读取错误", zap.String("userId", userID), zap.Error(err))
			}
			break
		}
		h.handleMessage(ctx, session, &msg)
	}

	h.logger.Info("WebSocket 连接断开", zap.String("userId", userID), zap.String("sessionId", sessionID))
}

// handleMessage 同一连接上的消息按顺序处理，任何消息都刷新心跳
func (h *WebSocketHandler) handleMessage(ctx context.Context, session *model.TutorSession, msg *model.TutorMessage) {
	if !h.sessions.UpdateHeartbeat(session) {
		h.logger.Debug("会话已被替换，忽略消息",
			zap.String("userId", session.UserID),
			zap.String("sessionId", session.SessionID))
		return
	}

	switch msg.Type {
	case model.MessageAttach:
		if err := h.checkAttach(session, msg.Documents); err != nil {
			h.sendError(session, msg.MessageID, err)
			return
		}
		session.Chat.Attach(msg.Documents...)
		h.send(session, &model.TutorMessage{
			MessageID: msg.MessageID,
			Type:      model.MessageAck,
			Turns:     session.Chat.Len(),
		})

	case model.MessageChat:
		in := session.Chat.NextInput(msg.Content)
		res, err := h.analysis.Chat(ctx, session.UserID, in)
		if err != nil {
			h.sendError(session, msg.MessageID, err)
			return
		}
		reply := res.Data.(*model.ChatReply).Reply
		session.Chat.Record(in.Message, reply)
		h.send(session, &model.TutorMessage{
			MessageID: msg.MessageID,
			Type:      model.MessageAIResponse,
			Content:   reply,
			Turns:     session.Chat.Len(),
		})

	case model.MessageHeartbeat:
		h.logger.Debug("收到心跳", zap.String("userId", session.UserID))

	case model.MessageReset:
		h.sessions.ResetChat(session)
		h.send(session, &model.TutorMessage{MessageID: msg.MessageID, Type: model.MessageAck})

	default:
		h.logger.Warn("未知消息类型",
			zap.String("userId", session.UserID),
			zap.String("type", msg.Type))
		h.sendError(session, msg.MessageID, apperr.NewInput("type", fmt.Sprintf("未知消息类型: %q", msg.Type)))
	}
}

func (h *WebSocketHandler) checkAttach(session *model.TutorSession, documents []string) error {
	if len(documents) == 0 {
		return apperr.NewInput("documents", "至少需要一个附件")
	}
	for i, ref := range documents {
		if _, err := datauri.Parse(ref); err != nil {
			return apperr.NewInput(fmt.Sprintf("documents[%d]", i), err.Error())
		}
	}
	if err := checkAttachments(h.limits, documents); err != nil {
		return err
	}
	if h.limits.MaxAttachments > 0 && len(session.Chat.Documents())+len(documents) > h.limits.MaxAttachments {
		return apperr.NewInput("documents", fmt.Sprintf("会话最多 %d 个附件", h.limits.MaxAttachments))
	}
	return nil
}

func (h *WebSocketHandler) sendError(session *model.TutorSession, replyTo string, err error) {
	_, body := errorBody(err)
	h.send(session, &model.TutorMessage{
		MessageID: replyTo,
		Type:      model.MessageError,
		Error:     body,
	})
}

func (h *WebSocketHandler) send(session *model.TutorSession, msg *model.TutorMessage) {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	msg.Timestamp = time.Now()
	if err := h.sessions.Send(session, msg); err != nil {
		h.logger.Warn("发送消息失败",
			zap.String("userId", session.UserID),
			zap.String("type", msg.Type),
			zap.Error(err))
	}
}
