package middleware

import (
	"time"

	"github.com/eschoolbooks/neox-go/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID 为每个请求分配 ID，优先沿用调用方传入的值
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 当前请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger 访问日志，m 不为空时同时记录请求指标
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if m != nil {
			m.ObserveHTTP(route, status)
		}
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("requestId", GetRequestID(c)),
		}
		if uid := GetUserID(c); uid != "" {
			fields = append(fields, zap.String("userId", uid))
		}

		switch {
		case status >= 500:
			logger.Error("HTTP 请求", fields...)
		case status >= 400:
			logger.Warn("HTTP 请求", fields...)
		default:
			logger.Info("HTTP 请求", fields...)
		}
	}
}
