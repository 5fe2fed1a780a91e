package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 跨域中间件，origins 为空时允许所有来源（不带凭证）
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Authorization", "Content-Type", "X-User-ID", "X-Request-ID",
			"Upgrade", "Connection", "Sec-WebSocket-Key", "Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions", "Sec-WebSocket-Protocol",
		},
		ExposeHeaders:   []string{"X-Request-ID"},
		AllowWebSockets: true,
		MaxAge:          time.Hour,
	}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
