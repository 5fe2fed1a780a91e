package handler

import (
	"github.com/eschoolbooks/neox-go/internal/config"
	"github.com/eschoolbooks/neox-go/internal/metrics"
	"github.com/eschoolbooks/neox-go/internal/middleware"
	"github.com/eschoolbooks/neox-go/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter 注册 HTTP 与 WebSocket 路由，m 为空时不暴露 /metrics
func NewRouter(cfg *config.Config, analysis *service.AnalysisService, sessions *service.SessionService, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	apiHandler := NewAPIHandler(analysis, sessions, cfg.Limits, logger)
	wsHandler := NewWebSocketHandler(sessions, analysis, cfg.Limits, cfg.CORS.AllowOrigins, logger)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger, m),
		middleware.CORS(cfg.CORS.AllowOrigins),
		middleware.Identity(cfg.Auth.JWTSecret),
	)

	r.GET("/ws/tutor", wsHandler.HandleTutor)

	api := r.Group("/api")
	{
		api.POST("/predict-exam", apiHandler.PredictExam)
		api.POST("/generate-quiz", apiHandler.GenerateQuiz)
		api.POST("/chat", apiHandler.Chat)
		api.POST("/extract-questions", apiHandler.ExtractQuestions)
		api.POST("/analyze-papers", apiHandler.AnalyzePapers)
		api.POST("/quiz/score", apiHandler.ScoreQuiz)

		api.GET("/flows", apiHandler.ListFlows)
		api.POST("/flows/:name", apiHandler.ExecuteFlow)

		api.GET("/records", apiHandler.ListRecords)
		api.GET("/records/:id", apiHandler.GetRecord)

		api.GET("/health", func(c *gin.Context) {
			c.Set("service_name", cfg.Server.Name)
			apiHandler.Health(c)
		})
	}

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	return r
}
