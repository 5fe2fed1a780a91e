package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eschoolbooks/neox-go/internal/client"
	"github.com/eschoolbooks/neox-go/internal/config"
	"github.com/eschoolbooks/neox-go/internal/flow"
	"github.com/eschoolbooks/neox-go/internal/handler"
	"github.com/eschoolbooks/neox-go/internal/metrics"
	"github.com/eschoolbooks/neox-go/internal/service"
	"github.com/eschoolbooks/neox-go/internal/store"
	"github.com/eschoolbooks/neox-go/pkg/logger"
	redisclient "github.com/eschoolbooks/neox-go/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/api.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("neox-api 服务启动中...",
		zap.String("provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.Model))

	m := metrics.New(nil)

	// 初始化模型客户端
	provider, err := client.NewProvider(cfg.Model, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化模型提供方失败", zap.Error(err))
	}
	modelClient := client.NewModelClient(provider, cfg.Model.Temperature, zapLogger)

	flows, err := flow.New(modelClient, cfg, zapLogger, flow.WithObserver(m))
	if err != nil {
		zapLogger.Fatal("注册流程失败", zap.Error(err))
	}

	// 历史记录存储
	var resultStore store.ResultStore
	if cfg.Redis.Enabled {
		rdb, err := redisclient.NewRedisClient(cfg.Redis)
		if err != nil {
			zapLogger.Fatal("连接 Redis 失败", zap.Error(err))
		}
		defer rdb.Close()
		resultStore = store.NewRedisStore(rdb, cfg.Redis.KeyPrefix, zapLogger)
		zapLogger.Info("历史记录使用 Redis 存储",
			zap.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))
	} else {
		resultStore = store.NewMemoryStore(zapLogger)
		zapLogger.Warn("未启用 Redis，历史记录仅保存在内存中")
	}

	// 初始化服务
	analysisService := service.NewAnalysisService(flows, resultStore, m, zapLogger)
	sessionService := service.NewSessionService(m, zapLogger)
	defer sessionService.Close()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handler.NewRouter(cfg, analysisService, sessionService, m, zapLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		zapLogger.Info("neox-api 服务启动成功",
			zap.Int("port", cfg.Server.Port),
			zap.Int("flows", len(analysisService.ListFlows())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	zapLogger.Info("服务关闭中...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("服务关闭失败", zap.Error(err))
	}
	zapLogger.Info("服务已停止")
}
