package client

import (
	"fmt"
	"time"

	"github.com/eschoolbooks/neox-go/internal/config"
	"go.uber.org/zap"
)

// NewProvider 按配置创建模型提供方，支持 gemini 和 openai
func NewProvider(cfg config.ModelConfig, logger *zap.Logger) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model.apiKey 未配置")
	}

	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiClient(cfg.APIKey, cfg.Model, logger).
			WithBaseURL(cfg.BaseURL).
			WithTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second), nil

	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, logger), nil

	default:
		return nil, fmt.Errorf("不支持的模型提供方: %s", cfg.Provider)
	}
}
