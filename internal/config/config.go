package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 各流程名称
const (
	FlowPredictExam      = "predict-exam"
	FlowGenerateQuiz     = "generate-quiz"
	FlowChat             = "chat"
	FlowExtractQuestions = "extract-questions"
	FlowAnalyzePapers    = "analyze-papers"
)

// Config 应用配置
type Config struct {
	Server ServerConfig          `yaml:"server"`
	Redis  RedisConfig           `yaml:"redis"`
	Model  ModelConfig           `yaml:"model"`
	Flows  map[string]FlowConfig `yaml:"flows"`
	Limits LimitsConfig          `yaml:"limits"`
	Auth   AuthConfig            `yaml:"auth"`
	CORS   CORSConfig            `yaml:"cors"`
	Log    LogConfig             `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

// RedisConfig Redis 配置（分析结果存储）
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// ModelConfig 模型配置，进程启动时显式构造客户端
type ModelConfig struct {
	Provider       string  `yaml:"provider"` // gemini, openai
	APIKey         string  `yaml:"apiKey"`
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"baseURL"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"` // 0 表示使用客户端默认值
}

// FlowConfig 单个流程的配置
type FlowConfig struct {
	Retries int `yaml:"retries"`
}

// LimitsConfig 调用方附件限制
type LimitsConfig struct {
	MaxFileBytes   int64 `yaml:"maxFileBytes"`
	MaxAttachments int   `yaml:"maxAttachments"`
}

// AuthConfig 身份解析配置
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// LoadConfig 加载配置文件，支持 ${ENV} 形式的环境变量
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析配置内容
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "neox-api"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "neox"
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "gemini"
	}
	if c.Model.Model == "" {
		switch c.Model.Provider {
		case "openai":
			c.Model.Model = "gpt-4o-mini"
		default:
			c.Model.Model = "gemini-2.0-flash"
		}
	}
	if c.Limits.MaxFileBytes == 0 {
		c.Limits.MaxFileBytes = 10 << 20
	}
	if c.Limits.MaxAttachments == 0 {
		c.Limits.MaxAttachments = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Flows == nil {
		c.Flows = make(map[string]FlowConfig)
	}
	// 预测、出题、提取默认重试 2 次
	for _, name := range []string{FlowPredictExam, FlowGenerateQuiz, FlowExtractQuestions} {
		if _, ok := c.Flows[name]; !ok {
			c.Flows[name] = FlowConfig{Retries: 2}
		}
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("不支持的模型提供方: %s", c.Model.Provider)
	}
	if strings.TrimSpace(c.Model.APIKey) == "" {
		return fmt.Errorf("model.apiKey 不能为空")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature 必须在 0-2 之间: %v", c.Model.Temperature)
	}
	for name, fc := range c.Flows {
		if fc.Retries < 0 || fc.Retries > 5 {
			return fmt.Errorf("flows.%s.retries 必须在 0-5 之间: %d", name, fc.Retries)
		}
	}
	if c.Limits.MaxAttachments < 0 || c.Limits.MaxFileBytes < 0 {
		return fmt.Errorf("limits 不能为负数")
	}
	return nil
}

// Retries 获取流程的重试次数
func (c *Config) Retries(flow string) int {
	return c.Flows[flow].Retries
}
