package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"go.uber.org/zap"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout       = 120 * time.Second
	maxErrorBody         = 512
)

// GeminiClient Gemini 多模态客户端
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGeminiClient 创建 Gemini 客户端
func NewGeminiClient(apiKey, model string, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// WithBaseURL 指定接口地址（代理或测试服务器）
func (c *GeminiClient) WithBaseURL(baseURL string) *GeminiClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithTimeout 指定单次请求超时
func (c *GeminiClient) WithTimeout(timeout time.Duration) *GeminiClient {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature        *float64       `json:"temperature,omitempty"`
	ResponseMimeType   string         `json:"responseMimeType,omitempty"`
	ResponseJSONSchema map[string]any `json:"responseJsonSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// Name 提供方名称
func (c *GeminiClient) Name() string { return "gemini" }

// Generate 调用 generateContent 接口
func (c *GeminiClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	reqBody := c.buildRequest(req)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &apperr.ModelInvocationError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.ModelInvocationError{Provider: c.Name(), Err: fmt.Errorf("读取响应失败: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Gemini 返回错误状态",
			zap.String("model", c.model),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(body, maxErrorBody)))
		return nil, &apperr.ModelInvocationError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API 返回错误: %s", truncate(body, maxErrorBody)),
		}
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, &apperr.ModelInvocationError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("解析响应失败: %w", err),
		}
	}

	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		c.logger.Warn("Gemini 拒绝了提示词",
			zap.String("model", c.model),
			zap.String("blockReason", gr.PromptFeedback.BlockReason))
		return nil, &apperr.EmptyResponseError{Provider: c.Name(), Reason: "blocked: " + gr.PromptFeedback.BlockReason}
	}
	if len(gr.Candidates) == 0 {
		return nil, &apperr.EmptyResponseError{Provider: c.Name(), Reason: "no candidates"}
	}

	cand := gr.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}

	model := gr.ModelVersion
	if model == "" {
		model = c.model
	}
	c.logger.Debug("Gemini 响应",
		zap.String("model", model),
		zap.String("finishReason", cand.FinishReason),
		zap.Int("candidates", len(gr.Candidates)),
		zap.Int("requestBytes", len(jsonData)))
	return &GenerateResponse{
		Text:         text.String(),
		FinishReason: cand.FinishReason,
		InputTokens:  gr.UsageMetadata.PromptTokenCount,
		OutputTokens: gr.UsageMetadata.CandidatesTokenCount,
		Model:        model,
	}, nil
}

func (c *GeminiClient) buildRequest(req *GenerateRequest) geminiRequest {
	parts := make([]geminiPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Media != nil {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: p.Media.MIMEType,
				Data:     p.Media.Payload,
			}})
			continue
		}
		parts = append(parts, geminiPart{Text: p.Text})
	}

	temperature := req.Temperature
	gr := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{Temperature: &temperature},
	}
	if req.System != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.Schema != nil {
		gr.GenerationConfig.ResponseMimeType = "application/json"
		gr.GenerationConfig.ResponseJSONSchema = req.Schema
	}
	return gr
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
