package client

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient 兼容 OpenAI Chat Completions 的客户端，附件只支持图片
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient 创建 OpenAI 客户端，baseURL 为空时使用官方地址
func NewOpenAIClient(apiKey, model, baseURL string, logger *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// rawSchema 让 map 形式的 schema 满足 json.Marshaler
type rawSchema map[string]any

func (s rawSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

// Name 提供方名称
func (c *OpenAIClient) Name() string { return "openai" }

// Generate 调用 Chat Completions 接口
func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	content := make([]openai.ChatMessagePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Media == nil {
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
			continue
		}
		if !p.Media.IsImage() {
			return nil, apperr.NewInput("documents", "openai 只支持图片附件，不支持 "+p.Media.MIMEType)
		}
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    p.Media.String(),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: content,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	if req.Schema != nil {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: rawSchema(req.Schema),
				Strict: false,
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		err = c.wrapError(err)
		c.logger.Warn("OpenAI 请求失败",
			zap.String("model", c.model),
			zap.Error(err))
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &apperr.EmptyResponseError{Provider: c.Name(), Reason: "no choices"}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		c.logger.Warn("OpenAI 内容被过滤",
			zap.String("model", resp.Model),
			zap.String("id", resp.ID))
		return nil, &apperr.EmptyResponseError{Provider: c.Name(), Reason: "blocked: content_filter"}
	}

	c.logger.Debug("OpenAI 响应",
		zap.String("model", resp.Model),
		zap.String("id", resp.ID),
		zap.String("finishReason", string(choice.FinishReason)))
	return &GenerateResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}, nil
}

func (c *OpenAIClient) wrapError(err error) error {
	invErr := &apperr.ModelInvocationError{Provider: c.Name(), Err: err}

	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
	)
	switch {
	case errors.As(err, &apiErr):
		invErr.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		invErr.StatusCode = reqErr.HTTPStatusCode
	}
	return invErr
}
