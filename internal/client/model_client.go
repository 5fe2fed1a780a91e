package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/prompt"
	"github.com/eschoolbooks/neox-go/internal/schema"
	"go.uber.org/zap"
)

// ModelClient 在 Provider 之上负责声明输出结构、解析校验和错误归类
type ModelClient struct {
	provider    Provider
	temperature float64
	logger      *zap.Logger
}

// NewModelClient 创建模型客户端
func NewModelClient(provider Provider, temperature float64, logger *zap.Logger) *ModelClient {
	return &ModelClient{
		provider:    provider,
		temperature: temperature,
		logger:      logger,
	}
}

// GenerateJSON 以 out 的类型声明输出结构，返回结果解析并校验后写入 out
func (c *ModelClient) GenerateJSON(ctx context.Context, p *prompt.Prompt, out any) error {
	name, s, err := schema.Reflect(out)
	if err != nil {
		return err
	}

	resp, err := c.generate(ctx, p, name, s)
	if err != nil {
		return err
	}

	if err := schema.Decode(resp.Text, out); err != nil {
		c.logger.Warn("模型输出不符合结构",
			zap.String("prompt", p.Name),
			zap.String("provider", c.provider.Name()),
			zap.Error(err))
		return err
	}
	return nil
}

// GenerateText 自由文本输出
func (c *ModelClient) GenerateText(ctx context.Context, p *prompt.Prompt) (string, error) {
	resp, err := c.generate(ctx, p, "", nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *ModelClient) generate(ctx context.Context, p *prompt.Prompt, schemaName string, s map[string]any) (*GenerateResponse, error) {
	req := &GenerateRequest{
		System:      p.System,
		Parts:       p.Parts(),
		SchemaName:  schemaName,
		Schema:      s,
		Temperature: c.temperature,
	}

	start := time.Now()
	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		err = c.classify(err)
		c.logger.Warn("调用模型失败",
			zap.String("prompt", p.Name),
			zap.String("provider", c.provider.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		reason := "empty text"
		if resp != nil && resp.FinishReason != "" {
			reason = "finish reason " + resp.FinishReason
		}
		return nil, &apperr.EmptyResponseError{Provider: c.provider.Name(), Reason: reason}
	}

	c.logger.Debug("模型调用完成",
		zap.String("prompt", p.Name),
		zap.String("provider", c.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("attachments", len(p.Attachments)),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// classify 已归类的错误原样返回，其余统一视为调用失败
func (c *ModelClient) classify(err error) error {
	var (
		inErr    *apperr.InputError
		modelErr *apperr.ModelInvocationError
		emptyErr *apperr.EmptyResponseError
	)
	if errors.As(err, &inErr) || errors.As(err, &modelErr) || errors.As(err, &emptyErr) {
		return err
	}
	return &apperr.ModelInvocationError{Provider: c.provider.Name(), Err: err}
}
