package client

import (
	"context"

	"github.com/eschoolbooks/neox-go/internal/prompt"
)

// GenerateRequest 一次模型调用
type GenerateRequest struct {
	System string
	// Parts 按顺序排列的文本与附件
	Parts []prompt.Part
	// SchemaName 和 Schema 为空时模型自由输出文本
	SchemaName  string
	Schema      map[string]any
	Temperature float64
}

// GenerateResponse 模型返回
type GenerateResponse struct {
	Text         string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Provider 模型提供方
//
// 传输层失败返回 *apperr.ModelInvocationError，被安全策略拦截等无输出情况
// 返回 *apperr.EmptyResponseError
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}
