// Package clienttest 提供测试用的可编排模型提供方
package clienttest

import (
	"context"
	"sync"

	"github.com/eschoolbooks/neox-go/internal/client"
)

// Reply 一次调用的预设结果
type Reply struct {
	Text string
	Err  error
}

// Provider 按顺序返回预设结果并记录每次请求
// 预设用完后重复最后一个
type Provider struct {
	mu       sync.Mutex
	replies  []Reply
	requests []*client.GenerateRequest
}

// New 创建测试提供方
func New(replies ...Reply) *Provider {
	return &Provider{replies: replies}
}

// Text 只返回固定文本的测试提供方
func Text(text string) *Provider {
	return New(Reply{Text: text})
}

// Name 提供方名称
func (p *Provider) Name() string { return "stub" }

// Generate 返回下一个预设结果
func (p *Provider) Generate(ctx context.Context, req *client.GenerateRequest) (*client.GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.replies) == 0 {
		return &client.GenerateResponse{Model: "stub"}, nil
	}

	idx := len(p.requests) - 1
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	r := p.replies[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return &client.GenerateResponse{Text: r.Text, FinishReason: "STOP", Model: "stub"}, nil
}

// Calls 调用次数
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests 已记录的请求
func (p *Provider) Requests() []*client.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*client.GenerateRequest(nil), p.requests...)
}

// Last 最后一次请求
func (p *Provider) Last() *client.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}
