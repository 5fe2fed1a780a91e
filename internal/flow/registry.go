package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Descriptor 流程描述（类似 Function Calling 的函数定义）
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Retries     int            `json:"retries"`
	FreeText    bool           `json:"freeText"`
	Input       map[string]any `json:"input"`
	Output      map[string]any `json:"output"`
}

// Runner 可按名称执行的流程
type Runner interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, env *Env, raw json.RawMessage) (any, error)
}

// Registry 流程注册中心
type Registry struct {
	flows  map[string]Runner
	mu     sync.RWMutex
	env    *Env
	logger *zap.Logger
}

// NewRegistry 创建流程注册中心
func NewRegistry(env *Env, logger *zap.Logger) *Registry {
	return &Registry{
		flows:  make(map[string]Runner),
		env:    env,
		logger: logger,
	}
}

// Register 注册流程
func (r *Registry) Register(flow Runner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := flow.Descriptor().Name
	if name == "" {
		return fmt.Errorf("流程名称不能为空")
	}
	if _, exists := r.flows[name]; exists {
		return fmt.Errorf("流程已注册: %s", name)
	}

	r.flows[name] = flow
	r.logger.Info("流程已注册", zap.String("name", name))
	return nil
}

// ErrNotFound 流程不存在
type ErrNotFound struct {
	Name string
}

func (e *ErrNotFound) Error() string {
	return "流程不存在: " + e.Name
}

// Get 获取流程
func (r *Registry) Get(name string) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, ok := r.flows[name]
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}
	return flow, nil
}

// List 按名称排序列出所有流程描述
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Descriptor, 0, len(r.flows))
	for _, flow := range r.flows {
		defs = append(defs, flow.Descriptor())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute 按名称执行流程，输入为原始 JSON
func (r *Registry) Execute(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	flow, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("执行流程", zap.String("flow", name), zap.Int("bytes", len(raw)))
	return flow.Execute(ctx, r.env, raw)
}

// Count 注册的流程数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}
