package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/client"
	"github.com/eschoolbooks/neox-go/internal/prompt"
	"github.com/eschoolbooks/neox-go/internal/schema"
	"github.com/eschoolbooks/neox-go/pkg/retry"
	"go.uber.org/zap"
)

// Observer 流程执行结果回调（指标）
type Observer interface {
	ObserveFlow(name string, attempts int, elapsed time.Duration, err error)
}

// Env 流程运行依赖，进程启动时显式构造
type Env struct {
	Client     *client.ModelClient
	Logger     *zap.Logger
	Observer   Observer
	RetryDelay time.Duration
}

// Flow 一个文档分析流程：模板 + 输入输出类型 + 前后处理
//
// 流程无状态，每次调用互不影响
type Flow[In, Out any] struct {
	Name        string
	Description string
	Template    *prompt.Template
	// Retries 模型调用瞬时失败后的重试次数
	Retries int
	// Precheck 在校验之前执行，失败返回 *apperr.InputError，不会调用模型
	Precheck func(in *In) error
	// PostProcess 对已校验的结果做确定性的后处理
	PostProcess func(in *In, out *Out)
	// FreeText 非空时模型输出自由文本，由它构造结果
	FreeText func(text string) Out
}

// Run 执行流程：前置检查 → 输入校验 → 渲染 → 调用模型（可重试）→ 后处理
func (f *Flow[In, Out]) Run(ctx context.Context, env *Env, in In) (*Out, error) {
	start := time.Now()
	attempts := 0

	out, err := f.run(ctx, env, &in, &attempts)

	elapsed := time.Since(start)
	if env.Observer != nil {
		env.Observer.ObserveFlow(f.Name, attempts, elapsed, err)
	}
	if err != nil {
		env.Logger.Warn("流程失败",
			zap.String("flow", f.Name),
			zap.Int("attempts", attempts),
			zap.String("kind", apperr.Kind(err)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	env.Logger.Info("流程完成",
		zap.String("flow", f.Name),
		zap.Int("attempts", attempts),
		zap.Duration("elapsed", elapsed))
	return out, nil
}

func (f *Flow[In, Out]) run(ctx context.Context, env *Env, in *In, attempts *int) (*Out, error) {
	if f.Precheck != nil {
		if err := f.Precheck(in); err != nil {
			return nil, err
		}
	}
	if err := schema.Validate(apperr.StageInput, in); err != nil {
		return nil, err
	}

	p, err := f.Template.Render(*in)
	if err != nil {
		return nil, err
	}

	cfg := retry.Config{
		Retries: f.Retries,
		Delay:   env.RetryDelay,
		Logger:  env.Logger.With(zap.String("flow", f.Name)),
	}
	out, err := retry.Do(ctx, cfg, func() (*Out, error) {
		*attempts++
		return f.invoke(ctx, env.Client, p)
	})
	if err != nil {
		return nil, err
	}

	if f.PostProcess != nil {
		f.PostProcess(in, out)
	}
	return out, nil
}

func (f *Flow[In, Out]) invoke(ctx context.Context, mc *client.ModelClient, p *prompt.Prompt) (*Out, error) {
	var out Out
	if f.FreeText != nil {
		text, err := mc.GenerateText(ctx, p)
		if err != nil {
			return nil, err
		}
		out = f.FreeText(text)
		if err := schema.Validate(apperr.StageOutput, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	if err := mc.GenerateJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Descriptor 流程描述，输入输出以 JSON Schema 声明
func (f *Flow[In, Out]) Descriptor() Descriptor {
	d := Descriptor{
		Name:        f.Name,
		Description: f.Description,
		Retries:     f.Retries,
		FreeText:    f.FreeText != nil,
	}
	var (
		in  In
		out Out
	)
	_, d.Input, _ = schema.Reflect(&in)
	_, d.Output, _ = schema.Reflect(&out)
	return d
}

// Execute 从原始 JSON 解析输入并执行
func (f *Flow[In, Out]) Execute(ctx context.Context, env *Env, raw json.RawMessage) (any, error) {
	var in In
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, &apperr.SchemaViolation{
			Stage:      apperr.StageInput,
			Field:      "$",
			Constraint: "json",
			Detail:     err.Error(),
		}
	}

	out, err := f.Run(ctx, env, in)
	if err != nil {
		return nil, err
	}
	return out, nil
}
