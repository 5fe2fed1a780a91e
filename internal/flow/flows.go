package flow

import (
	"context"
	"time"

	"github.com/eschoolbooks/neox-go/internal/client"
	"github.com/eschoolbooks/neox-go/internal/config"
	"github.com/eschoolbooks/neox-go/internal/model"
	"go.uber.org/zap"
)

// Option Flows 选项
type Option func(*Env)

// WithObserver 设置执行结果回调
func WithObserver(o Observer) Option {
	return func(e *Env) { e.Observer = o }
}

// WithRetryDelay 设置重试间隔
func WithRetryDelay(d time.Duration) Option {
	return func(e *Env) { e.RetryDelay = d }
}

// Flows 全部文档分析流程的强类型入口
type Flows struct {
	env      *Env
	registry *Registry

	predictExam      *Flow[model.PredictExamInput, model.ExamPrediction]
	generateQuiz     *Flow[model.GenerateQuizInput, model.Quiz]
	chat             *Flow[model.ChatInput, model.ChatReply]
	extractQuestions *Flow[model.ExtractQuestionsInput, model.QuestionExtraction]
	analyzePapers    *Flow[model.AnalyzePapersInput, model.PaperAnalysis]
}

// New 按配置创建全部流程并注册
func New(mc *client.ModelClient, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Flows, error) {
	env := &Env{
		Client:     mc,
		Logger:     logger,
		RetryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(env)
	}

	f := &Flows{
		env:              env,
		registry:         NewRegistry(env, logger),
		predictExam:      PredictExamFlow(cfg.Retries(config.FlowPredictExam)),
		generateQuiz:     GenerateQuizFlow(cfg.Retries(config.FlowGenerateQuiz)),
		chat:             ChatFlow(cfg.Retries(config.FlowChat)),
		extractQuestions: ExtractQuestionsFlow(cfg.Retries(config.FlowExtractQuestions)),
		analyzePapers:    AnalyzePapersFlow(cfg.Retries(config.FlowAnalyzePapers)),
	}

	for _, r := range []Runner{f.predictExam, f.generateQuiz, f.chat, f.extractQuestions, f.analyzePapers} {
		if err := f.registry.Register(r); err != nil {
			return nil, err
		}
	}
	logger.Info("流程注册完成", zap.Int("flows", f.registry.Count()))
	return f, nil
}

// Registry 流程注册中心
func (f *Flows) Registry() *Registry {
	return f.registry
}

// PredictExam 考题预测，没有任何文档时返回 InputError
func (f *Flows) PredictExam(ctx context.Context, in model.PredictExamInput) (*model.ExamPrediction, error) {
	return f.predictExam.Run(ctx, f.env, in)
}

// PredictExamFromDocuments 只给出考试类型和未分类文档时的预测
func (f *Flows) PredictExamFromDocuments(ctx context.Context, examType string, documents []string) (*model.ExamPrediction, error) {
	return f.PredictExam(ctx, model.PredictExamInput{ExamType: examType, Documents: documents})
}

// GenerateQuiz 生成测验，题数必须在 1-20 之间
func (f *Flows) GenerateQuiz(ctx context.Context, in model.GenerateQuizInput) (*model.Quiz, error) {
	return f.generateQuiz.Run(ctx, f.env, in)
}

// Chat 辅导对话
func (f *Flows) Chat(ctx context.Context, in model.ChatInput) (*model.ChatReply, error) {
	return f.chat.Run(ctx, f.env, in)
}

// ExtractQuestions 试题提取
func (f *Flows) ExtractQuestions(ctx context.Context, in model.ExtractQuestionsInput) ([]model.ExtractedQuestion, error) {
	out, err := f.extractQuestions.Run(ctx, f.env, in)
	if err != nil {
		return nil, err
	}
	return out.Records, nil
}

// AnalyzePapers 试卷分析（旧版）
func (f *Flows) AnalyzePapers(ctx context.Context, in model.AnalyzePapersInput) (*model.PaperAnalysis, error) {
	return f.analyzePapers.Run(ctx, f.env, in)
}
