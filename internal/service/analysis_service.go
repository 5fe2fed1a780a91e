package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eschoolbooks/neox-go/internal/flow"
	"github.com/eschoolbooks/neox-go/internal/metrics"
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/eschoolbooks/neox-go/internal/store"
	"github.com/eschoolbooks/neox-go/pkg/datauri"
	"go.uber.org/zap"
)

// Result 一次分析的返回
type Result struct {
	Data     any    `json:"data"`
	RecordID string `json:"recordId,omitempty"`
	// Warning 结果已生成但保存失败
	Warning string `json:"warning,omitempty"`
}

// AnalysisService 文档分析服务：执行流程并保存结果
type AnalysisService struct {
	flows   *flow.Flows
	store   store.ResultStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAnalysisService 创建分析服务，store 为空时不保存结果
func NewAnalysisService(flows *flow.Flows, resultStore store.ResultStore, m *metrics.Metrics, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		flows:   flows,
		store:   resultStore,
		metrics: m,
		logger:  logger,
	}
}

// PredictExam 考题预测
func (s *AnalysisService) PredictExam(ctx context.Context, userID string, in model.PredictExamInput) (*Result, error) {
	s.observeAttachments(in.AllDocuments())
	out, err := s.flows.PredictExam(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, userID, model.KindPredictExam, in, out), nil
}

// GenerateQuiz 生成测验
func (s *AnalysisService) GenerateQuiz(ctx context.Context, userID string, in model.GenerateQuizInput) (*Result, error) {
	s.observeAttachments(in.Documents)
	out, err := s.flows.GenerateQuiz(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, userID, model.KindGenerateQuiz, in, out), nil
}

// Chat 辅导对话
func (s *AnalysisService) Chat(ctx context.Context, userID string, in model.ChatInput) (*Result, error) {
	s.observeAttachments(in.Documents)
	out, err := s.flows.Chat(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, userID, model.KindChat, in, out), nil
}

// ExtractQuestions 试题提取
func (s *AnalysisService) ExtractQuestions(ctx context.Context, userID string, in model.ExtractQuestionsInput) (*Result, error) {
	s.observeAttachments([]string{in.Document})
	out, err := s.flows.ExtractQuestions(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, userID, model.KindExtractQuestions, in, out), nil
}

// AnalyzePapers 试卷分析（旧版）
func (s *AnalysisService) AnalyzePapers(ctx context.Context, userID string, in model.AnalyzePapersInput) (*Result, error) {
	s.observeAttachments([]string{in.ExamPaper, in.Textbook})
	out, err := s.flows.AnalyzePapers(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, userID, model.KindAnalyzePapers, in, out), nil
}

// ListFlows 所有流程描述
func (s *AnalysisService) ListFlows() []flow.Descriptor {
	return s.flows.Registry().List()
}

// ExecuteFlow 按名称执行流程
func (s *AnalysisService) ExecuteFlow(ctx context.Context, userID, name string, raw json.RawMessage) (*Result, error) {
	out, err := s.flows.Registry().Execute(ctx, name, raw)
	if err != nil {
		return nil, err
	}

	var in any
	if err := json.Unmarshal(raw, &in); err != nil {
		// 流程已经成功解析过输入
		in = string(raw)
	}
	return s.persist(ctx, userID, model.Kind(name), in, out), nil
}

// Records 用户的历史记录
func (s *AnalysisService) Records(ctx context.Context, userID string, limit int) ([]*model.AnalysisRecord, error) {
	if s.store == nil {
		return []*model.AnalysisRecord{}, nil
	}
	return s.store.List(ctx, userID, limit)
}

// Record 单条历史记录
func (s *AnalysisService) Record(ctx context.Context, userID, id string) (*model.AnalysisRecord, error) {
	if s.store == nil {
		return nil, store.ErrNotFound
	}
	return s.store.Get(ctx, userID, id)
}

// persist 匿名用户或未配置存储时只返回结果
func (s *AnalysisService) persist(ctx context.Context, userID string, kind model.Kind, in, out any) *Result {
	res := &Result{Data: out}
	if userID == "" || s.store == nil {
		return res
	}

	rec, err := newRecord(userID, kind, in, out)
	if err == nil {
		err = s.store.Save(ctx, rec)
	}
	if s.metrics != nil {
		s.metrics.ObserveRecord(string(kind), err)
	}
	if err != nil {
		s.logger.Error("保存分析记录失败",
			zap.String("userId", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		res.Warning = "结果已生成，但保存到历史记录失败"
		return res
	}

	res.RecordID = rec.ID
	return res
}

func (s *AnalysisService) observeAttachments(refs []string) {
	if s.metrics == nil {
		return
	}
	for _, sum := range datauri.Summarize(refs) {
		if sum.Size > 0 {
			s.metrics.ObserveAttachment(sum.Size)
		}
	}
}

// newRecord 输入输出序列化为 JSON 字符串，输入中的文档内容替换为摘要
func newRecord(userID string, kind model.Kind, in, out any) (*model.AnalysisRecord, error) {
	input, err := json.Marshal(redactDocuments(in))
	if err != nil {
		return nil, fmt.Errorf("序列化输入失败: %w", err)
	}
	output, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("序列化输出失败: %w", err)
	}
	return &model.AnalysisRecord{
		UserID: userID,
		Kind:   kind,
		Input:  string(input),
		Output: string(output),
	}, nil
}
