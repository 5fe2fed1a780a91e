package model

import (
	"strings"

	"github.com/eschoolbooks/neox-go/internal/schema"
	"github.com/go-playground/validator/v10"
)

// PredictExamInput 考题预测请求
type PredictExamInput struct {
	ExamType   string   `json:"examType" validate:"required"`
	Textbooks  []string `json:"textbooks,omitempty" validate:"dive,docref"`
	PastPapers []string `json:"pastPapers,omitempty" validate:"dive,docref"`
	// Documents 未区分类型的文档
	Documents []string `json:"documents,omitempty" validate:"dive,docref"`
}

// DocumentCount 文档总数
func (in PredictExamInput) DocumentCount() int {
	return len(in.Textbooks) + len(in.PastPapers) + len(in.Documents)
}

// AllDocuments 全部文档引用
func (in PredictExamInput) AllDocuments() []string {
	docs := make([]string, 0, in.DocumentCount())
	docs = append(docs, in.Textbooks...)
	docs = append(docs, in.PastPapers...)
	return append(docs, in.Documents...)
}

// TopicPrediction 预测的考点
type TopicPrediction struct {
	Topic      string   `json:"topic" validate:"required" jsonschema_description:"Topic or chapter likely to appear in the exam"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=100" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Likelihood from 0 to 100"`
	Reason     string   `json:"reason" validate:"required" jsonschema_description:"Justification grounded in the supplied documents"`
}

// ExamPrediction 考题预测结果
type ExamPrediction struct {
	Topics          []TopicPrediction `json:"topics" validate:"required,min=1,dive"`
	Recommendations []string          `json:"recommendations" validate:"required,dive,required"`
}

// Normalize 去除首尾空白
func (p *ExamPrediction) Normalize() {
	for i := range p.Topics {
		p.Topics[i].Topic = strings.TrimSpace(p.Topics[i].Topic)
		p.Topics[i].Reason = strings.TrimSpace(p.Topics[i].Reason)
	}
	trimAll(p.Recommendations)
}

// AnalyzePapersInput 试卷分析请求（旧版接口）
type AnalyzePapersInput struct {
	ExamType  string `json:"examType" validate:"required"`
	ExamPaper string `json:"examPaper" validate:"required,docref"`
	Textbook  string `json:"textbook" validate:"required,docref"`
}

// PaperAnalysis 试卷分析结果，推荐为一段自由文本
type PaperAnalysis struct {
	Topics           []string  `json:"topics" validate:"required,min=1,dive,required"`
	ConfidenceScores []float64 `json:"confidenceScores" validate:"required,dive,min=0,max=100" jsonschema_description:"One score from 0 to 100 per topic in the same order"`
	Recommendations  string    `json:"recommendations" validate:"required"`
}

// Normalize 去除首尾空白
func (a *PaperAnalysis) Normalize() {
	trimAll(a.Topics)
	a.Recommendations = strings.TrimSpace(a.Recommendations)
}

func paperAnalysisRule(sl validator.StructLevel) {
	a := sl.Current().Interface().(PaperAnalysis)
	if len(a.ConfidenceScores) != len(a.Topics) {
		sl.ReportError(a.ConfidenceScores, "confidenceScores", "ConfidenceScores", "len_topics", "")
	}
}

func init() {
	schema.RegisterStructRule(paperAnalysisRule, PaperAnalysis{})
}

func trimAll(ss []string) {
	for i := range ss {
		ss[i] = strings.TrimSpace(ss[i])
	}
}
