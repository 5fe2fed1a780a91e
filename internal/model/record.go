package model

import "time"

// Kind 分析记录类型
type Kind string

const (
	KindPredictExam      Kind = "predict-exam"
	KindGenerateQuiz     Kind = "generate-quiz"
	KindChat             Kind = "chat"
	KindExtractQuestions Kind = "extract-questions"
	KindAnalyzePapers    Kind = "analyze-papers"
)

// AnalysisRecord 写入文档库的一条结果，输入输出以 JSON 字符串嵌套保存
type AnalysisRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      Kind      `json:"kind"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"createdAt"`
}
