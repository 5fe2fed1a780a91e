package flow

import (
	"strings"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/config"
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/eschoolbooks/neox-go/internal/prompt"
)

const tutorSystem = `You are Neo X, the study assistant of E-SchoolBooks. You help students prepare for exams using only the study materials they attach. Be accurate, concise and encouraging.`

var predictExamTemplate = prompt.MustCompile(config.FlowPredictExam, tutorSystem, `
Predict the topics most likely to appear in the upcoming {{.ExamType}} exam.
{{- if .Textbooks}}

Textbooks:
{{- range $i, $d := .Textbooks}}
Textbook {{inc $i}}: {{media $d}}
{{- end}}
{{- end}}
{{- if .PastPapers}}

Past exam papers:
{{- range $i, $d := .PastPapers}}
Past paper {{inc $i}}: {{media $d}}
{{- end}}
{{- end}}
{{- if .Documents}}

Other study materials:
{{- range $i, $d := .Documents}}
Document {{inc $i}}: {{media $d}}
{{- end}}
{{- end}}

Rank the topics from most to least likely. For each topic give a confidence between 0 and 100 and a short reason grounded in the documents (for example how often it appeared in past papers or how much weight the textbook gives it).
Then list concrete study recommendations, one per entry.`)

var generateQuizTemplate = prompt.MustCompile(config.FlowGenerateQuiz, tutorSystem, `
Create a multiple-choice quiz with exactly {{.QuestionCount}} questions based on the study materials below.
{{range $i, $d := .Documents}}
Document {{inc $i}}: {{media $d}}
{{- end}}

Rules:
- Give the quiz a short descriptive title.
- Every question has exactly 4 distinct options.
- correctAnswer must be copied verbatim from one of the options.
- explanation says briefly why the correct answer is right, citing the material.`)

var chatTemplate = prompt.MustCompile(config.FlowChat, tutorSystem+`
Continue the conversation as the assistant. If the question cannot be answered from the materials, say so and answer from general knowledge.`, `
{{- if .Documents}}
Study materials:
{{- range $i, $d := .Documents}}
Document {{inc $i}}: {{media $d}}
{{- end}}
{{end}}
{{- if .History}}
Conversation so far:
{{- range .History}}
{{.Role}}: {{.Content}}
{{- end}}
{{end}}
user: {{.Message}}
assistant:`)

var extractQuestionsTemplate = prompt.MustCompile(config.FlowExtractQuestions, tutorSystem, `
Extract every question from the attached {{.Subject}} exam paper ({{.ExamType}}, {{.Grade}}, {{.Year}}).

Exam paper: {{media .Document}}

For each question return the full question text. Include the options when it is multiple choice, the correct answer when the paper states it, and the marks when they are printed. Keep the original order and do not invent questions.`)

var analyzePapersTemplate = prompt.MustCompile(config.FlowAnalyzePapers, tutorSystem, `
Compare the {{.ExamType}} exam paper with the textbook and identify the important topics.

Exam paper: {{media .ExamPaper}}
Textbook: {{media .Textbook}}

Return the topics, one confidence score between 0 and 100 for each topic in the same order, and a single paragraph of study recommendations.`)

// PredictExamFlow 考题预测
func PredictExamFlow(retries int) *Flow[model.PredictExamInput, model.ExamPrediction] {
	return &Flow[model.PredictExamInput, model.ExamPrediction]{
		Name:        config.FlowPredictExam,
		Description: "根据教材和往年试卷预测考点并给出复习建议",
		Template:    predictExamTemplate,
		Retries:     retries,
		Precheck: func(in *model.PredictExamInput) error {
			in.ExamType = strings.TrimSpace(in.ExamType)
			if in.DocumentCount() == 0 {
				return apperr.NewInput("documents", "至少需要一份教材或往年试卷")
			}
			return nil
		},
	}
}

// GenerateQuizFlow 生成测验
func GenerateQuizFlow(retries int) *Flow[model.GenerateQuizInput, model.Quiz] {
	return &Flow[model.GenerateQuizInput, model.Quiz]{
		Name:        config.FlowGenerateQuiz,
		Description: "根据学习资料生成四选一测验",
		Template:    generateQuizTemplate,
		Retries:     retries,
		Precheck: func(in *model.GenerateQuizInput) error {
			if in.QuestionCount < model.MinQuizQuestions || in.QuestionCount > model.MaxQuizQuestions {
				return apperr.NewInput("questionCount", "必须在 1-20 之间")
			}
			if len(in.Documents) == 0 {
				return apperr.NewInput("documents", "至少需要一份学习资料")
			}
			return nil
		},
	}
}

// ChatFlow 辅导对话，历史完整渲染，不截断
func ChatFlow(retries int) *Flow[model.ChatInput, model.ChatReply] {
	return &Flow[model.ChatInput, model.ChatReply]{
		Name:        config.FlowChat,
		Description: "基于学习资料的多轮辅导对话",
		Template:    chatTemplate,
		Retries:     retries,
		Precheck: func(in *model.ChatInput) error {
			in.Message = strings.TrimSpace(in.Message)
			if in.Message == "" {
				return apperr.NewInput("message", "不能为空")
			}
			return nil
		},
		FreeText: func(text string) model.ChatReply {
			return model.ChatReply{Reply: text}
		},
	}
}

// ExtractQuestionsFlow 试题提取，结果用请求中的元数据覆盖
func ExtractQuestionsFlow(retries int) *Flow[model.ExtractQuestionsInput, model.QuestionExtraction] {
	return &Flow[model.ExtractQuestionsInput, model.QuestionExtraction]{
		Name:        config.FlowExtractQuestions,
		Description: "从试卷中提取试题并标注科目、年份、年级和考试类型",
		Template:    extractQuestionsTemplate,
		Retries:     retries,
		Precheck: func(in *model.ExtractQuestionsInput) error {
			in.Subject = strings.TrimSpace(in.Subject)
			in.Grade = strings.TrimSpace(in.Grade)
			in.ExamType = strings.TrimSpace(in.ExamType)
			if in.Document == "" {
				return apperr.NewInput("document", "缺少试卷文档")
			}
			if in.Year < 1900 || in.Year > 2100 {
				return apperr.NewInput("year", "必须在 1900-2100 之间")
			}
			return nil
		},
		PostProcess: func(in *model.ExtractQuestionsInput, out *model.QuestionExtraction) {
			out.Stamp(*in)
		},
	}
}

// AnalyzePapersFlow 试卷分析（旧版），推荐为一段文本
func AnalyzePapersFlow(retries int) *Flow[model.AnalyzePapersInput, model.PaperAnalysis] {
	return &Flow[model.AnalyzePapersInput, model.PaperAnalysis]{
		Name:        config.FlowAnalyzePapers,
		Description: "对比试卷与教材分析考点（旧版接口）",
		Template:    analyzePapersTemplate,
		Retries:     retries,
		Precheck: func(in *model.AnalyzePapersInput) error {
			in.ExamType = strings.TrimSpace(in.ExamType)
			if in.ExamPaper == "" || in.Textbook == "" {
				return apperr.NewInput("documents", "需要一份试卷和一本教材")
			}
			return nil
		},
	}
}
