package model

import (
	"strings"

	"github.com/eschoolbooks/neox-go/internal/schema"
	"github.com/go-playground/validator/v10"
)

const (
	MinQuizQuestions = 1
	MaxQuizQuestions = 20
	QuizOptionCount  = 4
)

// GenerateQuizInput 生成测验请求
type GenerateQuizInput struct {
	QuestionCount int      `json:"questionCount" validate:"min=1,max=20"`
	Documents     []string `json:"documents" validate:"dive,docref"`
}

// QuizQuestion 单选题，固定 4 个选项
type QuizQuestion struct {
	QuestionText  string   `json:"questionText" validate:"required"`
	Options       []string `json:"options" validate:"len=4,unique,dive,required" jsonschema:"minItems=4,maxItems=4"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required" jsonschema_description:"Must be exactly one of the options"`
	Explanation   string   `json:"explanation" validate:"required"`
}

// Quiz 测验
type Quiz struct {
	Title     string         `json:"title" validate:"required"`
	Questions []QuizQuestion `json:"questions" validate:"min=1,max=20,dive" jsonschema:"minItems=1,maxItems=20"`
}

// Normalize 去除首尾空白，保证答案与选项可以逐字比较
func (q *Quiz) Normalize() {
	q.Title = strings.TrimSpace(q.Title)
	for i := range q.Questions {
		qq := &q.Questions[i]
		qq.QuestionText = strings.TrimSpace(qq.QuestionText)
		qq.CorrectAnswer = strings.TrimSpace(qq.CorrectAnswer)
		qq.Explanation = strings.TrimSpace(qq.Explanation)
		trimAll(qq.Options)
	}
}

// correctAnswer 必须是选项之一
func quizQuestionRule(sl validator.StructLevel) {
	q := sl.Current().Interface().(QuizQuestion)
	if q.CorrectAnswer == "" {
		return
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return
		}
	}
	sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", "oneof_options", "")
}

func init() {
	schema.RegisterStructRule(quizQuestionRule, QuizQuestion{})
}

// QuizScore 测验得分
type QuizScore struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Score   float64 `json:"score"` // correct / total
	Results []bool  `json:"results"`
}

// ScoreQuiz 按题目顺序比较所选答案与标准答案，未作答视为错误
func ScoreQuiz(questions []QuizQuestion, answers []string) QuizScore {
	score := QuizScore{
		Total:   len(questions),
		Results: make([]bool, len(questions)),
	}
	for i, q := range questions {
		if i < len(answers) && strings.TrimSpace(answers[i]) == q.CorrectAnswer {
			score.Results[i] = true
			score.Correct++
		}
	}
	if score.Total > 0 {
		score.Score = float64(score.Correct) / float64(score.Total)
	}
	return score
}
