package model

import (
	"encoding/json"
	"strings"
)

// ExtractQuestionsInput 试题提取请求，元数据由调用方提供
type ExtractQuestionsInput struct {
	Document string `json:"document" validate:"docref"`
	Subject  string `json:"subject" validate:"required"`
	Year     int    `json:"year" validate:"min=1900,max=2100"`
	Grade    string `json:"grade" validate:"required"`
	ExamType string `json:"examType" validate:"required"`
}

// QuestionItem 模型返回的单道试题，不含元数据
type QuestionItem struct {
	QuestionText  string   `json:"questionText" validate:"required"`
	Options       []string `json:"options,omitempty" validate:"omitempty,dive,required"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Marks         *int     `json:"marks,omitempty" validate:"omitempty,min=0"`
}

// ExtractedQuestion 提取出的试题，元数据取自请求
type ExtractedQuestion struct {
	QuestionItem
	Subject  string `json:"subject"`
	Year     int    `json:"year"`
	Grade    string `json:"grade"`
	ExamType string `json:"examType"`
}

// QuestionExtraction 试题提取结果
//
// Questions 是模型输出（声明给模型的 schema 只有这一部分），
// Records 由 Stamp 生成，序列化时以 Records 作为 questions。
type QuestionExtraction struct {
	Questions []QuestionItem      `json:"questions" validate:"required,dive"`
	Records   []ExtractedQuestion `json:"-"`
}

// MarshalJSON 对外输出带元数据的记录
func (e QuestionExtraction) MarshalJSON() ([]byte, error) {
	records := e.Records
	if records == nil {
		records = []ExtractedQuestion{}
	}
	return json.Marshal(struct {
		Questions []ExtractedQuestion `json:"questions"`
	}{records})
}

// Normalize 去除首尾空白
func (e *QuestionExtraction) Normalize() {
	for i := range e.Questions {
		q := &e.Questions[i]
		q.QuestionText = strings.TrimSpace(q.QuestionText)
		q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		trimAll(q.Options)
	}
}

// Stamp 用请求中的元数据生成最终记录
func (e *QuestionExtraction) Stamp(in ExtractQuestionsInput) []ExtractedQuestion {
	e.Records = make([]ExtractedQuestion, len(e.Questions))
	for i, q := range e.Questions {
		e.Records[i] = ExtractedQuestion{
			QuestionItem: q,
			Subject:      in.Subject,
			Year:         in.Year,
			Grade:        in.Grade,
			ExamType:     in.ExamType,
		}
	}
	return e.Records
}
