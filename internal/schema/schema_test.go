package schema_test

import (
	"errors"
	"testing"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/eschoolbooks/neox-go/internal/schema"
)

func violation(t *testing.T, err error) *apperr.SchemaViolation {
	t.Helper()
	var sv *apperr.SchemaViolation
	if !errors.As(err, &sv) {
		t.Fatalf("expected SchemaViolation, got %v", err)
	}
	return sv
}

func TestDecodeQuiz(t *testing.T) {
	text := `{"title":" Optics ","questions":[{"questionText":"Speed of light?","options":["3e8 m/s ","1 m/s","10 m/s","100 m/s"],"correctAnswer":"3e8 m/s","explanation":"Known constant."}]}`

	var quiz model.Quiz
	if err := schema.Decode(text, &quiz); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quiz.Title != "Optics" {
		t.Errorf("title not normalized: %q", quiz.Title)
	}
	if quiz.Questions[0].Options[0] != "3e8 m/s" {
		t.Errorf("option not normalized: %q", quiz.Questions[0].Options[0])
	}
}

func TestDecodeViolations(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		out        any
		field      string
		constraint string
	}{
		{
			name:       "three options",
			text:       `{"title":"T","questions":[{"questionText":"Q","options":["a","b","c"],"correctAnswer":"a","explanation":"e"}]}`,
			out:        &model.Quiz{},
			field:      "questions[0].options",
			constraint: "len=4",
		},
		{
			name:       "answer not an option",
			text:       `{"title":"T","questions":[{"questionText":"Q","options":["a","b","c","d"],"correctAnswer":"z","explanation":"e"}]}`,
			out:        &model.Quiz{},
			field:      "questions[0].correctAnswer",
			constraint: "oneof_options",
		},
		{
			name:       "duplicate options",
			text:       `{"title":"T","questions":[{"questionText":"Q","options":["a","a","c","d"],"correctAnswer":"a","explanation":"e"}]}`,
			out:        &model.Quiz{},
			field:      "questions[0].options",
			constraint: "unique",
		},
		{
			name:       "no questions",
			text:       `{"title":"T","questions":[]}`,
			out:        &model.Quiz{},
			field:      "questions",
			constraint: "min=1",
		},
		{
			name:       "confidence out of range",
			text:       `{"topics":[{"topic":"Waves","confidence":140,"reason":"r"}],"recommendations":[]}`,
			out:        &model.ExamPrediction{},
			field:      "topics[0].confidence",
			constraint: "max=100",
		},
		{
			name:       "wrong type",
			text:       `{"topics":"Waves","recommendations":[]}`,
			out:        &model.ExamPrediction{},
			field:      "topics",
			constraint: "type=array",
		},
		{
			name:       "syntax",
			text:       `{"topics": [`,
			out:        &model.ExamPrediction{},
			field:      "$",
			constraint: "json",
		},
		{
			name:       "trailing content",
			text:       `{"reply":"a"} {"reply":"b"}`,
			out:        &model.ChatReply{},
			field:      "$",
			constraint: "single_object",
		},
		{
			name:       "score count mismatch",
			text:       `{"topics":["A","B"],"confidenceScores":[50],"recommendations":"Study A"}`,
			out:        &model.PaperAnalysis{},
			field:      "confidenceScores",
			constraint: "len_topics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv := violation(t, schema.Decode(tt.text, tt.out))
			if sv.Stage != apperr.StageOutput {
				t.Errorf("expected output stage, got %s", sv.Stage)
			}
			if sv.Field != tt.field {
				t.Errorf("field = %q, want %q", sv.Field, tt.field)
			}
			if sv.Constraint != tt.constraint {
				t.Errorf("constraint = %q, want %q", sv.Constraint, tt.constraint)
			}
		})
	}
}

func TestValidateInput(t *testing.T) {
	in := model.PredictExamInput{
		ExamType:  "Board",
		Textbooks: []string{"data:application/pdf;base64,AAAA", "not-a-uri"},
	}
	sv := violation(t, schema.Validate(apperr.StageInput, in))
	if sv.Stage != apperr.StageInput {
		t.Errorf("expected input stage, got %s", sv.Stage)
	}
	if sv.Field != "textbooks[1]" || sv.Constraint != "docref" {
		t.Errorf("unexpected violation: %+v", sv)
	}

	in.Textbooks = in.Textbooks[:1]
	if err := schema.Validate(apperr.StageInput, in); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReflect(t *testing.T) {
	name, s, err := schema.Reflect(&model.Quiz{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "quiz" {
		t.Errorf("name = %q", name)
	}
	if s["type"] != "object" {
		t.Errorf("expected object schema, got %v", s["type"])
	}
	if _, ok := s["$schema"]; ok {
		t.Error("$schema should be stripped")
	}

	props := s["properties"].(map[string]any)
	questions := props["questions"].(map[string]any)
	item := questions["items"].(map[string]any)
	options := item["properties"].(map[string]any)["options"].(map[string]any)
	if options["minItems"] != float64(4) || options["maxItems"] != float64(4) {
		t.Errorf("options bounds not declared: %v", options)
	}

	// 副本互不影响
	s["type"] = "mutated"
	_, again, _ := schema.Reflect(model.Quiz{})
	if again["type"] != "object" {
		t.Error("cached schema was mutated")
	}

	if _, _, err := schema.Reflect("text"); err == nil {
		t.Error("expected error for non-struct")
	}
}

func TestReflectOptionalFields(t *testing.T) {
	_, s, err := schema.Reflect(model.QuestionExtraction{})
	if err != nil {
		t.Fatal(err)
	}
	props := s["properties"].(map[string]any)
	if _, ok := props["records"]; ok {
		t.Error("stamped records must not be declared to the model")
	}
	item := props["questions"].(map[string]any)["items"].(map[string]any)
	required, _ := item["required"].([]any)
	for _, r := range required {
		if r == "marks" || r == "options" {
			t.Errorf("%v should be optional", r)
		}
	}
	itemProps := item["properties"].(map[string]any)
	for _, name := range []string{"subject", "year", "grade", "examType"} {
		if _, ok := itemProps[name]; ok {
			t.Errorf("metadata field %q should not be requested from the model", name)
		}
	}
	if _, ok := itemProps["questionText"]; !ok {
		t.Errorf("questionText missing from %v", itemProps)
	}
}
