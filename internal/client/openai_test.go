package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/prompt"
	"github.com/eschoolbooks/neox-go/pkg/datauri"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewOpenAIClient("test-key", "gpt-test", srv.URL+"/v1", zap.NewNop())
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"reply\":\"hi\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9}
		}`))
	})

	png, _ := datauri.Parse("data:image/png;base64,iVBORw==")
	resp, err := c.Generate(context.Background(), &GenerateRequest{
		System:     "be brief",
		Parts:      []prompt.Part{{Text: "look"}, {Media: &png}},
		SchemaName: "chat_reply",
		Schema:     map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `{"reply":"hi"}` || resp.InputTokens != 7 || resp.OutputTokens != 2 {
		t.Errorf("response = %+v", resp)
	}

	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v", got["response_format"])
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", got["messages"])
	}
	user, _ := messages[1].(map[string]any)
	content, _ := user["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("user content = %v", user["content"])
	}
	image, _ := content[1].(map[string]any)
	if image["type"] != "image_url" {
		t.Errorf("second part = %v", image)
	}
}

func TestOpenAIRejectsDocuments(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})

	pdf, _ := datauri.Parse("data:application/pdf;base64,AAAA")
	_, err := c.Generate(context.Background(), &GenerateRequest{Parts: []prompt.Part{{Media: &pdf}}})
	var inErr *apperr.InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("expected InputError, got %T: %v", err, err)
	}
}

func TestOpenAIError(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	})

	_, err := c.Generate(context.Background(), &GenerateRequest{Parts: []prompt.Part{{Text: "x"}}})
	var modelErr *apperr.ModelInvocationError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelInvocationError, got %T: %v", err, err)
	}
	if modelErr.StatusCode != http.StatusInternalServerError || !modelErr.Temporary() {
		t.Errorf("status=%d temporary=%v", modelErr.StatusCode, modelErr.Temporary())
	}
}

func TestOpenAILogsFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	c := NewOpenAIClient("test-key", "gpt-test", srv.URL+"/v1", zap.New(core))
	if _, err := c.Generate(context.Background(), &GenerateRequest{Parts: []prompt.Part{{Text: "x"}}}); err == nil {
		t.Fatal("expected error")
	}

	entries := logs.FilterMessage("OpenAI 请求失败").All()
	if len(entries) != 1 || entries[0].ContextMap()["model"] != "gpt-test" {
		t.Errorf("logs = %+v", logs.All())
	}
}
