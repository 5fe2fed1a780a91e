package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFlow(t *testing.T) {
	m := New(nil)

	m.ObserveFlow("generate-quiz", 1, time.Second, nil)
	m.ObserveFlow("generate-quiz", 3, 2*time.Second, nil)
	m.ObserveFlow("generate-quiz", 0, 0, apperr.NewInput("documents", "empty"))
	m.ObserveFlow("chat", 1, time.Second, &apperr.ModelInvocationError{Provider: "stub", Err: errors.New("x")})

	tests := []struct {
		flow, outcome string
		want          float64
	}{
		{"generate-quiz", "ok", 2},
		{"generate-quiz", "input_error", 1},
		{"chat", "model_invocation_error", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.FlowTotal.WithLabelValues(tt.flow, tt.outcome)); got != tt.want {
			t.Errorf("%s/%s = %v, want %v", tt.flow, tt.outcome, got, tt.want)
		}
	}

	if got := testutil.ToFloat64(m.FlowRetries.WithLabelValues("generate-quiz")); got != 2 {
		t.Errorf("retries = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.FlowDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.ObserveHTTP("/api/chat", 200)
	m.ObserveRecord("chat", nil)
	m.TutorSessions.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`neox_http_requests_total{route="/api/chat",status="200"} 1`,
		`neox_records_saved_total{kind="chat",status="ok"} 1`,
		`neox_tutor_sessions 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
