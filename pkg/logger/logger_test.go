package logger

import "testing"

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"debug", "console", false},
		{"info", "json", false},
		{"", "", false},
		{"verbose", "json", true},
	}

	for _, tt := range tests {
		l, err := NewLogger(tt.level, tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("level %q: expected error", tt.level)
			}
			continue
		}
		if err != nil {
			t.Fatalf("level %q: unexpected error: %v", tt.level, err)
		}
		if l == nil {
			t.Fatalf("level %q: logger is nil", tt.level)
		}
	}
}
