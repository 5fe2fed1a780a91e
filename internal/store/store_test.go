package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// exerciseStore 两种实现共用的行为测试
func exerciseStore(t *testing.T, s ResultStore) {
	t.Helper()
	ctx := context.Background()
	user := "user-" + uuid.NewString()

	var ids []string
	for i := 0; i < 3; i++ {
		rec := &model.AnalysisRecord{
			UserID: user,
			Kind:   model.KindGenerateQuiz,
			Input:  fmt.Sprintf(`{"questionCount":%d}`, i+1),
			Output: `{"title":"Optics"}`,
		}
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}
		if rec.ID == "" || rec.CreatedAt.IsZero() {
			t.Fatalf("id and timestamp must be assigned: %+v", rec)
		}
		ids = append(ids, rec.ID)
		time.Sleep(2 * time.Millisecond)
	}

	if ids[0] == ids[1] {
		t.Error("each save must create a fresh record")
	}

	list, err := s.List(ctx, user, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 records, got %d", len(list))
	}
	if list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Errorf("expected newest first, got %s %s %s", list[0].ID, list[1].ID, list[2].ID)
	}

	limited, err := s.List(ctx, user, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("limit: %d records, %v", len(limited), err)
	}

	got, err := s.Get(ctx, user, ids[1])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Input != `{"questionCount":2}` || got.Kind != model.KindGenerateQuiz || got.UserID != user {
		t.Errorf("record = %+v", got)
	}

	// 其他用户看不到
	if _, err := s.Get(ctx, "someone-else", ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}
	if empty, err := s.List(ctx, "someone-else", 10); err != nil || len(empty) != 0 {
		t.Errorf("other user list = %v, %v", empty, err)
	}

	if err := s.Save(ctx, &model.AnalysisRecord{Kind: model.KindChat}); err == nil {
		t.Error("expected error without user id")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(zap.NewNop()))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("NEOX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NEOX_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	exerciseStore(t, NewRedisStore(client, "neox-test", zap.NewNop()))
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, defaultListLimit},
		{-5, defaultListLimit},
		{7, 7},
		{1000, maxListLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
