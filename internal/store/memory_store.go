package store

import (
	"context"
	"sync"
	"time"

	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryStore 内存结果存储（未启用 Redis 时使用，进程退出即丢失）
type MemoryStore struct {
	records map[string][]*model.AnalysisRecord // userID -> 按写入顺序
	mu      sync.RWMutex
	now     func() time.Time
	logger  *zap.Logger
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]*model.AnalysisRecord),
		now:     time.Now,
		logger:  logger,
	}
}

// Save 写入新记录
func (s *MemoryStore) Save(ctx context.Context, rec *model.AnalysisRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()
	stored := *rec
	s.records[rec.UserID] = append(s.records[rec.UserID], &stored)

	s.logger.Debug("分析记录已保存（内存）",
		zap.String("userId", rec.UserID),
		zap.String("id", rec.ID),
		zap.String("kind", string(rec.Kind)))
	return nil
}

// List 按时间倒序列出记录
func (s *MemoryStore) List(ctx context.Context, userID string, limit int) ([]*model.AnalysisRecord, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	// 写入顺序即时间顺序
	all := s.records[userID]
	result := make([]*model.AnalysisRecord, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		rec := *all[i]
		result = append(result, &rec)
	}
	return result, nil
}

// Get 读取单条记录
func (s *MemoryStore) Get(ctx context.Context, userID, id string) (*model.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records[userID] {
		if rec.ID == id {
			found := *rec
			return &found, nil
		}
	}
	return nil, ErrNotFound
}
