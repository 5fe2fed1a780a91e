package store

import (
	"context"
	"errors"

	"github.com/eschoolbooks/neox-go/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// ResultStore 分析结果存储，按用户隔离，只追加不更新
type ResultStore interface {
	// Save 写入新记录，ID 与创建时间由存储端分配
	Save(ctx context.Context, rec *model.AnalysisRecord) error
	// List 按创建时间倒序列出用户的记录
	List(ctx context.Context, userID string, limit int) ([]*model.AnalysisRecord, error)
	Get(ctx context.Context, userID, id string) (*model.AnalysisRecord, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func validateRecord(rec *model.AnalysisRecord) error {
	if rec.UserID == "" {
		return errors.New("记录缺少 userId")
	}
	if rec.Kind == "" {
		return errors.New("记录缺少 kind")
	}
	return nil
}
