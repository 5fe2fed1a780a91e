package store

import (
	"context"
	"fmt"
	"time"

	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore 基于 Redis 的结果存储
//
// 每条记录一个 hash: {prefix}:user:{uid}:record:{id}
// 用户索引为 sorted set: {prefix}:user:{uid}:records，分数为毫秒时间戳
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) recordKey(userID, id string) string {
	return fmt.Sprintf("%s:user:%s:record:%s", s.prefix, userID, id)
}

func (s *RedisStore) indexKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:records", s.prefix, userID)
}

// Save 写入新记录，时间戳取 Redis 服务器时间
func (s *RedisStore) Save(ctx context.Context, rec *model.AnalysisRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	now, err := s.client.Time(ctx).Result()
	if err != nil {
		return fmt.Errorf("获取 Redis 时间失败: %w", err)
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = now.UTC()

	key := s.recordKey(rec.UserID, rec.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"id":        rec.ID,
			"userId":    rec.UserID,
			"kind":      string(rec.Kind),
			"input":     rec.Input,
			"output":    rec.Output,
			"createdAt": rec.CreatedAt.Format(time.RFC3339Nano),
		})
		pipe.ZAdd(ctx, s.indexKey(rec.UserID), redis.Z{
			Score:  float64(rec.CreatedAt.UnixMilli()),
			Member: rec.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存记录失败: %w", err)
	}

	s.logger.Info("分析记录已保存",
		zap.String("userId", rec.UserID),
		zap.String("id", rec.ID),
		zap.String("kind", string(rec.Kind)))
	return nil
}

// List 按时间倒序列出记录
func (s *RedisStore) List(ctx context.Context, userID string, limit int) ([]*model.AnalysisRecord, error) {
	limit = clampLimit(limit)

	ids, err := s.client.ZRevRange(ctx, s.indexKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取记录索引失败: %w", err)
	}
	if len(ids) == 0 {
		return []*model.AnalysisRecord{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(userID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("读取记录失败: %w", err)
	}

	records := make([]*model.AnalysisRecord, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.logger.Warn("索引中的记录不存在", zap.String("userId", userID), zap.String("id", ids[i]))
			continue
		}
		records = append(records, fromHash(fields))
	}
	return records, nil
}

// Get 读取单条记录
func (s *RedisStore) Get(ctx context.Context, userID, id string) (*model.AnalysisRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(userID, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取记录失败: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fromHash(fields), nil
}

func fromHash(fields map[string]string) *model.AnalysisRecord {
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["createdAt"])
	return &model.AnalysisRecord{
		ID:        fields["id"],
		UserID:    fields["userId"],
		Kind:      model.Kind(fields["kind"]),
		Input:     fields["input"],
		Output:    fields["output"],
		CreatedAt: createdAt,
	}
}
