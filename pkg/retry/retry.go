package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Config 重试配置，间隔固定
type Config struct {
	// Retries 失败后的额外尝试次数，总尝试次数为 Retries+1
	Retries int
	Delay   time.Duration
	// Retryable 为空时只重试实现了 Temporary() 且返回 true 的错误
	Retryable func(error) bool
	Logger    *zap.Logger
}

type temporary interface {
	Temporary() bool
}

// IsTemporary 错误链中是否有瞬时错误
func IsTemporary(err error) bool {
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}

// Do 执行 operation，可重试错误按固定间隔重试，其余错误立即返回
func Do[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsTemporary
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		result, err := operation()
		if err == nil {
			if attempt > 1 {
				cfg.Logger.Info("重试后成功", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		if !cfg.Retryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.Delay)),
		backoff.WithMaxTries(uint(cfg.Retries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			cfg.Logger.Warn("调用失败，准备重试",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cfg.Retries+1),
				zap.Duration("delay", next))
		}),
	)

	// 最后一次尝试返回的 Permanent 包装不会被 backoff 拆开
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return result, err
}
