// Package retry 提供固定间隔的重试执行器。
package retry

import (
	"context"
	"time"

	"github.com/kart-io/logger"
)

// Config 重试配置。
type Config struct {
	// MaxAttempts 最大尝试次数（包括首次调用）。
	MaxAttempts int
	// Delay 两次尝试之间的固定延迟。
	Delay time.Duration
}

// DefaultConfig 返回默认重试配置。
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Delay:       100 * time.Millisecond,
	}
}

// Executor 以固定间隔重试操作，所有错误都视为可重试。
type Executor struct {
	config *Config
}

// New 创建重试执行器。
func New(config *Config) *Executor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Executor{config: config}
}

// MaxAttempts 返回配置的最大尝试次数。
func (e *Executor) MaxAttempts() int {
	return e.config.MaxAttempts
}

// Do 执行 operation，失败后最多重试到 MaxAttempts 次。
// 最终失败时返回最后一次的原始错误，不做包装，调用方可以用
// errors.Is/As 判断错误类型。
func (e *Executor) Do(ctx context.Context, name string, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		logger.Infow("operation attempt failed",
			"operation", name,
			"attempt", attempt,
			"max_attempts", e.config.MaxAttempts,
			"error", lastErr.Error(),
		)

		if attempt == e.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.config.Delay):
		}
	}

	logger.Errorw("operation failed after max attempts",
		"operation", name,
		"max_attempts", e.config.MaxAttempts,
		"error", lastErr.Error(),
	)
	return lastErr
}
