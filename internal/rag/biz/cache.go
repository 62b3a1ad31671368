package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/pkg/utils/json"
)

// AnswerCacheConfig 回答缓存配置。
type AnswerCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultAnswerCacheConfig 返回默认回答缓存配置。
func DefaultAnswerCacheConfig() *AnswerCacheConfig {
	return &AnswerCacheConfig{
		Enabled:   false,
		TTL:       1 * time.Hour,
		KeyPrefix: "rag:answer:",
	}
}

// AnswerCache 回答结果缓存。
// 同一文件、同一供应商、同一问题命中同一条目。
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache 创建回答缓存实例。
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = DefaultAnswerCacheConfig()
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// cacheKey 基于文件、供应商与问题生成缓存键（SHA256 哈希）。
func (c *AnswerCache) cacheKey(fileID, api, query string) string {
	hash := sha256.Sum256([]byte(fileID + ":" + api + ":" + query))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 从缓存获取回答结果。未命中时返回 (nil, nil)。
func (c *AnswerCache) Get(ctx context.Context, fileID, api, query string) (*model.AnswerResult, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	key := c.cacheKey(fileID, api, query)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("answer cache miss", "file_id", fileID, "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.AnswerResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached answer", "error", err.Error(), "key", key)
		// 删除损坏的缓存
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Infow("answer cache hit", "file_id", fileID, "key", key, "answer_length", len(result.Answer))
	return &result, nil
}

// Set 将回答结果写入缓存。
func (c *AnswerCache) Set(ctx context.Context, fileID, api, query string, result *model.AnswerResult) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	key := c.cacheKey(fileID, api, query)

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal answer for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
		return err
	}

	logger.Debugw("cached answer", "file_id", fileID, "key", key, "ttl", c.config.TTL)
	return nil
}

// Clear 清除所有回答缓存。
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared answer cache", "deleted_count", deleted)
	return nil
}

// GetStats 获取缓存统计信息。
func (c *AnswerCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]interface{}{
			"enabled": false,
		}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}
