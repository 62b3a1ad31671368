package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docrag/internal/model"
)

func TestAnswerCacheDisabled(t *testing.T) {
	cache := NewAnswerCache(nil, nil)

	result, err := cache.Get(context.Background(), "a-file", model.APIOpenAI, "question")
	require.NoError(t, err)
	assert.Nil(t, result)

	err = cache.Set(context.Background(), "a-file", model.APIOpenAI, "question", &model.AnswerResult{Answer: "x", Found: true})
	require.NoError(t, err)

	stats, err := cache.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, false, stats["enabled"])
}

func TestAnswerCacheKeyShape(t *testing.T) {
	cache := NewAnswerCache(nil, &AnswerCacheConfig{Enabled: true, KeyPrefix: "rag:answer:"})

	key := cache.cacheKey("a-file", model.APIOpenAI, "question")
	assert.True(t, strings.HasPrefix(key, "rag:answer:"))
	// SHA256 十六进制摘要
	assert.Len(t, strings.TrimPrefix(key, "rag:answer:"), 64)

	// 键对每个输入维度都敏感
	assert.Equal(t, key, cache.cacheKey("a-file", model.APIOpenAI, "question"))
	assert.NotEqual(t, key, cache.cacheKey("a-other", model.APIOpenAI, "question"))
	assert.NotEqual(t, key, cache.cacheKey("a-file", model.APIHunyuan, "question"))
	assert.NotEqual(t, key, cache.cacheKey("a-file", model.APIOpenAI, "other question"))
}
