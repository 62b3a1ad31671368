package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/pkg/rag/textutil"
	"github.com/kart-io/docrag/internal/rag/metrics"
	"github.com/kart-io/docrag/internal/rag/store"
	"github.com/kart-io/docrag/pkg/llm"
)

// NotFoundAnswer 检索不到相关段落时返回的固定回答。
const NotFoundAnswer = "I could not find an answer."

// AnswererConfig 回答器配置。
type AnswererConfig struct {
	// TopK 检索的段落数。
	TopK int
	// TokenBudget 提示词 token 预算。
	TokenBudget int
}

// Answerer 执行查询回答流水线：
// 集合存在性检查 → 查询嵌入 → 文件范围内检索 → 预算内组装提示词 → 生成回答。
type Answerer struct {
	vectorStore store.VectorStore
	embedder    llm.EmbeddingProvider
	budgeter    *PromptBudgeter
	config      *AnswererConfig
	metrics     *metrics.Metrics
}

// NewAnswerer 创建回答器。
func NewAnswerer(vectorStore store.VectorStore, embedder llm.EmbeddingProvider, config *AnswererConfig) *Answerer {
	return &Answerer{
		vectorStore: vectorStore,
		embedder:    embedder,
		budgeter:    NewPromptBudgeter(config.TokenBudget),
		config:      config,
		metrics:     metrics.Get(),
	}
}

// Answer 回答针对单个已摄取文件的查询。
// fileID 对应的集合不存在时返回 store.ErrCollectionNotFound；
// 检索结果为空时直接返回固定回答，不调用 chat 服务。
func (a *Answerer) Answer(ctx context.Context, query, fileID string, chat llm.ChatProvider) (*model.AnswerResult, error) {
	exists, err := a.vectorStore.HasCollection(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", store.ErrCollectionNotFound, fileID)
	}

	vec, err := a.embedder.EmbedSingle(ctx, query)
	a.metrics.RecordEmbedCall(err)
	if err != nil {
		return nil, err
	}

	searchStart := time.Now()
	passages, err := a.vectorStore.Search(ctx, fileID, vec, a.config.TopK)
	a.metrics.RecordSearch(time.Since(searchStart), err)
	if err != nil {
		return nil, err
	}

	if len(passages) == 0 {
		logger.Infow("no relevant passages",
			"file_id", fileID,
			"query", textutil.TruncateString(query, 64),
		)
		return &model.AnswerResult{Answer: NotFoundAnswer, Found: false}, nil
	}

	prompt := a.budgeter.Build(query, passages)

	chatStart := time.Now()
	reply, err := chat.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	a.metrics.RecordChatCall(time.Since(chatStart), err)
	if err != nil {
		return nil, err
	}

	return &model.AnswerResult{Answer: reply, Found: true}, nil
}
