package store

import (
	"context"
	"fmt"

	"github.com/kart-io/docrag/pkg/component/milvus"
)

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// EnsureCollection 创建 Milvus 集合（幂等）。
func (s *MilvusStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if err := s.client.EnsureCollection(ctx, collection, dimension); err != nil {
		return fmt.Errorf("failed to ensure milvus collection: %w", err)
	}
	return nil
}

// HasCollection 检查集合是否存在。
func (s *MilvusStore) HasCollection(ctx context.Context, collection string) (bool, error) {
	return s.client.HasCollection(ctx, collection)
}

// Upsert 按 ID 覆盖写入文档块。
func (s *MilvusStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	rows := make([]milvus.Row, len(docs))
	for i, d := range docs {
		rows[i] = milvus.Row{
			ID:        d.ID,
			Embedding: d.Vector,
			Content:   d.Content,
		}
	}

	if err := s.client.Upsert(ctx, collection, rows); err != nil {
		return fmt.Errorf("failed to upsert into milvus: %w", err)
	}
	return nil
}

// Search 执行向量相似度搜索。集合不存在时返回 ErrCollectionNotFound。
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Passage, error) {
	exists, err := s.client.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	results, err := s.client.Search(ctx, collection, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	passages := make([]Passage, len(results))
	for i, r := range results {
		passages[i] = Passage{
			ID:      r.ID,
			Score:   r.Score,
			Content: r.Content,
		}
	}
	return passages, nil
}

// GetStats 获取集合统计信息。
func (s *MilvusStore) GetStats(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// DropCollection 删除集合。
func (s *MilvusStore) DropCollection(ctx context.Context, collection string) error {
	return s.client.DropCollection(ctx, collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
