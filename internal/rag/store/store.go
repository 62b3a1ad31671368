package store

import (
	"context"
	"errors"
)

// ErrCollectionNotFound 查询的集合不存在，即 file_id 从未被索引。
var ErrCollectionNotFound = errors.New("collection not found")

// Document 表示写入向量索引的一条文档块记录。
type Document struct {
	// ID 文档块 ID（uuid）。
	ID string
	// Vector 嵌入向量。
	Vector []float32
	// Content 文档块文本内容。
	Content string
}

// Passage 表示检索结果中的一个段落。
type Passage struct {
	// ID 文档块 ID。
	ID string
	// Score 相似度分数。
	Score float32
	// Content 文档块文本内容。
	Content string
}

// VectorStore 定义向量存储接口。
// 每个已摄取的文件对应一个集合，集合名即 file_id。
type VectorStore interface {
	// EnsureCollection 创建集合（幂等）。
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// HasCollection 检查集合是否存在。
	HasCollection(ctx context.Context, collection string) (bool, error)

	// Upsert 按 ID 覆盖写入文档块。
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Search 向量相似度搜索，结果按相似度降序。
	// 集合不存在时返回 ErrCollectionNotFound。
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Passage, error)

	// GetStats 获取集合的记录数。
	GetStats(ctx context.Context, collection string) (int64, error)

	// DropCollection 删除集合。
	DropCollection(ctx context.Context, collection string) error

	// Close 关闭连接。
	Close(ctx context.Context) error
}
