package biz

import (
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/pkg/rag/textutil"
)

// Chunker 将有序段落序列合并切分为可嵌入的文本块。
// 每个块的 token 数不超过 maxToken，且输出内容与输入内容逐字符一致。
type Chunker struct {
	maxToken int
}

// NewChunker 创建分块器。
func NewChunker(maxToken int) *Chunker {
	return &Chunker{maxToken: maxToken}
}

// Chunk 执行分块。
//
// 贪心合并相邻段落直至 token 预算耗尽；超出预算的单个段落按固定长度
// 切分后逐片输出。块的顺序与段落顺序一致。
//
// 返回前校验输出总字符数等于输入总字符数，不一致说明内容丢失，
// 属于致命完整性错误。
func (c *Chunker) Chunk(paragraphs []model.Paragraph) ([]string, error) {
	var current string
	var chunks []string

	totalContentLen := 0

	for _, p := range paragraphs {
		content := p.Content
		if content == "" {
			continue
		}

		totalContentLen += textutil.CountTokens(content)
		if textutil.CountTokens(current+content) <= c.maxToken {
			current += content
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}

		if textutil.CountTokens(content) > c.maxToken {
			chunks = append(chunks, textutil.SplitByTokens(content, c.maxToken)...)
		} else {
			current = content
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	totalChunkLen := 0
	for _, chunk := range chunks {
		totalChunkLen += textutil.CountTokens(chunk)
	}
	if totalContentLen != totalChunkLen {
		return nil, fmt.Errorf(
			"%w: input length %d, output length %d",
			ErrContentMismatch, totalContentLen, totalChunkLen,
		)
	}

	logger.Infow("chunking completed",
		"chunks", len(chunks),
		"total_length", totalChunkLen,
	)

	return chunks, nil
}
