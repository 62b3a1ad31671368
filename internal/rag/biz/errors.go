package biz

import "errors"

// 完整性错误。均为致命错误，不参与重试。
var (
	// ErrContentMismatch 分块输出与输入的总字符数不一致，说明内容丢失。
	ErrContentMismatch = errors.New("chunk content length mismatch")

	// ErrNoParagraphs 提取结果不含任何段落。
	ErrNoParagraphs = errors.New("no paragraphs extracted")

	// ErrNoChunks 分块结果为空，没有可索引的内容。
	ErrNoChunks = errors.New("no chunks produced")

	// ErrEmptyEmbedding 嵌入服务返回了空向量。
	ErrEmptyEmbedding = errors.New("empty embedding vector")
)

// ErrUnknownAPI 查询请求携带了未注册的供应商标签。
var ErrUnknownAPI = errors.New("unknown api tag")
