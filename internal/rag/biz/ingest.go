package biz

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/rag/extract"
	"github.com/kart-io/docrag/internal/rag/metrics"
	"github.com/kart-io/docrag/internal/rag/store"
	"github.com/kart-io/docrag/pkg/llm"
	"github.com/kart-io/docrag/pkg/retry"
	"github.com/kart-io/docrag/pkg/utils/httpclient"
)

// 摄取进度检查点。Embedding 阶段在 progressExtracted 与
// 1−reservedFraction 之间按分块数线性插值，保留的尾部份额用于收尾。
const (
	progressStart      = 0.01
	progressDownloaded = 0.10
	progressExtracted  = 0.11
	reservedFraction   = 0.1
)

// Downloader 将签名 URL 指向的文档下载到本地临时文件。
type Downloader interface {
	Download(ctx context.Context, signedURL string) (string, error)
}

// HTTPDownloader 基于 HTTP 的下载实现。
type HTTPDownloader struct {
	client  *httpclient.Client
	dataDir string
}

// NewHTTPDownloader 创建下载器。timeout 约束整个下载过程。
func NewHTTPDownloader(timeout time.Duration, dataDir string) *HTTPDownloader {
	return &HTTPDownloader{
		client:  httpclient.NewClient(timeout),
		dataDir: dataDir,
	}
}

// Download 下载文档并返回临时文件路径，调用方负责删除该文件。
func (d *HTTPDownloader) Download(ctx context.Context, signedURL string) (string, error) {
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}

	dest := filepath.Join(d.dataDir, "download-"+uuid.NewString())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	n, err := d.client.DownloadToFile(req, dest)
	if err != nil {
		return "", fmt.Errorf("failed to download document: %w", err)
	}

	logger.Infow("document downloaded", "dest", dest, "bytes", n)
	return dest, nil
}

// IngestorConfig 摄取器配置。
type IngestorConfig struct {
	// EmbeddingMaxToken 单个分块的 token 上限。
	EmbeddingMaxToken int
	// EmbeddingDim 向量维度，用于建集合。
	EmbeddingDim int
}

// Ingestor 执行完整的文档摄取流水线：
// 下载 → 提取 → 分块 → 逐块嵌入并写入向量索引。
// 分块严格按文档顺序处理，远程调用逐个包裹在重试器中。
type Ingestor struct {
	vectorStore store.VectorStore
	embedder    llm.EmbeddingProvider
	extractor   extract.Extractor
	downloader  Downloader
	progress    *ProgressStore
	retrier     *retry.Executor
	chunker     *Chunker
	config      *IngestorConfig
	metrics     *metrics.Metrics
}

// NewIngestor 创建摄取器。
func NewIngestor(
	vectorStore store.VectorStore,
	embedder llm.EmbeddingProvider,
	extractor extract.Extractor,
	downloader Downloader,
	progress *ProgressStore,
	retrier *retry.Executor,
	config *IngestorConfig,
) *Ingestor {
	return &Ingestor{
		vectorStore: vectorStore,
		embedder:    embedder,
		extractor:   extractor,
		downloader:  downloader,
		progress:    progress,
		retrier:     retrier,
		chunker:     NewChunker(config.EmbeddingMaxToken),
		config:      config,
		metrics:     metrics.Get(),
	}
}

// Ingest 执行一次摄取任务。任务失败时进度被置为 ProgressFailed，
// 错误同时返回给调用方（后台执行时仅记录日志）。
func (ing *Ingestor) Ingest(ctx context.Context, signedURL string, fileInfo *model.FileInfo) error {
	if !fileInfo.Valid() {
		return fmt.Errorf("invalid file info: %+v", fileInfo)
	}

	ing.metrics.RecordIngestStarted()

	chunks, err := ing.run(ctx, signedURL, fileInfo)
	if err != nil {
		ing.progress.Set(fileInfo.FileID, ProgressFailed)
		ing.metrics.RecordIngestFailed()
		logger.Errorw("ingestion failed",
			"file_id", fileInfo.FileID,
			"file_name", fileInfo.FileName,
			"error", err.Error(),
		)
		return err
	}

	ing.metrics.RecordIngestCompleted(chunks)

	indexed, statsErr := ing.vectorStore.GetStats(ctx, fileInfo.FileID)
	if statsErr != nil {
		logger.Warnw("failed to read collection stats",
			"file_id", fileInfo.FileID,
			"error", statsErr.Error(),
		)
	}
	logger.Infow("ingestion completed", "file_id", fileInfo.FileID, "chunks", chunks, "indexed", indexed)
	return nil
}

func (ing *Ingestor) run(ctx context.Context, signedURL string, fileInfo *model.FileInfo) (int, error) {
	fileID := fileInfo.FileID
	ing.progress.Set(fileID, progressStart)

	tmpPath, err := ing.downloader.Download(ctx, signedURL)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			logger.Warnw("failed to remove temp file", "path", tmpPath, "error", rmErr.Error())
		}
	}()
	ing.progress.Set(fileID, progressDownloaded)

	paragraphs, err := ing.extractor.Extract(ctx, tmpPath, fileInfo.FileName)
	if err != nil {
		return 0, err
	}
	if len(paragraphs) == 0 {
		return 0, ErrNoParagraphs
	}

	chunks, err := ing.chunker.Chunk(paragraphs)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}
	ing.progress.Set(fileID, progressExtracted)

	if err := ing.vectorStore.EnsureCollection(ctx, fileID, ing.config.EmbeddingDim); err != nil {
		return 0, err
	}

	if err := ing.embedAndStore(ctx, fileID, chunks); err != nil {
		return 0, err
	}

	ing.progress.Set(fileID, 1)
	return len(chunks), nil
}

// embedAndStore 逐块嵌入并写入向量索引，严格保持文档顺序。
func (ing *Ingestor) embedAndStore(ctx context.Context, fileID string, chunks []string) error {
	remaining := (1 - ing.progress.Get(fileID, 0)) - reservedFraction
	total := len(chunks)

	for i, chunk := range chunks {
		var vec []float32
		err := ing.retrier.Do(ctx, "embed chunk", func(ctx context.Context) error {
			v, embedErr := ing.embedder.EmbedSingle(ctx, chunk)
			if embedErr != nil {
				return embedErr
			}
			vec = v
			return nil
		})
		ing.metrics.RecordEmbedCall(err)
		if err != nil {
			return err
		}
		if len(vec) == 0 {
			return ErrEmptyEmbedding
		}

		doc := store.Document{
			ID:      uuid.NewString(),
			Vector:  vec,
			Content: chunk,
		}
		err = ing.retrier.Do(ctx, "upsert chunk", func(ctx context.Context) error {
			return ing.vectorStore.Upsert(ctx, fileID, []store.Document{doc})
		})
		if err != nil {
			return err
		}

		ing.progress.Set(fileID, progressExtracted+float64(i+1)/float64(total)*remaining)

		if i%10 == 0 {
			logger.Infow("embedding progress", "file_id", fileID, "index", i, "total", total)
		}
	}

	return nil
}
