package biz

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/rag/metrics"
	"github.com/kart-io/docrag/internal/rag/store"
	"github.com/kart-io/docrag/pkg/llm"
)

// UploadFile 一个待上传的文件。
type UploadFile struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// ObjectStore 上传面需要的对象存储能力。
type ObjectStore interface {
	// Put 以 objectName 为键存储对象。
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	// PresignedGet 返回对象的签名下载 URL 及其过期时间文案。
	PresignedGet(ctx context.Context, objectName string) (url, expires string, err error)
}

// Executor 执行后台摄取任务。生产环境由 ants 协程池实现，
// 测试中可注入同步实现。
type Executor interface {
	Submit(task func()) error
}

// GoExecutor 协程池不可用时的降级执行器，每个任务一个 goroutine。
type GoExecutor struct{}

// Submit 在新 goroutine 中执行任务。
func (GoExecutor) Submit(task func()) error {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("background task panic", "error", r)
			}
		}()
		task()
	}()
	return nil
}

// Service 定义文档问答服务接口。
type Service interface {
	// Upload 上传一批文件到对象存储并返回各自的签名下载 URL。
	Upload(ctx context.Context, files []UploadFile) ([]*model.UploadResult, error)
	// Ingest 从签名 URL 解析文件信息并提交后台摄取任务，返回 file_id。
	Ingest(ctx context.Context, signedURL string) (string, error)
	// Progress 查询摄取进度，键不存在时 ok 为 false。
	Progress(fileID string) (progress float64, ok bool)
	// Answer 针对单个已摄取文件回答查询，api 选择生成答案的供应商。
	Answer(ctx context.Context, query, fileID, api string) (*model.AnswerResult, error)
	// Remove 删除已摄取文件的向量集合及其进度记录。
	Remove(ctx context.Context, fileID string) error
	// Stats 返回服务统计信息。
	Stats(ctx context.Context) (map[string]any, error)
}

// RAGService 组合上传、摄取与问答流水线提供完整服务。
type RAGService struct {
	objects  ObjectStore
	vectors  store.VectorStore
	ingestor *Ingestor
	answerer *Answerer
	progress *ProgressStore
	cache    *AnswerCache
	executor Executor
	// chats 按供应商标签索引，标签匹配不区分大小写。
	chats    map[string]llm.ChatProvider
	embedder llm.EmbeddingProvider
	metrics  *metrics.Metrics
}

// NewRAGService 创建服务实例。cache 可为 nil（禁用缓存），
// executor 为 nil 时降级为 GoExecutor。
func NewRAGService(
	objects ObjectStore,
	vectors store.VectorStore,
	ingestor *Ingestor,
	answerer *Answerer,
	progress *ProgressStore,
	cache *AnswerCache,
	executor Executor,
	chats map[string]llm.ChatProvider,
	embedder llm.EmbeddingProvider,
) *RAGService {
	if executor == nil {
		executor = GoExecutor{}
	}
	return &RAGService{
		objects:  objects,
		vectors:  vectors,
		ingestor: ingestor,
		answerer: answerer,
		progress: progress,
		cache:    cache,
		executor: executor,
		chats:    chats,
		embedder: embedder,
		metrics:  metrics.Get(),
	}
}

// Upload 上传一批文件。任一文件失败则整体失败。
func (s *RAGService) Upload(ctx context.Context, files []UploadFile) ([]*model.UploadResult, error) {
	results := make([]*model.UploadResult, 0, len(files))

	for _, f := range files {
		fi, err := model.NewFileInfo(f.FileName)
		if err != nil {
			s.metrics.RecordUpload(len(files), err)
			return nil, err
		}

		if err := s.objects.Put(ctx, fi.FileUniqueName, f.Reader, f.Size, f.ContentType); err != nil {
			s.metrics.RecordUpload(len(files), err)
			return nil, err
		}

		signedURL, expires, err := s.objects.PresignedGet(ctx, fi.FileUniqueName)
		if err != nil {
			s.metrics.RecordUpload(len(files), err)
			return nil, err
		}

		logger.Infow("file uploaded",
			"file_id", fi.FileID,
			"file_name", fi.FileName,
			"expires", expires,
		)
		results = append(results, &model.UploadResult{
			FileInfo:  fi,
			SignedURL: signedURL,
			Expires:   expires,
		})
	}

	s.metrics.RecordUpload(len(files), nil)
	return results, nil
}

// Ingest 提交后台摄取任务。进度在提交时即置为起始值，
// 避免任务尚未调度时轮询方误判为未知任务。
func (s *RAGService) Ingest(_ context.Context, signedURL string) (string, error) {
	fi, err := model.ParseFileInfoFromURL(signedURL)
	if err != nil {
		return "", err
	}

	s.progress.Set(fi.FileID, progressStart)

	task := func() {
		// 错误已在 Ingestor 内记录，后台任务无处返回
		_ = s.ingestor.Ingest(context.Background(), signedURL, fi)
	}
	if err := s.executor.Submit(task); err != nil {
		s.progress.Delete(fi.FileID)
		return "", fmt.Errorf("failed to submit ingestion task: %w", err)
	}

	logger.Infow("ingestion submitted", "file_id", fi.FileID, "file_name", fi.FileName)
	return fi.FileID, nil
}

// Progress 查询摄取进度。
func (s *RAGService) Progress(fileID string) (float64, bool) {
	return s.progress.Lookup(fileID)
}

// Answer 回答查询。api 为空时默认使用 OpenAI。
func (s *RAGService) Answer(ctx context.Context, query, fileID, api string) (*model.AnswerResult, error) {
	tag, chat, err := s.resolveChat(api)
	if err != nil {
		s.metrics.RecordQuery(false, false, err)
		return nil, err
	}

	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, fileID, tag, query)
		if cacheErr == nil && cached != nil {
			s.metrics.RecordQuery(true, !cached.Found, nil)
			return cached, nil
		}
		// 缓存未命中或出错，走正常流程
	}

	result, err := s.answerer.Answer(ctx, query, fileID, chat)
	if err != nil {
		s.metrics.RecordQuery(false, false, err)
		return nil, err
	}

	// 集合内容在摄取完成后不再变化，仅缓存命中的回答
	if s.cache != nil && result.Found {
		_ = s.cache.Set(ctx, fileID, tag, query, result)
	}

	s.metrics.RecordQuery(false, !result.Found, nil)
	return result, nil
}

// resolveChat 解析供应商标签，返回规范化标签与对应的 Chat 供应商。
func (s *RAGService) resolveChat(api string) (string, llm.ChatProvider, error) {
	if api == "" {
		api = model.APIOpenAI
	}
	for tag, chat := range s.chats {
		if strings.EqualFold(tag, api) {
			return tag, chat, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnknownAPI, api)
}

// Remove 删除已摄取文件：丢弃向量集合并清理进度记录。
// 集合不存在时返回 store.ErrCollectionNotFound。
func (s *RAGService) Remove(ctx context.Context, fileID string) error {
	exists, err := s.vectors.HasCollection(ctx, fileID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", store.ErrCollectionNotFound, fileID)
	}

	if err := s.vectors.DropCollection(ctx, fileID); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", fileID, err)
	}
	s.progress.Delete(fileID)

	// 缓存键是哈希值，无法按 file_id 定位条目，整体清空
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			logger.Warnw("failed to clear answer cache", "file_id", fileID, "error", err.Error())
		}
	}

	logger.Infow("file removed", "file_id", fileID)
	return nil
}

// Stats 返回服务统计信息。
func (s *RAGService) Stats(ctx context.Context) (map[string]any, error) {
	tags := make([]string, 0, len(s.chats))
	for tag := range s.chats {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	stats := map[string]any{
		"embed_provider": s.embedder.Name(),
		"chat_providers": tags,
		"active_jobs":    s.progress.Len(),
		"metrics":        s.metrics.Stats(),
	}

	if s.cache != nil {
		cacheStats, err := s.cache.GetStats(ctx)
		if err == nil {
			stats["cache"] = cacheStats
		}
	}

	return stats, nil
}

// 确保 RAGService 实现了 Service 接口。
var _ Service = (*RAGService)(nil)
