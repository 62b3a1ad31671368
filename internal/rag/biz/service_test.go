package biz

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/rag/store"
	"github.com/kart-io/docrag/pkg/llm"
)

type fakeObjectStore struct {
	objects map[string][]byte
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectName] = data
	return nil
}

func (f *fakeObjectStore) PresignedGet(_ context.Context, objectName string) (string, string, error) {
	signed := "http://minio.local/rag/" + url.PathEscape(objectName) + "?X-Amz-Expires=604800"
	return signed, "01/08/2026 12:00:00 GMT+0800", nil
}

// syncExecutor 在调用方 goroutine 中同步执行任务。
type syncExecutor struct {
	submitted int
	err       error
}

func (e *syncExecutor) Submit(task func()) error {
	if e.err != nil {
		return e.err
	}
	e.submitted++
	task()
	return nil
}

func newTestService(t *testing.T, vs *fakeVectorStore, em *fakeEmbedder, ex *fakeExtractor, chats map[string]llm.ChatProvider) (*RAGService, *fakeObjectStore, *syncExecutor) {
	t.Helper()
	ing, progress, _ := newTestIngestor(t, vs, em, ex)
	answerer := NewAnswerer(vs, em, &AnswererConfig{TopK: 10, TokenBudget: 9740})
	objects := newFakeObjectStore()
	executor := &syncExecutor{}
	svc := NewRAGService(objects, vs, ing, answerer, progress, nil, executor, chats, em)
	return svc, objects, executor
}

func defaultChats(chat llm.ChatProvider) map[string]llm.ChatProvider {
	return map[string]llm.ChatProvider{
		model.APIOpenAI:  chat,
		model.APIHunyuan: chat,
	}
}

func TestUploadStoresAndPresigns(t *testing.T) {
	svc, objects, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	results, err := svc.Upload(context.Background(), []UploadFile{
		{FileName: "one.pdf", ContentType: "application/pdf", Size: 4, Reader: bytes.NewReader([]byte("%PDF"))},
		{FileName: "two.png", ContentType: "image/png", Size: 3, Reader: bytes.NewReader([]byte("png"))},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.True(t, strings.HasPrefix(r.FileInfo.FileID, "a-"))
		assert.Contains(t, r.SignedURL, url.PathEscape(r.FileInfo.FileUniqueName))
		assert.NotEmpty(t, r.Expires)
		assert.Contains(t, objects.objects, r.FileInfo.FileUniqueName)
	}
	assert.Equal(t, "one.pdf", results[0].FileInfo.FileName)
	assert.Equal(t, "two.png", results[1].FileInfo.FileName)
}

func TestUploadFailsOnStorageError(t *testing.T) {
	svc, objects, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))
	objects.putErr = errors.New("storage unavailable")

	_, err := svc.Upload(context.Background(), []UploadFile{
		{FileName: "one.pdf", Reader: bytes.NewReader([]byte("%PDF"))},
	})
	require.Error(t, err)
}

func TestIngestRunsFullPipeline(t *testing.T) {
	vs := newFakeVectorStore()
	ex := &fakeExtractor{paragraphs: paragraphs("first paragraph", "second")}
	svc, _, executor := newTestService(t, vs, &fakeEmbedder{}, ex, defaultChats(&fakeChat{}))

	results, err := svc.Upload(context.Background(), []UploadFile{
		{FileName: "doc.pdf", Reader: bytes.NewReader([]byte("%PDF"))},
	})
	require.NoError(t, err)

	fileID, err := svc.Ingest(context.Background(), results[0].SignedURL)
	require.NoError(t, err)
	assert.Equal(t, results[0].FileInfo.FileID, fileID)
	assert.Equal(t, 1, executor.submitted)

	progress, ok := svc.Progress(fileID)
	require.True(t, ok)
	assert.Equal(t, 1.0, progress)
	assert.NotEmpty(t, vs.upserted[fileID])
}

func TestIngestRejectsMalformedURL(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	_, err := svc.Ingest(context.Background(), "http://minio.local/rag/no-separator.pdf")
	require.Error(t, err)
}

func TestIngestSubmitFailureClearsProgress(t *testing.T) {
	svc, _, executor := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))
	executor.err = errors.New("pool overloaded")

	signed := "http://minio.local/rag/" + url.PathEscape("a-123___doc.pdf")
	_, err := svc.Ingest(context.Background(), signed)
	require.Error(t, err)

	_, ok := svc.Progress("a-123")
	assert.False(t, ok)
}

func TestProgressUnknownFile(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	_, ok := svc.Progress("a-never-seen")
	assert.False(t, ok)
}

func TestAnswerSelectsProviderByTag(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["a-file-12345"] = 1
	vs.passages = []store.Passage{{ID: "1", Score: 0.9, Content: "passage"}}

	openaiChat := &fakeChat{reply: "from openai"}
	hunyuanChat := &fakeChat{reply: "from hunyuan"}
	chats := map[string]llm.ChatProvider{
		model.APIOpenAI:  openaiChat,
		model.APIHunyuan: hunyuanChat,
	}
	svc, _, _ := newTestService(t, vs, &fakeEmbedder{}, &fakeExtractor{}, chats)

	// 默认走 OpenAI
	result, err := svc.Answer(context.Background(), "question", "a-file-12345", "")
	require.NoError(t, err)
	assert.Equal(t, "from openai", result.Answer)

	// 标签匹配不区分大小写
	result, err = svc.Answer(context.Background(), "question", "a-file-12345", "openai")
	require.NoError(t, err)
	assert.Equal(t, "from openai", result.Answer)

	result, err = svc.Answer(context.Background(), "question", "a-file-12345", "hunyuan")
	require.NoError(t, err)
	assert.Equal(t, "from hunyuan", result.Answer)
}

func TestAnswerUnknownAPITag(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	_, err := svc.Answer(context.Background(), "question", "a-file-12345", "gemini")
	require.ErrorIs(t, err, ErrUnknownAPI)
}

func TestAnswerUningestedFile(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	_, err := svc.Answer(context.Background(), "question", "a-file-12345", "")
	require.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestUploadRejectsSeparatorInFilename(t *testing.T) {
	svc, objects, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	// 文件名含分隔符时唯一文件名无法还原为 (file_id, file_name)
	_, err := svc.Upload(context.Background(), []UploadFile{
		{FileName: "my___notes.pdf", Reader: bytes.NewReader([]byte("%PDF"))},
	})
	require.Error(t, err)
	assert.Empty(t, objects.objects)
}

func TestRemoveDropsCollectionAndProgress(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["a-file-12345"] = 1
	svc, _, _ := newTestService(t, vs, &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))
	svc.progress.Set("a-file-12345", 1.0)

	require.NoError(t, svc.Remove(context.Background(), "a-file-12345"))

	assert.NotContains(t, vs.collections, "a-file-12345")
	_, ok := svc.Progress("a-file-12345")
	assert.False(t, ok)

	// 再次删除同一文件视为未知集合
	err := svc.Remove(context.Background(), "a-file-12345")
	require.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestRemoveUnknownFile(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	err := svc.Remove(context.Background(), "a-never-seen")
	require.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeVectorStore(), &fakeEmbedder{}, &fakeExtractor{}, defaultChats(&fakeChat{}))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake-embed", stats["embed_provider"])
	assert.ElementsMatch(t, []string{model.APIOpenAI, model.APIHunyuan}, stats["chat_providers"])
	assert.Contains(t, stats, "metrics")
}
