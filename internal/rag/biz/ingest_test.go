package biz

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/rag/store"
	"github.com/kart-io/docrag/pkg/retry"
)

type fakeVectorStore struct {
	collections map[string]int
	upserted    map[string][]store.Document
	passages    []store.Passage
	upsertErrs  int
	searchErr   error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		collections: make(map[string]int),
		upserted:    make(map[string][]store.Document),
	}
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, collection string, dimension int) error {
	f.collections[collection] = dimension
	return nil
}

func (f *fakeVectorStore) HasCollection(_ context.Context, collection string) (bool, error) {
	_, ok := f.collections[collection]
	return ok, nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, collection string, docs []store.Document) error {
	if f.upsertErrs > 0 {
		f.upsertErrs--
		return errors.New("upsert unavailable")
	}
	f.upserted[collection] = append(f.upserted[collection], docs...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, collection string, _ []float32, _ int) ([]store.Passage, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if _, ok := f.collections[collection]; !ok {
		return nil, store.ErrCollectionNotFound
	}
	return f.passages, nil
}

func (f *fakeVectorStore) GetStats(_ context.Context, collection string) (int64, error) {
	return int64(len(f.upserted[collection])), nil
}

func (f *fakeVectorStore) DropCollection(_ context.Context, collection string) error {
	delete(f.collections, collection)
	return nil
}

func (f *fakeVectorStore) Close(_ context.Context) error { return nil }

type fakeEmbedder struct {
	failures int
	calls    int
	empty    bool
}

func (f *fakeEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("embedding unavailable")
	}
	if f.empty {
		return []float32{}, nil
	}
	return []float32{float32(len(text))}, nil
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string { return "fake-embed" }

type fakeExtractor struct {
	paragraphs []model.Paragraph
	err        error
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string) ([]model.Paragraph, error) {
	return f.paragraphs, f.err
}

type fakeDownloader struct {
	dir string
	err error
}

func (f *fakeDownloader) Download(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "downloaded")
	if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func mustFileInfo(t *testing.T, fileName string) *model.FileInfo {
	t.Helper()
	fi, err := model.NewFileInfo(fileName)
	require.NoError(t, err)
	return fi
}

func newTestIngestor(t *testing.T, vs *fakeVectorStore, em *fakeEmbedder, ex *fakeExtractor) (*Ingestor, *ProgressStore, *fakeDownloader) {
	t.Helper()
	progress := NewProgressStore()
	dl := &fakeDownloader{dir: t.TempDir()}
	ing := NewIngestor(vs, em, ex, dl, progress, retry.New(&retry.Config{MaxAttempts: 3, Delay: 0}), &IngestorConfig{
		EmbeddingMaxToken: 20,
		EmbeddingDim:      1,
	})
	return ing, progress, dl
}

func TestIngestHappyPath(t *testing.T) {
	vs := newFakeVectorStore()
	em := &fakeEmbedder{}
	ex := &fakeExtractor{paragraphs: paragraphs("first paragraph", "second", strings.Repeat("長", 30))}

	ing, progress, dl := newTestIngestor(t, vs, em, ex)
	fi := mustFileInfo(t, "建築基準法施行令.pdf")

	require.NoError(t, ing.Ingest(context.Background(), "http://signed", fi))

	assert.Equal(t, 1.0, progress.Get(fi.FileID, 0))
	assert.Equal(t, 1, vs.collections[fi.FileID])
	assert.NotEmpty(t, vs.upserted[fi.FileID])

	// 分块严格保持文档顺序
	var joined strings.Builder
	for _, doc := range vs.upserted[fi.FileID] {
		joined.WriteString(doc.Content)
	}
	assert.Equal(t, "first paragraphsecond"+strings.Repeat("長", 30), joined.String())

	// 临时文件已删除
	_, err := os.Stat(filepath.Join(dl.dir, "downloaded"))
	assert.True(t, os.IsNotExist(err))
}

func TestIngestProgressMonotonic(t *testing.T) {
	vs := newFakeVectorStore()
	em := &fakeEmbedder{}
	contents := make([]string, 7)
	for i := range contents {
		contents[i] = strings.Repeat("章", 20)
	}
	ex := &fakeExtractor{paragraphs: paragraphs(contents...)}

	ing, progress, _ := newTestIngestor(t, vs, em, ex)
	fi := mustFileInfo(t, "doc.pdf")

	require.NoError(t, ing.Ingest(context.Background(), "http://signed", fi))

	// 逐块重放嵌入阶段的进度公式，校验单调且不超过 1
	total := len(vs.upserted[fi.FileID])
	require.Greater(t, total, 1)
	remaining := (1 - progressExtracted) - reservedFraction
	prev := progressExtracted
	for i := 0; i < total; i++ {
		p := progressExtracted + float64(i+1)/float64(total)*remaining
		assert.Greater(t, p, prev)
		assert.LessOrEqual(t, p, 1.0)
		prev = p
	}
	assert.Equal(t, 1.0, progress.Get(fi.FileID, 0))
}

func TestIngestRetriesTransientEmbeddingFailures(t *testing.T) {
	vs := newFakeVectorStore()
	em := &fakeEmbedder{failures: 2}
	ex := &fakeExtractor{paragraphs: paragraphs("content")}

	ing, progress, _ := newTestIngestor(t, vs, em, ex)
	fi := mustFileInfo(t, "doc.pdf")

	require.NoError(t, ing.Ingest(context.Background(), "http://signed", fi))
	assert.Equal(t, 3, em.calls)
	assert.Equal(t, 1.0, progress.Get(fi.FileID, 0))
}

func TestIngestFailsAfterRetriesExhausted(t *testing.T) {
	vs := newFakeVectorStore()
	vs.upsertErrs = 3
	em := &fakeEmbedder{}
	ex := &fakeExtractor{paragraphs: paragraphs("content")}

	ing, progress, _ := newTestIngestor(t, vs, em, ex)
	fi := mustFileInfo(t, "doc.pdf")

	err := ing.Ingest(context.Background(), "http://signed", fi)
	require.Error(t, err)
	assert.Equal(t, ProgressFailed, progress.Get(fi.FileID, 0))
}

func TestIngestFailsOnEmptyParagraphs(t *testing.T) {
	vs := newFakeVectorStore()
	em := &fakeEmbedder{}
	ex := &fakeExtractor{paragraphs: nil}

	ing, progress, _ := newTestIngestor(t, vs, em, ex)
	fi := mustFileInfo(t, "doc.pdf")

	err := ing.Ingest(context.Background(), "http://signed", fi)
	require.ErrorIs(t, err, ErrNoParagraphs)
	assert.Equal(t, ProgressFailed, progress.Get(fi.FileID, 0))
}

func TestIngestFailsOnEmptyEmbedding(t *testing.T) {
	vs := newFakeVectorStore()
	em := &fakeEmbedder{empty: true}
	ex := &fakeExtractor{paragraphs: paragraphs("content")}

	ing, progress, _ := newTestIngestor(t, vs, em, ex)
	fi := mustFileInfo(t, "doc.pdf")

	err := ing.Ingest(context.Background(), "http://signed", fi)
	require.ErrorIs(t, err, ErrEmptyEmbedding)
	assert.Equal(t, ProgressFailed, progress.Get(fi.FileID, 0))
}

func TestIngestFailsOnDownloadError(t *testing.T) {
	vs := newFakeVectorStore()
	em := &fakeEmbedder{}
	ex := &fakeExtractor{paragraphs: paragraphs("content")}

	ing, progress, dl := newTestIngestor(t, vs, em, ex)
	dl.err = errors.New("404 not found")
	fi := mustFileInfo(t, "doc.pdf")

	err := ing.Ingest(context.Background(), "http://signed", fi)
	require.Error(t, err)
	assert.Equal(t, ProgressFailed, progress.Get(fi.FileID, 0))
	assert.Empty(t, vs.upserted)
}

func TestIngestRejectsInvalidFileInfo(t *testing.T) {
	vs := newFakeVectorStore()
	em := &fakeEmbedder{}
	ex := &fakeExtractor{paragraphs: paragraphs("content")}

	ing, _, _ := newTestIngestor(t, vs, em, ex)

	err := ing.Ingest(context.Background(), "http://signed", &model.FileInfo{})
	require.Error(t, err)
}
