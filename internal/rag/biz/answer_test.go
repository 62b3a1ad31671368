package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docrag/internal/rag/store"
	"github.com/kart-io/docrag/pkg/llm"
)

type fakeChat struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeChat) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.calls++
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) Name() string { return "fake-chat" }

func newTestAnswerer(vs *fakeVectorStore) *Answerer {
	return NewAnswerer(vs, &fakeEmbedder{}, &AnswererConfig{
		TopK:        10,
		TokenBudget: 9740,
	})
}

func TestAnswerUnknownFileID(t *testing.T) {
	vs := newFakeVectorStore()
	a := newTestAnswerer(vs)
	chat := &fakeChat{reply: "ignored"}

	_, err := a.Answer(context.Background(), "question", "a-never-ingested", chat)
	require.ErrorIs(t, err, store.ErrCollectionNotFound)
	assert.Zero(t, chat.calls)
}

func TestAnswerEmptySearchSkipsChat(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["a-file"] = 1
	a := newTestAnswerer(vs)
	chat := &fakeChat{reply: "ignored"}

	result, err := a.Answer(context.Background(), "question", "a-file", chat)
	require.NoError(t, err)
	assert.Equal(t, NotFoundAnswer, result.Answer)
	assert.False(t, result.Found)
	assert.Zero(t, chat.calls)
}

func TestAnswerBuildsBudgetedPrompt(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["a-file"] = 1
	vs.passages = []store.Passage{
		{ID: "1", Score: 0.9, Content: "第一条 用語の定義。"},
		{ID: "2", Score: 0.8, Content: "第二条 面積の算定方法。"},
	}
	a := newTestAnswerer(vs)
	chat := &fakeChat{reply: "敷地面積は水平投影面積による。"}

	result, err := a.Answer(context.Background(), "敷地面積の算定方法は？", "a-file", chat)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "敷地面積は水平投影面積による。", result.Answer)

	require.Equal(t, 1, chat.calls)
	require.Len(t, chat.prompts, 1)
	prompt := chat.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, AskIntroduction))
	assert.Contains(t, prompt, "第一条 用語の定義。")
	assert.Contains(t, prompt, "第二条 面積の算定方法。")
	assert.True(t, strings.HasSuffix(prompt, "Question: 敷地面積の算定方法は？"))
}

func TestAnswerPropagatesChatError(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["a-file"] = 1
	vs.passages = []store.Passage{{ID: "1", Score: 0.9, Content: "text"}}
	a := newTestAnswerer(vs)
	chat := &fakeChat{err: errors.New("chat down")}

	_, err := a.Answer(context.Background(), "question", "a-file", chat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat down")
}
