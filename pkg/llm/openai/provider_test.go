package openai_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docrag/pkg/llm"
	"github.com/kart-io/docrag/pkg/llm/openai"
)

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := llm.NewProvider(openai.ProviderName, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestEmbed(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"data": [
				{"embedding": [0.3, 0.4], "index": 1},
				{"embedding": [0.1, 0.2], "index": 0}
			],
			"model": "text-embedding-3-small"
		}`))
	}))
	defer srv.Close()

	p, err := llm.NewProvider(openai.ProviderName, map[string]any{
		"api_key":  "sk-test",
		"base_url": srv.URL,
	})
	require.NoError(t, err)

	embeddings, err := p.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)

	// 响应乱序返回时按 index 归位
	assert.Equal(t, []float32{0.1, 0.2}, embeddings[0])
	assert.Equal(t, []float32{0.3, 0.4}, embeddings[1])
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestEmbedEmptyInput(t *testing.T) {
	p, err := llm.NewProvider(openai.ProviderName, map[string]any{"api_key": "sk-test"})
	require.NoError(t, err)

	embeddings, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, embeddings)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"role":"user"`)
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "the answer"}, "finish_reason": "stop"}
			]
		}`))
	}))
	defer srv.Close()

	p, err := llm.NewProvider(openai.ProviderName, map[string]any{
		"api_key":  "sk-test",
		"base_url": srv.URL,
	})
	require.NoError(t, err)

	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "question"},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", reply)
}

func TestChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer srv.Close()

	p, err := llm.NewProvider(openai.ProviderName, map[string]any{
		"api_key":  "sk-bad",
		"base_url": srv.URL,
	})
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "q"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
