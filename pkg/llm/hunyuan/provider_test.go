package hunyuan_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docrag/pkg/llm"
	"github.com/kart-io/docrag/pkg/llm/hunyuan"
)

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := llm.NewProvider(hunyuan.ProviderName, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hunyuan")
	assert.Contains(t, err.Error(), "api_key")
}

func TestName(t *testing.T) {
	p, err := llm.NewProvider(hunyuan.ProviderName, map[string]any{"api_key": "hy-test"})
	require.NoError(t, err)
	assert.Equal(t, "hunyuan", p.Name())
}

func TestBaseURLOverride(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		gotModel = string(body)
		_, _ = w.Write([]byte(`{
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "回答"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	p, err := llm.NewProvider(hunyuan.ProviderName, map[string]any{
		"api_key":  "hy-test",
		"base_url": srv.URL,
	})
	require.NoError(t, err)

	reply, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "问题"}})
	require.NoError(t, err)
	assert.Equal(t, "回答", reply)

	// 未显式配置模型时使用混元默认模型
	assert.Contains(t, gotModel, "hunyuan-turbo")
}
