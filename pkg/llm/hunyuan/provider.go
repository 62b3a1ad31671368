// Package hunyuan 提供腾讯混元 LLM 供应商实现。
// 混元开放了兼容 OpenAI 协议的接口，因此复用 openai 包的实现，
// 仅替换默认地址与模型。
//
// 基本用法：
//
//	import _ "github.com/kart-io/docrag/pkg/llm/hunyuan"
//	import "github.com/kart-io/docrag/pkg/llm"
//
//	provider, err := llm.NewProvider("hunyuan", map[string]any{
//	    "api_key": "your-api-key",
//	})
package hunyuan

import (
	"fmt"

	"github.com/kart-io/docrag/pkg/llm"
	"github.com/kart-io/docrag/pkg/llm/openai"
)

// ProviderName 是混元供应商的名称标识符。
const ProviderName = "hunyuan"

// DefaultBaseURL 混元 OpenAI 兼容接口地址。
const DefaultBaseURL = "https://api.hunyuan.cloud.tencent.com/v1"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Provider 混元供应商实现，内部复用 OpenAI 兼容协议。
type Provider struct {
	*openai.Provider
}

// NewProvider 从配置 map 创建混元供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	if v, ok := configMap["api_key"].(string); !ok || v == "" {
		return nil, fmt.Errorf("hunyuan: api_key 是必需的")
	}

	merged := make(map[string]any, len(configMap)+3)
	merged["base_url"] = DefaultBaseURL
	merged["embed_model"] = "hunyuan-embedding"
	merged["chat_model"] = "hunyuan-turbo"
	for k, v := range configMap {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		merged[k] = v
	}

	inner, err := openai.NewProvider(merged)
	if err != nil {
		return nil, err
	}
	return &Provider{Provider: inner.(*openai.Provider)}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}
