// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kart-io/docrag/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义单个 LLM 供应商配置。
// 同一结构体可通过 flag 前缀配置多个供应商实例。
type ProviderOptions struct {
	// BaseURL API 基础地址，留空使用供应商默认地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// EmbedModel 用于生成嵌入的模型，留空使用供应商默认模型。
	EmbedModel string `json:"embed-model" mapstructure:"embed-model"`

	// ChatModel 用于对话的模型，留空使用供应商默认模型。
	ChatModel string `json:"chat-model" mapstructure:"chat-model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewProviderOptions 创建默认 LLM 供应商配置。
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Timeout: 120 * time.Second,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
// 留空的字段不写入，供应商包内的默认值生效。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	m := map[string]any{}
	if o.BaseURL != "" {
		m["base_url"] = o.BaseURL
	}
	if o.APIKey != "" {
		m["api_key"] = o.APIKey
	}
	if o.EmbedModel != "" {
		m["embed_model"] = o.EmbedModel
	}
	if o.ChatModel != "" {
		m["chat_model"] = o.ChatModel
	}
	if o.Timeout > 0 {
		m["timeout"] = o.Timeout
	}
	return m
}

// Configured reports whether an API key has been provided.
func (o *ProviderOptions) Configured() bool {
	return o != nil && o.APIKey != ""
}

// CompleteFromEnv 在 CLI 参数为空时从环境变量读取 API 密钥。
// prefixes 决定环境变量名，如 ("llm", "openai") 读取 OPENAI_API_KEY。
func (o *ProviderOptions) CompleteFromEnv(prefixes ...string) {
	if o.APIKey != "" || len(prefixes) == 0 {
		return
	}
	name := strings.ToUpper(prefixes[len(prefixes)-1]) + "_API_KEY"
	o.APIKey = os.Getenv(name)
}

// AddFlags adds flags for the provider options under the given prefix.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"base-url", o.BaseURL, "Provider API base URL (empty uses the provider default).")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.EmbedModel, options.Join(prefixes...)+"embed-model", o.EmbedModel, "Embedding model name (empty uses the provider default).")
	fs.StringVar(&o.ChatModel, options.Join(prefixes...)+"chat-model", o.ChatModel, "Chat model name (empty uses the provider default).")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "Provider request timeout.")
}

// Validate validates the provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}
