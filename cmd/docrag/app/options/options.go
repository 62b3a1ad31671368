// Package options contains flags and options for initializing the server.
package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	ragsvc "github.com/kart-io/docrag/internal/rag"
	cacheopts "github.com/kart-io/docrag/pkg/options/cache"
	llmopts "github.com/kart-io/docrag/pkg/options/llm"
	logopts "github.com/kart-io/docrag/pkg/options/logger"
	milvusopts "github.com/kart-io/docrag/pkg/options/milvus"
	minioopts "github.com/kart-io/docrag/pkg/options/minio"
	ragopts "github.com/kart-io/docrag/pkg/options/rag"
	httpopts "github.com/kart-io/docrag/pkg/options/server/http"
)

// LLMOptions groups per-provider LLM configuration.
type LLMOptions struct {
	// OpenAI configures the OpenAI-compatible provider. It serves embeddings
	// and the default chat path, so an API key is required.
	OpenAI *llmopts.ProviderOptions `json:"openai" mapstructure:"openai"`

	// Hunyuan configures the Tencent Hunyuan provider. Optional; queries
	// with api=hunyuan are rejected when no key is set.
	Hunyuan *llmopts.ProviderOptions `json:"hunyuan" mapstructure:"hunyuan"`
}

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus vector database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// MinioOptions contains object storage configuration.
	MinioOptions *minioopts.Options `json:"minio" mapstructure:"minio"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// RAGOptions contains ingestion and query pipeline configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// LLMOptions contains LLM provider configuration.
	LLMOptions *LLMOptions `json:"llm" mapstructure:"llm"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:   httpopts.NewOptions(),
		LogOptions:    logopts.NewOptions(),
		MilvusOptions: milvusopts.NewOptions(),
		MinioOptions:  minioopts.NewOptions(),
		CacheOptions:  cacheopts.NewOptions(),
		RAGOptions:    ragopts.NewOptions(),
		LLMOptions: &LLMOptions{
			OpenAI:  llmopts.NewProviderOptions(),
			Hunyuan: llmopts.NewProviderOptions(),
		},
		ShutdownTimeout: 30 * time.Second,
	}
}

// AddFlags registers all server flags on the given flag set.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.LogOptions.AddFlags(fs)
	o.MilvusOptions.AddFlags(fs)
	o.MinioOptions.AddFlags(fs)
	o.CacheOptions.AddFlags(fs)
	o.RAGOptions.AddFlags(fs)
	o.LLMOptions.OpenAI.AddFlags(fs, "llm", "openai")
	o.LLMOptions.Hunyuan.AddFlags(fs, "llm", "hunyuan")

	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return err
	}
	if err := o.MinioOptions.Complete(); err != nil {
		return err
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return err
	}

	o.LLMOptions.OpenAI.CompleteFromEnv("llm", "openai")
	o.LLMOptions.Hunyuan.CompleteFromEnv("llm", "hunyuan")
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate())
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.MinioOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.LLMOptions.OpenAI.Validate()...)
	errs = append(errs, o.LLMOptions.Hunyuan.Validate()...)

	return errors.Join(errs...)
}

// Config builds a ragsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*ragsvc.Config, error) {
	return &ragsvc.Config{
		HTTPOptions:     o.HTTPOptions,
		LogOptions:      o.LogOptions,
		MilvusOptions:   o.MilvusOptions,
		MinioOptions:    o.MinioOptions,
		CacheOptions:    o.CacheOptions,
		RAGOptions:      o.RAGOptions,
		OpenAIOptions:   o.LLMOptions.OpenAI,
		HunyuanOptions:  o.LLMOptions.Hunyuan,
		ShutdownTimeout: o.ShutdownTimeout,
	}, nil
}
