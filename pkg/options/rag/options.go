// Package rag provides RAG (Retrieval-Augmented Generation) configuration options.
package rag

import (
	"fmt"
	"time"

	"github.com/kart-io/docrag/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains RAG pipeline configuration.
type Options struct {
	// EmbeddingMaxToken is the maximum token count per chunk sent to the
	// embedding provider.
	EmbeddingMaxToken int `json:"embedding-max-token" mapstructure:"embedding-max-token"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// MaxToken is the model context window size in tokens.
	MaxToken int `json:"max-token" mapstructure:"max-token"`

	// OutputToken is the token count reserved for the model response.
	OutputToken int `json:"output-token" mapstructure:"output-token"`

	// TopK is the number of passages to retrieve from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MaxRetries is the total number of attempts for each remote call
	// during ingestion.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// RetryDelay is the fixed delay between retry attempts.
	RetryDelay time.Duration `json:"retry-delay" mapstructure:"retry-delay"`

	// DownloadTimeout bounds the document download step.
	DownloadTimeout time.Duration `json:"download-timeout" mapstructure:"download-timeout"`

	// DataDir is the directory for temporary downloaded documents.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// Workers is the size of the background ingestion worker pool.
	Workers int `json:"workers" mapstructure:"workers"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		EmbeddingMaxToken: 1024,
		EmbeddingDim:      1024,
		MaxToken:          10240,
		OutputToken:       500,
		TopK:              10,
		MaxRetries:        3,
		RetryDelay:        100 * time.Millisecond,
		DownloadTimeout:   10 * time.Minute,
		DataDir:           "_output/rag-data",
		Workers:           8,
	}
}

// TokenBudget 返回提示词可用的 token 预算。
func (o *Options) TokenBudget() int {
	return o.MaxToken - o.OutputToken
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.EmbeddingMaxToken, options.Join(prefixes...)+"rag.embedding-max-token", o.EmbeddingMaxToken, "Maximum token count per embedding chunk.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"rag.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.MaxToken, options.Join(prefixes...)+"rag.max-token", o.MaxToken, "Model context window size in tokens.")
	fs.IntVar(&o.OutputToken, options.Join(prefixes...)+"rag.output-token", o.OutputToken, "Tokens reserved for the model response.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"rag.top-k", o.TopK, "Number of passages from similarity search.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"rag.max-retries", o.MaxRetries, "Total attempts for each remote call during ingestion.")
	fs.DurationVar(&o.RetryDelay, options.Join(prefixes...)+"rag.retry-delay", o.RetryDelay, "Fixed delay between retry attempts.")
	fs.DurationVar(&o.DownloadTimeout, options.Join(prefixes...)+"rag.download-timeout", o.DownloadTimeout, "Timeout for the document download step.")
	fs.StringVar(&o.DataDir, options.Join(prefixes...)+"rag.data-dir", o.DataDir, "Directory for temporary downloaded documents.")
	fs.IntVar(&o.Workers, options.Join(prefixes...)+"rag.workers", o.Workers, "Background ingestion worker pool size.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.EmbeddingMaxToken <= 0 {
		errs = append(errs, fmt.Errorf("embedding-max-token must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.MaxToken <= o.OutputToken {
		errs = append(errs, fmt.Errorf("max-token must be greater than output-token"))
	}
	if o.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("max-retries must be positive"))
	}
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive"))
	}
	return errs
}
