// Package minio provides MinIO object storage configuration options.
package minio

import (
	"fmt"
	"os"
	"time"

	"github.com/kart-io/docrag/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains MinIO client configuration.
type Options struct {
	// Endpoint is the MinIO server address (host:port).
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// AccessKey for authentication.
	AccessKey string `json:"-" mapstructure:"access-key"`

	// SecretKey for authentication.
	SecretKey string `json:"-" mapstructure:"secret-key"`

	// UseSSL enables TLS for the connection.
	UseSSL bool `json:"use-ssl" mapstructure:"use-ssl"`

	// Bucket is the bucket holding uploaded documents.
	Bucket string `json:"bucket" mapstructure:"bucket"`

	// PresignExpiry is the validity period of presigned download URLs.
	PresignExpiry time.Duration `json:"presign-expiry" mapstructure:"presign-expiry"`

	// Timezone is the IANA timezone used to format URL expiry timestamps.
	Timezone string `json:"timezone" mapstructure:"timezone"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Endpoint:      "localhost:9000",
		UseSSL:        false,
		Bucket:        "rag",
		PresignExpiry: 7 * 24 * time.Hour,
		Timezone:      "Asia/Shanghai",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, options.Join(prefixes...)+"minio.endpoint", o.Endpoint, "MinIO server address (host:port).")
	fs.StringVar(&o.AccessKey, options.Join(prefixes...)+"minio.access-key", o.AccessKey, "MinIO access key (prefer the MINIO_ACCESS_KEY environment variable).")
	fs.StringVar(&o.SecretKey, options.Join(prefixes...)+"minio.secret-key", o.SecretKey, "MinIO secret key (prefer the MINIO_SECRET_KEY environment variable).")
	fs.BoolVar(&o.UseSSL, options.Join(prefixes...)+"minio.use-ssl", o.UseSSL, "Use TLS for the MinIO connection.")
	fs.StringVar(&o.Bucket, options.Join(prefixes...)+"minio.bucket", o.Bucket, "Bucket holding uploaded documents.")
	fs.DurationVar(&o.PresignExpiry, options.Join(prefixes...)+"minio.presign-expiry", o.PresignExpiry, "Validity period of presigned download URLs.")
	fs.StringVar(&o.Timezone, options.Join(prefixes...)+"minio.timezone", o.Timezone, "IANA timezone for URL expiry timestamps.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Endpoint == "" {
		errs = append(errs, fmt.Errorf("minio endpoint is required"))
	}
	if o.Bucket == "" {
		errs = append(errs, fmt.Errorf("minio bucket is required"))
	}
	if o.PresignExpiry <= 0 {
		errs = append(errs, fmt.Errorf("minio presign-expiry must be positive"))
	}
	return errs
}

// Complete 在 CLI 参数为空时从环境变量读取密钥。
func (o *Options) Complete() error {
	if o.AccessKey == "" {
		o.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	}
	if o.SecretKey == "" {
		o.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	}
	return nil
}
