// Package minio wraps the MinIO SDK for document object storage.
package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	minioopts "github.com/kart-io/docrag/pkg/options/minio"
)

// expiresLayout renders timestamps as "MM/DD/YYYY HH:MM:SS GMT+0800".
const expiresLayout = "01/02/2006 15:04:05 GMT-0700"

// Client wraps the MinIO SDK client bound to a single bucket.
type Client struct {
	client *minio.Client
	opts   *minioopts.Options
	loc    *time.Location
}

// New creates a new MinIO client.
func New(opts *minioopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("minio options is nil")
	}

	c, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
	}

	return &Client{
		client: c,
		opts:   opts,
		loc:    loc,
	}, nil
}

// RawClient returns the underlying MinIO client.
func (c *Client) RawClient() *minio.Client {
	return c.client
}

// EnsureBucket creates the configured bucket if it does not exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.opts.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.opts.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put uploads an object into the configured bucket.
func (c *Client) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if err := c.EnsureBucket(ctx); err != nil {
		return err
	}

	_, err := c.client.PutObject(ctx, c.opts.Bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q: %w", objectName, err)
	}
	return nil
}

// PresignedGet returns a presigned download URL for the object together with
// the formatted expiry timestamp of that URL.
func (c *Client) PresignedGet(ctx context.Context, objectName string) (string, string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.opts.Bucket, objectName, c.opts.PresignExpiry, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to presign object %q: %w", objectName, err)
	}

	expires := time.Now().In(c.loc).Add(c.opts.PresignExpiry).Format(expiresLayout)
	return u.String(), expires, nil
}

// Remove deletes an object from the configured bucket.
func (c *Client) Remove(ctx context.Context, objectName string) error {
	if err := c.client.RemoveObject(ctx, c.opts.Bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %q: %w", objectName, err)
	}
	return nil
}
