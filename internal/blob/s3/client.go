// Package s3blob is the cold-storage layer for trade history: closed
// positions and aged fills are serialized to JSONL and uploaded to an
// S3-compatible bucket. It speaks to AWS S3 proper or to self-hosted
// compatibles (MinIO in local development) through the aws-sdk-go-v2 client.
package s3blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig mirrors the [s3] section of the bot's configuration.
type ClientConfig struct {
	// Endpoint overrides the S3 endpoint for compatible providers; empty
	// means AWS S3. A bare host is accepted, the scheme is derived from
	// UseSSL.
	Endpoint string
	Region   string
	// Bucket receives every archive object this process writes.
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// ForcePathStyle puts the bucket in the request path instead of the
	// subdomain. MinIO and most self-hosted providers need it.
	ForcePathStyle bool
}

// Client holds the configured SDK client and the archive bucket. The
// Reader and Writer in this package are views over it.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds the S3 client from cfg with static credentials. It does not
// touch the network; pair it with Health to verify the bucket at startup.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := endpointURL(cfg.Endpoint, cfg.UseSSL)
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Health checks that the archive bucket exists and the credentials can reach
// it.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3blob: bucket %s not reachable: %w", c.bucket, err)
	}
	return nil
}

// Close exists for symmetry with the other wired clients; the SDK's HTTP
// client needs no teardown.
func (c *Client) Close() error {
	return nil
}

// S3 exposes the SDK client to the Reader and Writer.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the archive bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// endpointURL returns the endpoint with a scheme, deriving http/https from
// useSSL when the configured value is a bare host. A prefix check is used
// instead of url.Parse, which reads "host:port" as scheme "host".
func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
