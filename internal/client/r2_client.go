package client

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stillmind/api/internal/config"
)

// StorageClient is the artifact sink for finished renders. The worker only
// ever writes: artifacts are immutable once uploaded and are served straight
// from the CDN, so there is no delete or signed-read surface here.
type StorageClient interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PublicURL(key string) string
	IsConfigured() bool
}

// R2Client stores render artifacts in a Cloudflare R2 bucket via the S3 API.
// Keys follow renders/<trackID>/<jobID>.<ext>.
type R2Client struct {
	s3     *s3.Client
	bucket string
	cdnURL string
}

// NewR2Client builds an R2-backed artifact store. It fails fast on an
// incomplete configuration so the caller can fall back to mock URLs instead
// of discovering missing credentials mid-render.
func NewR2Client(cfg *config.R2Config) (*R2Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &R2Client{
		s3:     s3Client,
		bucket: cfg.BucketName,
		cdnURL: cfg.PublicURL,
	}, nil
}

// Upload writes one artifact and returns the URL clients should fetch it
// from.
func (c *R2Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact %s: %w", key, err)
	}
	return c.PublicURL(key), nil
}

// PublicURL maps a bucket key to its CDN address, falling back to the raw
// bucket endpoint when no CDN domain is configured.
func (c *R2Client) PublicURL(key string) string {
	if c.cdnURL != "" {
		return fmt.Sprintf("%s/%s", c.cdnURL, key)
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", c.bucket, key)
}

// IsConfigured reports whether uploads can be attempted.
func (c *R2Client) IsConfigured() bool {
	return c.s3 != nil && c.bucket != ""
}
