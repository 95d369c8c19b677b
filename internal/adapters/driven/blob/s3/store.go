// Package s3 implements driven.BlobStore on Amazon S3.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// virtualHostSuffix is the host suffix of virtual-hosted object URLs.
const virtualHostSuffix = ".s3.amazonaws.com"

// Client is the subset of the S3 API the store uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3 connection settings.
type Config struct {
	Bucket string
	Region string

	// Endpoint overrides the S3 endpoint (MinIO, LocalStack) and switches
	// the client to path-style addressing.
	Endpoint string

	// PublicBaseURL replaces https://{bucket}.s3.amazonaws.com in object URLs.
	PublicBaseURL string
}

// Store uploads and deletes objects in one bucket.
type Store struct {
	client  Client
	bucket  string
	baseURL string
}

var _ driven.BlobStore = (*Store)(nil)

// New creates a store using the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a store over an existing client.
func NewWithClient(client Client, cfg Config) *Store {
	base := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if base == "" {
		base = "https://" + cfg.Bucket + virtualHostSuffix
	}
	return &Store{client: client, bucket: cfg.Bucket, baseURL: base}
}

// Put uploads data under key and returns its public URL.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3: put %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

// Delete removes an object. S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// URLToKey parses either a virtual-hosted S3 URL or a URL under the
// configured public base.
func (s *Store) URLToKey(raw string) (bucket, key string, ok bool) {
	if rest, found := strings.CutPrefix(raw, s.baseURL+"/"); found {
		k, err := url.PathUnescape(rest)
		if err != nil || k == "" {
			return "", "", false
		}
		return s.bucket, k, true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	bucket, found := strings.CutSuffix(u.Host, virtualHostSuffix)
	if !found || bucket == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// objectURL escapes each path segment of key and keeps the separators.
func (s *Store) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}
