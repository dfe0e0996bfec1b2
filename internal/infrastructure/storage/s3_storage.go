package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"gallery-server/internal/config"
	"gallery-server/internal/infrastructure/metrics"
)

var errStorageDisabled = errors.New("object storage is not configured; set GALLERY_S3_* to enable remote uploads")

// S3Store handles uploads to S3-compatible object storage. When bucket or
// credentials are missing the store reports itself unconfigured and the
// service falls back to local disk.
type S3Store struct {
	bucket     string
	tenantID   string
	publicHost string
	client     *s3.Client
	presign    *s3.PresignClient
	log        zerolog.Logger
	disabled   bool
}

func NewS3Store(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Store, error) {
	logger := log.With().Str("component", "s3-store").Logger()
	store := &S3Store{
		bucket:     cfg.S3Bucket,
		tenantID:   cfg.S3TenantID,
		publicHost: publicHostFromEndpoint(cfg.S3Endpoint, cfg.S3Region),
		log:        logger,
	}

	if !cfg.IsRemoteStorage() {
		logger.Warn().Msg("GALLERY_S3_BUCKET or credentials are not set; uploads go to local disk")
		store.disabled = true
		return store, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	store.client = client
	store.presign = s3.NewPresignClient(client)
	return store, nil
}

// IsConfigured reports whether remote uploads are possible.
func (s *S3Store) IsConfigured() bool {
	return !s.disabled
}

// Put uploads an object and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if s.disabled {
		return "", errStorageDisabled
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		metrics.RecordStorageOperation("put", "failure", time.Since(start).Seconds())
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.RecordStorageOperation("put", "success", time.Since(start).Seconds())

	return s.PublicURL(key), nil
}

// Delete removes an object. Deleting an absent key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if s.disabled {
		return errStorageDisabled
	}

	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.RecordStorageOperation("delete", "failure", time.Since(start).Seconds())
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	metrics.RecordStorageOperation("delete", "success", time.Since(start).Seconds())
	return nil
}

// Exists checks object presence with a HeadObject request. A missing object
// is (false, nil); transport and permission failures are returned so callers
// never mistake an outage for absence.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.disabled {
		return false, errStorageDisabled
	}

	start := time.Now()
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			metrics.RecordStorageOperation("head", "success", time.Since(start).Seconds())
			return false, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code := apiErr.ErrorCode()
			if code == "NotFound" || code == "NoSuchKey" {
				metrics.RecordStorageOperation("head", "success", time.Since(start).Seconds())
				return false, nil
			}
		}
		metrics.RecordStorageOperation("head", "failure", time.Since(start).Seconds())
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	metrics.RecordStorageOperation("head", "success", time.Since(start).Seconds())
	return true, nil
}

// PublicURL builds the browser-facing URL for a key. Tenant-scoped
// deployments address the bucket as "<tenant>:<bucket>" in the path.
func (s *S3Store) PublicURL(key string) string {
	if s.tenantID != "" {
		return fmt.Sprintf("https://%s/%s:%s/%s", s.publicHost, s.tenantID, s.bucket, key)
	}
	return fmt.Sprintf("https://%s/%s/%s", s.publicHost, s.bucket, key)
}

// SignedURL returns a time-limited GET URL for private buckets.
func (s *S3Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.disabled {
		return "", errStorageDisabled
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return req.URL, nil
}

// publicHostFromEndpoint derives the host used in public URLs. A custom
// endpoint keeps its host; otherwise the standard regional AWS host is used.
func publicHostFromEndpoint(endpoint, region string) string {
	if endpoint == "" {
		return fmt.Sprintf("s3.%s.amazonaws.com", region)
	}
	host := endpoint
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}
