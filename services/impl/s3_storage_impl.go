package impl

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const defaultPresignExpiry = 10 * time.Minute

// s3StorageImpl backs uploaded documents with S3. Public reads go through
// the CDN base URL when one is configured.
type s3StorageImpl struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	region     string
	cdnBaseURL string
}

func NewS3Storage(ctx context.Context, cfg *config.AWSConfig) (services.ObjectStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &s3StorageImpl{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.S3Bucket,
		region:     cfg.Region,
		cdnBaseURL: strings.TrimRight(cfg.CDNBaseURL, "/"),
	}, nil
}

func (s *s3StorageImpl) DownloadToTemp(ctx context.Context, key string) (string, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", models.NewUpstreamError("failed to download object "+key, err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "elysium-doc-*"+filepath.Ext(key))
	if err != nil {
		return "", models.NewInternalError("failed to create temp file", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", models.NewInternalError("failed to write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", models.NewInternalError("failed to close temp file", err)
	}
	return tmp.Name(), nil
}

func (s *s3StorageImpl) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", models.NewUpstreamError("failed to presign upload for "+key, err)
	}
	return req.URL, nil
}

// ObjectURL prefers the CDN when configured, otherwise the virtual-hosted
// S3 URL. Keys are URL-escaped path segment by segment.
func (s *s3StorageImpl) ObjectURL(key string) string {
	encoded := encodeObjectKey(key)
	if s.cdnBaseURL != "" {
		return s.cdnBaseURL + "/" + encoded
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, encoded)
}

func encodeObjectKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// BuildObjectKey joins a folder path and filename into a normalized S3 key,
// collapsing repeated slashes.
func BuildObjectKey(folderPath, fileName string) string {
	var parts []string
	for _, part := range strings.Split(strings.Trim(folderPath, "/"), "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	parts = append(parts, fileName)
	return strings.Join(parts, "/")
}
