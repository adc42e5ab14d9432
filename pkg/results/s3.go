package results

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/logflow/procmine/pkg/errors"
)

// S3Config configures the S3 results backend.
type S3Config struct {
	// Bucket is the S3 bucket for storing reports
	Bucket string

	// Prefix is prepended to all report keys (e.g., "procmine/reports/")
	Prefix string

	// Region is the AWS region
	Region string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Timeout for S3 operations
	Timeout time.Duration
}

// DefaultS3Config returns sensible defaults.
func DefaultS3Config(bucket string) S3Config {
	return S3Config{
		Bucket:  bucket,
		Prefix:  "procmine/reports/",
		Timeout: 30 * time.Second,
	}
}

// S3Backend stores reports as JSON objects in S3.
type S3Backend struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Backend creates a new S3 results backend.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Backend{cfg: cfg, client: client}, nil
}

// key returns the S3 key for a report ID.
func (b *S3Backend) key(id string) string {
	return objectKey(b.cfg.Prefix, id)
}

func objectKey(prefix, id string) string {
	return prefix + id + ".json"
}

// reportID extracts the report ID from an object key, or "" when the key
// is not a report object under prefix.
func reportID(prefix, key string) string {
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, ".json") {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".json")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// Save persists a report to S3.
func (b *S3Backend) Save(ctx context.Context, r *Report) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to marshal report")
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(b.key(r.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to save report to S3").
			WithContext("id", r.ID)
	}
	return nil
}

// Load retrieves a report from S3.
func (b *S3Backend) Load(ctx context.Context, id string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if stderrors.As(err, &nsk) {
			return nil, errors.ReportNotFound(id)
		}
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to load report from S3").
			WithContext("id", id)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to read report data")
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to unmarshal report").
			WithContext("id", id)
	}
	return &r, nil
}

// Delete removes a report from S3.
func (b *S3Backend) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeBackendFailed, "failed to delete report").
			WithContext("id", id)
	}
	return nil
}

// List returns all reports under the prefix, newest first.
func (b *S3Backend) List(ctx context.Context) ([]*Report, error) {
	var reports []*Report
	var continuationToken *string

	for {
		output, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.cfg.Bucket),
			Prefix:            aws.String(b.cfg.Prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeBackendFailed, "failed to list reports")
		}

		for _, obj := range output.Contents {
			id := reportID(b.cfg.Prefix, aws.ToString(obj.Key))
			if id == "" {
				continue
			}
			r, err := b.Load(ctx, id)
			if err != nil {
				continue // Skip unreadable reports
			}
			reports = append(reports, r)
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	sortNewestFirst(reports)
	return reports, nil
}

// Name returns "s3".
func (b *S3Backend) Name() string {
	return "s3"
}
