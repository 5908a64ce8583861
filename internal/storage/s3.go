package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by S3Store
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config configures an S3 or S3-compatible bucket
type S3Config struct {
	Bucket         string
	Region         string
	Prefix         string
	AccessKeyID    string
	SecretKey      string
	Endpoint       string
	ForcePathStyle bool
}

// S3Store keeps uploads in an S3 bucket. Content and metadata are stored as
// two objects under the configured prefix.
type S3Store struct {
	client S3Client
	bucket string
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// NewS3Store builds an S3 client from cfg using the default AWS credential
// chain unless static keys are given
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	awsOptions := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		awsOptions = append(awsOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3StoreWithClient wraps a preconfigured client
func NewS3StoreWithClient(client S3Client, bucket, prefix string, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		logger: logger.With(slog.String("component", "s3_store"), slog.String("bucket", bucket)),
	}
}

// Put implements Store
func (s *S3Store) Put(ctx context.Context, meta Object, body io.Reader) (Object, error) {
	meta = prepare(meta, s.now())

	content, err := io.ReadAll(body)
	if err != nil {
		return Object{}, fmt.Errorf("failed to read upload content: %w", err)
	}
	meta.Size = int64(len(content))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(meta.Key, contentSuffix)),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(meta.Size),
		ContentType:   aws.String(meta.ContentType),
	})
	if err != nil {
		return Object{}, classifyS3Error(err, "upload content")
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return Object{}, fmt.Errorf("failed to marshal upload metadata: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(meta.Key, metadataSuffix)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return Object{}, classifyS3Error(err, "upload metadata")
	}

	s.logger.InfoContext(ctx, "Upload stored",
		slog.String("key", meta.Key),
		slog.String("filename", meta.Filename),
		slog.Int64("size_bytes", meta.Size))
	return meta, nil
}

// Open implements Store
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	if err := CheckKey(key); err != nil {
		return nil, Object{}, err
	}

	meta, err := s.readMetadata(ctx, s.objectKey(key, metadataSuffix))
	if err != nil {
		return nil, Object{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key, contentSuffix)),
	})
	if err != nil {
		return nil, Object{}, classifyS3Error(err, "download content")
	}
	return out.Body, meta, nil
}

// List implements Store
func (s *S3Store) List(ctx context.Context) ([]Object, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var objects []Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error(err, "list uploads")
		}
		for _, item := range page.Contents {
			key := aws.ToString(item.Key)
			if !strings.HasSuffix(key, metadataSuffix) {
				continue
			}
			meta, err := s.readMetadata(ctx, key)
			if err != nil {
				s.logger.WarnContext(ctx, "Skipping unreadable upload metadata",
					slog.String("object", key),
					slog.String("error", err.Error()))
				continue
			}
			objects = append(objects, meta)
		}
	}

	sortNewestFirst(objects)
	return objects, nil
}

func (s *S3Store) readMetadata(ctx context.Context, objectKey string) (Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return Object{}, classifyS3Error(err, "download metadata")
	}
	defer out.Body.Close()

	var meta Object
	if err := json.NewDecoder(out.Body).Decode(&meta); err != nil {
		return Object{}, fmt.Errorf("failed to parse upload metadata: %w", err)
	}
	return meta, nil
}

func (s *S3Store) objectKey(key, suffix string) string {
	return s.prefix + key + suffix
}

func classifyS3Error(err error, operation string) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, err)
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
		}
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}
