package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	cfg "github.com/dafibh/gatherhub/gatherhub-backend/internal/config"
	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
)

// S3BlobRepository implements BlobRepository using AWS S3 or an S3-compatible endpoint
type S3BlobRepository struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3BlobRepository creates a new S3 blob repository
func NewS3BlobRepository(ctx context.Context, s3cfg cfg.S3Config) (*S3BlobRepository, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	repo := &S3BlobRepository{
		client:  client,
		bucket:  s3cfg.Bucket,
		baseURL: publicBaseURL(s3cfg),
	}

	if err := repo.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

// ensureBucket creates the bucket if it doesn't exist. Public read access is configured outside the service.
func (r *S3BlobRepository) ensureBucket(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		var noSuchBucket *types.NoSuchBucket
		if !errors.As(err, &noSuchBucket) {
			return fmt.Errorf("failed to check bucket (may be permission denied): %w", err)
		}
	}

	_, err = r.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(r.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload uploads data to S3 and returns the public URL of the object
func (r *S3BlobRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64, overwrite bool) (string, error) {
	var body io.Reader = data
	if size < 0 {
		buf, err := io.ReadAll(data)
		if err != nil {
			return "", fmt.Errorf("failed to read data: %w", err)
		}
		size = int64(len(buf))
		body = bytes.NewReader(buf)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(objectPath),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("no-cache"),
	}
	if !overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrAlreadyExists, objectPath)
		}
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return r.PublicURL(objectPath), nil
}

// Delete removes an object from S3 storage
func (r *S3BlobRepository) Delete(ctx context.Context, objectPath string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL returns the public URL of an object
func (r *S3BlobRepository) PublicURL(objectPath string) string {
	return r.baseURL + "/" + strings.TrimLeft(objectPath, "/")
}

// publicBaseURL resolves the URL prefix objects are served from.
// Precedence: explicit public base, path-style custom endpoint, virtual-hosted AWS.
func publicBaseURL(s3cfg cfg.S3Config) string {
	switch {
	case s3cfg.PublicBaseURL != "":
		return strings.TrimRight(s3cfg.PublicBaseURL, "/")
	case s3cfg.Endpoint != "":
		return strings.TrimRight(s3cfg.Endpoint, "/") + "/" + s3cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s3cfg.Bucket, s3cfg.Region)
	}
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed"
	}
	return false
}
