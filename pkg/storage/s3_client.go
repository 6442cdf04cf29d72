package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrArchiveDisabled is returned by NopArchiver
var ErrArchiveDisabled = errors.New("archive storage is not configured")

// Archiver stores exported reports and hands out download links
type Archiver interface {
	Archive(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
}

// S3Options configures an S3Archiver
type S3Options struct {
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
}

type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Archiver uploads objects with the S3 transfer manager
type S3Archiver struct {
	bucket    string
	prefix    string
	uploader  uploadAPI
	presigner presignAPI
}

// NewS3Archiver builds an archiver from static credentials when given, or
// the default AWS credential chain otherwise.
func NewS3Archiver(ctx context.Context, opts S3Options) (*S3Archiver, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Archiver{
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}, nil
}

// Archive uploads body under prefix/key and returns the object location
func (a *S3Archiver) Archive(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.objectKey(key)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return out.Location, nil
}

// PresignedURL returns a time-limited download link for an archived key
func (a *S3Archiver) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (a *S3Archiver) objectKey(key string) string {
	return path.Join(a.prefix, key)
}

// NopArchiver is used when no bucket is configured
type NopArchiver struct{}

func (NopArchiver) Archive(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	return "", ErrArchiveDisabled
}

func (NopArchiver) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	return "", ErrArchiveDisabled
}
