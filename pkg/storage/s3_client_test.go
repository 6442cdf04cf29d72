package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = input
	data, _ := io.ReadAll(input.Body)
	f.body = string(data)
	return &manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + aws.ToString(input.Key)}, nil
}

type fakePresigner struct {
	key string
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.key = aws.ToString(params.Key)
	return &v4.PresignedHTTPRequest{URL: "https://signed/" + f.key}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	up := &fakeUploader{}
	a := &S3Archiver{bucket: "reports", prefix: "appraisals", uploader: up, presigner: &fakePresigner{}}

	loc, err := a.Archive(context.Background(), "abc/report.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "https://bucket.s3.amazonaws.com/appraisals/abc/report.pdf", loc)
	assert.Equal(t, "reports", aws.ToString(up.input.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(up.input.ContentType))
	assert.Equal(t, "%PDF", up.body)
}

func TestS3Archiver_ArchiveError(t *testing.T) {
	a := &S3Archiver{bucket: "reports", uploader: &fakeUploader{err: errors.New("access denied")}}

	_, err := a.Archive(context.Background(), "k", "text/csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Archiver_PresignedURL(t *testing.T) {
	p := &fakePresigner{}
	a := &S3Archiver{bucket: "reports", prefix: "appraisals/", presigner: p}

	url, err := a.PresignedURL(context.Background(), "abc/report.csv", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/appraisals/abc/report.csv", url)
}

func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), S3Options{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNopArchiver(t *testing.T) {
	_, err := NopArchiver{}.Archive(context.Background(), "k", "text/csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}
