package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Signer mints time-limited upload URLs for single objects.
type Signer interface {
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
}

// S3Presigner is the subset of *s3.PresignClient used by S3Signer.
type S3Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var _ S3Presigner = (*s3.PresignClient)(nil)

// S3Signer presigns PutObject requests against an S3 bucket.
type S3Signer struct {
	presigner S3Presigner
	bucket    string
}

// NewS3Signer creates an S3Signer for bucket.
func NewS3Signer(presigner S3Presigner, bucket string) *S3Signer {
	return &S3Signer{presigner: presigner, bucket: bucket}
}

func (s *S3Signer) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put %s/%s: %w", s.bucket, key, err)
	}
	return req.URL, nil
}

// MinioSigner presigns uploads against an S3-compatible server such as MinIO,
// used for local development outside AWS.
type MinioSigner struct {
	client *minio.Client
	bucket string
}

// MinioOptions configures NewMinioSigner.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// NewMinioSigner creates a MinioSigner. Setting Region avoids a bucket-location
// lookup on first use.
func NewMinioSigner(opts MinioOptions, bucket string) (*MinioSigner, error) {
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}
	return &MinioSigner{client: client, bucket: bucket}, nil
}

func (s *MinioSigner) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expires)
	if err != nil {
		return "", fmt.Errorf("presign put %s/%s: %w", s.bucket, key, err)
	}
	return u.String(), nil
}
