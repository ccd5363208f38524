package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/logging"
)

// Environment variables holding the archive credentials
const (
	AccessKeyEnvVar    = "AWS_ACCESS_KEY_ID"
	SecretKeyEnvVar    = "AWS_SECRET_ACCESS_KEY"
	SessionTokenEnvVar = "AWS_SESSION_TOKEN"
)

// ObjectStore is the part of the S3 API used by the archiver. *s3.Client
// satisfies it.
type ObjectStore interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Client
type S3Options struct {
	Region   string
	Endpoint string // S3-compatible endpoint; path-style addressing is used when set
}

// NewS3Client builds an S3 client with static credentials read from the
// environment.
func NewS3Client(opts S3Options) *s3.Client {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	o := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	}
	return s3.New(o)
}

func envCredentials(ctx context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv(AccessKeyEnvVar), os.Getenv(SecretKeyEnvVar)
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("%s and %s must be set", AccessKeyEnvVar, SecretKeyEnvVar)
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv(SessionTokenEnvVar),
		Source:          "environment",
	}, nil
}

// S3Archiver uploads a finished capture file to a bucket.
type S3Archiver struct {
	store  ObjectStore
	bucket string
	prefix string
	source func() string
}

// NewS3Archiver creates an archiver uploading the file named by source
// (typically Recorder.Path) under prefix in bucket.
func NewS3Archiver(store ObjectStore, bucket, prefix string, source func() string) *S3Archiver {
	return &S3Archiver{store: store, bucket: bucket, prefix: prefix, source: source}
}

// Verify checks that the bucket is reachable. It has the shape of a
// startup hook, so a missing bucket fails the startup.
func (a *S3Archiver) Verify(ctx context.Context) error {
	_, err := a.store.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not reachable: %w", a.bucket, err)
	}
	logging.Info("Capture archive bucket verified", zap.String("bucket", a.bucket))
	return nil
}

// Upload puts the capture file into the bucket. It has the shape of a
// shutdown hook. Nothing is uploaded when no file was written.
func (a *S3Archiver) Upload(ctx context.Context) error {
	name := a.source()
	if name == "" {
		logging.Debug("No capture file to archive")
		return nil
	}

	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := a.Key(name)
	_, err = a.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}

	logging.Info("Capture file archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
	)
	return nil
}

// Key returns the object key for a capture file.
func (a *S3Archiver) Key(name string) string {
	return path.Join(a.prefix, filepath.Base(name))
}
