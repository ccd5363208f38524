package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeStore struct {
	headErr error
	putErr  error

	headBucket string
	putBucket  string
	putKey     string
	putBody    string
	puts       int
}

func (f *fakeStore) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.headBucket = aws.ToString(params.Bucket)
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeStore) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts++
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putBucket = aws.ToString(params.Bucket)
	f.putKey = aws.ToString(params.Key)
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.putBody = string(body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiverVerify(t *testing.T) {
	store := &fakeStore{}
	arch := NewS3Archiver(store, "captures", "lab", func() string { return "" })

	if err := arch.Verify(context.Background()); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if store.headBucket != "captures" {
		t.Errorf("HeadBucket bucket = %q, want captures", store.headBucket)
	}

	store.headErr = errors.New("NotFound")
	if err := arch.Verify(context.Background()); err == nil || !strings.Contains(err.Error(), "captures") {
		t.Errorf("Verify() error = %v, want bucket failure", err)
	}
}

func TestS3ArchiverUpload(t *testing.T) {
	name := filepath.Join(t.TempDir(), "capture-20250314-092653.jsonl")
	if err := os.WriteFile(name, []byte("{\"message_num\":1}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store := &fakeStore{}
	arch := NewS3Archiver(store, "captures", "lab/", func() string { return name })

	if err := arch.Upload(context.Background()); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if store.putBucket != "captures" || store.putKey != "lab/capture-20250314-092653.jsonl" {
		t.Errorf("PutObject = %s/%s", store.putBucket, store.putKey)
	}
	if store.putBody != "{\"message_num\":1}\n" {
		t.Errorf("PutObject body = %q", store.putBody)
	}

	store.putErr = errors.New("AccessDenied")
	if err := arch.Upload(context.Background()); err == nil {
		t.Error("Upload() should return the put error")
	}
}

func TestS3ArchiverUploadWithoutFile(t *testing.T) {
	store := &fakeStore{}

	for _, source := range []string{"", filepath.Join(t.TempDir(), "missing.jsonl")} {
		arch := NewS3Archiver(store, "captures", "", func() string { return source })
		if err := arch.Upload(context.Background()); err != nil {
			t.Errorf("Upload(%q) error = %v", source, err)
		}
	}
	if store.puts != 0 {
		t.Errorf("PutObject called %d times, want 0", store.puts)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv(AccessKeyEnvVar, "")
	t.Setenv(SecretKeyEnvVar, "")
	if _, err := envCredentials(context.Background()); err == nil {
		t.Error("envCredentials() without variables should fail")
	}

	t.Setenv(AccessKeyEnvVar, "AKIDEXAMPLE")
	t.Setenv(SecretKeyEnvVar, "secret")
	creds, err := envCredentials(context.Background())
	if err != nil {
		t.Fatalf("envCredentials() error = %v", err)
	}
	if creds.AccessKeyID != "AKIDEXAMPLE" || creds.SecretAccessKey != "secret" {
		t.Errorf("credentials = %+v", creds)
	}
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(S3Options{Endpoint: "http://127.0.0.1:9000"})
	opts := client.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://127.0.0.1:9000" {
		t.Errorf("client options = region %q path-style %v endpoint %q", opts.Region, opts.UsePathStyle, aws.ToString(opts.BaseEndpoint))
	}
}
