package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/segyhp/repayment-ledger/internal/config"
)

// Uploader stores a rendered report and returns where it landed.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// S3Uploader writes reports to an S3-compatible bucket.
type S3Uploader struct {
	client *minio.Client
	bucket string
}

func NewS3Uploader(cfg config.ReportConfig) (*S3Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &S3Uploader{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the report bucket when it does not exist yet.
func (u *S3Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	key := "ledger-exports/" + name
	if _, err := u.client.PutObject(ctx, u.bucket, key, r, size, minio.PutObjectOptions{ContentType: ContentTypeXLSX}); err != nil {
		return "", fmt.Errorf("s3 put: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}

// FileUploader writes reports to a local directory.
type FileUploader struct {
	dir string
}

func NewFileUploader(dir string) *FileUploader {
	return &FileUploader{dir: dir}
}

func (u *FileUploader) Upload(_ context.Context, name string, r io.Reader, _ int64) (string, error) {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(u.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return path, f.Close()
}

// NewUploader picks S3 when an endpoint is configured, else the local dir.
func NewUploader(ctx context.Context, cfg config.ReportConfig, localDir string) (Uploader, error) {
	if cfg.Endpoint == "" {
		return NewFileUploader(localDir), nil
	}
	u, err := NewS3Uploader(cfg)
	if err != nil {
		return nil, err
	}
	if err := u.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}
	return u, nil
}
