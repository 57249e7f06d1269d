package miniodrive

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kirillkom/docudesk/internal/core/ports"
)

// Drive is the S3-compatible remote storage capability, backed by MinIO.
type Drive struct {
	client *minio.Client
	bucket string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func New(ctx context.Context, cfg Config) (*Drive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Drive{client: client, bucket: cfg.Bucket}, nil
}

func (d *Drive) Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	info, err := d.client.PutObject(ctx, d.bucket, key, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return info.Key, nil
}

func (d *Drive) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return obj, nil
}

func (d *Drive) Stat(ctx context.Context, objectKey string) (ports.DriveObjectInfo, error) {
	info, err := d.client.StatObject(ctx, d.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		return ports.DriveObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}
	return ports.DriveObjectInfo{
		Key:         info.Key,
		Name:        path.Base(info.Key),
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
	}, nil
}
