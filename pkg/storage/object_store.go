package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore provides access to namespaced object storage. A namespace
// maps to one bucket; keys inside it are caller-chosen paths.
type ObjectStore interface {
	Put(ctx context.Context, namespace, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, namespace, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, namespace, key string) error
}

// MinioStore implements ObjectStore for MinIO/S3 compatible storage with
// one bucket per media namespace.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore connects to MinIO and ensures the media buckets exist.
func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, bucket := range Namespaces {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return &MinioStore{client: client}, nil
}

// Put uploads an object.
func (m *MinioStore) Put(ctx context.Context, namespace, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, namespace, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// PresignGet generates a pre-signed GET URL.
func (m *MinioStore) PresignGet(ctx context.Context, namespace, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, namespace, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return url.String(), nil
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, namespace, key string) error {
	if err := m.client.RemoveObject(ctx, namespace, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
