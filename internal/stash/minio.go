package stash

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// MinIO keeps uploaded images in an object-storage bucket for deployments
// where API instances do not share a local filesystem.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO wraps an established MinIO client.
func NewMinIO(client *minio.Client, bucket string) *MinIO {
	return &MinIO{client: client, bucket: bucket}
}

// Store uploads the image under a generated object name and returns it.
func (m *MinIO) Store(ctx context.Context, r io.Reader, size int64, originalName, contentType string) (string, error) {
	name := generateName(originalName)

	_, err := m.client.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}
	return name, nil
}

// Open returns a reader over a stored object. The object is stat'ed first so
// a missing file surfaces here rather than on first read.
func (m *MinIO) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	name := path.Base(storedPath)

	if _, err := m.client.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{}); err != nil {
		if isMissingObject(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}

	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch object: %w", err)
	}
	return obj, nil
}

// Exists reports whether the stored object is present.
func (m *MinIO) Exists(ctx context.Context, storedPath string) bool {
	_, err := m.client.StatObject(ctx, m.bucket, path.Base(storedPath), minio.StatObjectOptions{})
	return err == nil
}

// Delete removes a stored object; a missing object is not an error.
func (m *MinIO) Delete(ctx context.Context, storedPath string) error {
	err := m.client.RemoveObject(ctx, m.bucket, path.Base(storedPath), minio.RemoveObjectOptions{})
	if err != nil && !isMissingObject(err) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func isMissingObject(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
