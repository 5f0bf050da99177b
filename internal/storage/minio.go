package storage

import (
	"bytes"
	"context"
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// Basename returns the filename part of an object key.
func Basename(objectKey string) string {
	if objectKey == "" {
		return ""
	}
	return path.Base(objectKey)
}

// contentType sniffs content and falls back to the key's extension when the
// bytes are not recognised.
func contentType(objectKey string, content []byte) string {
	if detected := mimetype.Detect(content); !detected.Is("application/octet-stream") {
		return detected.String()
	}
	if ct := mime.TypeByExtension(path.Ext(objectKey)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (m *MinioStore) PutDocument(ctx context.Context, objectKey string, content []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType(objectKey, content),
	})
	if err != nil {
		return errors.Wrapf(err, "put %s", objectKey)
	}
	return nil
}

func (m *MinioStore) GetDocument(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data := new(bytes.Buffer)
	if _, err := data.ReadFrom(obj); err != nil {
		return nil, errors.Wrap(err, "read object")
	}
	return data.Bytes(), nil
}

// RemoveDocuments deletes every key and reports the first failure.
func (m *MinioStore) RemoveDocuments(ctx context.Context, objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}
	objects := make(chan minio.ObjectInfo, len(objectKeys))
	for _, key := range objectKeys {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var first error
	for res := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
		if res.Err != nil && first == nil {
			first = errors.Wrapf(res.Err, "remove %s", res.ObjectName)
		}
	}
	return first
}
