package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"licensing-ledger/internal/domain"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

// UploadEvent is a file landing in a temporary document collection.
type UploadEvent struct {
	CollectionID uuid.UUID
	Filename     string
	ObjectKey    string
	EventName    string
}

type UploadEventSource interface {
	Run(ctx context.Context, handler func(context.Context, UploadEvent) error) error
}

type MinioUploadEventSource struct {
	client *minio.Client
	bucket string
	suffix string
}

func NewMinioUploadEventSource(client *minio.Client, bucket string, suffix string) *MinioUploadEventSource {
	return &MinioUploadEventSource{
		client: client,
		bucket: bucket,
		suffix: suffix,
	}
}

// Run blocks until ctx is done or the notification stream fails. Keys
// outside the temporary prefix are skipped.
func (s *MinioUploadEventSource) Run(ctx context.Context, handler func(context.Context, UploadEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, domain.TemporaryPrefix, s.suffix, []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				objectKey, err := decodeObjectKey(record.S3.Object.Key)
				if err != nil {
					continue
				}
				collectionID, filename, err := parseObjectKey(objectKey)
				if err != nil {
					continue
				}
				event := UploadEvent{
					CollectionID: collectionID,
					Filename:     filename,
					ObjectKey:    objectKey,
					EventName:    record.EventName,
				}
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}

// parseObjectKey splits tmp/<collection>/<filename>.
func parseObjectKey(objectKey string) (uuid.UUID, string, error) {
	cleaned := strings.Trim(strings.ReplaceAll(objectKey, "\\", "/"), "/")
	rest, ok := strings.CutPrefix(cleaned, domain.TemporaryPrefix)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("object key %q is outside %s", objectKey, domain.TemporaryPrefix)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return uuid.Nil, "", fmt.Errorf("object key %q does not match %scollection/filename", objectKey, domain.TemporaryPrefix)
	}
	collectionID, err := uuid.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("object key %q has no collection id: %w", objectKey, err)
	}
	filename := strings.TrimSpace(parts[1])
	if filename == "" {
		return uuid.Nil, "", fmt.Errorf("object key %q missing filename", objectKey)
	}
	return collectionID, filename, nil
}
