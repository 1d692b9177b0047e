package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/JonMunkholm/stateport/internal/config"
)

// GCS writes snapshots to a Google Cloud Storage bucket using application
// default credentials.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

func NewGCS(ctx context.Context, cfg config.ArchiveConfig) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: gcs client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put refuses to overwrite an existing object.
func (a *GCS) Put(ctx context.Context, name string, data []byte, contentType string) error {
	key := objectKey(a.prefix, name)
	w := a.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("archive: write gs://%s/%s: %w", a.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: finalize gs://%s/%s: %w", a.name, key, err)
	}
	return nil
}

func (a *GCS) Close() error {
	return a.client.Close()
}
