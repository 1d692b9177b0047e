// Package archive ships export snapshots to object storage for scheduled
// backups.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/stateport/internal/config"
)

// Archiver stores an immutable snapshot object.
type Archiver interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Close() error
}

// New builds the archiver selected by cfg. It returns nil when archiving is
// disabled.
func New(ctx context.Context, cfg config.ArchiveConfig) (Archiver, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, nil
	case "s3":
		a, err := NewS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "gcs":
		a, err := NewGCS(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("archive: unknown backend %q", cfg.Backend)
	}
}

// objectKey joins the configured prefix and name with exactly one slash.
func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}
