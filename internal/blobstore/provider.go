package blobstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// New builds the configured Store.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "gcs":
		store, err := NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		logger.Info("attachments stored in cloud storage", zap.String("bucket", cfg.GCSBucket))
		return store, nil
	case "memory":
		logger.Warn("attachments kept in memory; they are lost on restart")
		return NewMemory(), nil
	case "local", "":
		logger.Info("attachments stored on local disk", zap.String("dir", cfg.LocalDir))
		return NewLocal(cfg.LocalDir, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
