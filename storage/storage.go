// Package storage keeps uploaded report images in S3 or on local disk.
package storage

import (
	"context"
	"fmt"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/services"
)

// New returns the object store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (services.ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "local", "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
