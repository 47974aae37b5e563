package blob

import (
	"context"
	"fmt"

	"github.com/diewo77/go-quotes/internal/config"
)

// Open builds the store selected by cfg. It returns nil when archiving is disabled.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "fs":
		return NewFS(cfg.FSRoot)
	case "s3":
		return NewS3(ctx, S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region, Endpoint: cfg.S3Endpoint, PathStyle: cfg.S3PathStyle})
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}
