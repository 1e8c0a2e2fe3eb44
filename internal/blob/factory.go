package blob

import (
	"context"
	"fmt"

	"github.com/rgayle/waterwatch/internal/config"
)

// Open selects a Store implementation from the loaded configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch Driver(cfg.BlobDriver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.BlobDir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:   cfg.BlobBucket,
			Region:   cfg.BlobRegion,
			Endpoint: cfg.BlobEndpoint,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}
