package history

import (
	"context"
	"fmt"

	"jlpt-listening/config"
	s3client "jlpt-listening/pkg/s3"
)

// NewPersister builds the configured history backend.
func NewPersister(ctx context.Context) (Persister, error) {
	switch config.Cfg.History.Backend {
	case "s3":
		cli, err := s3client.GetClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("%v: s3 client: %w", config.ModuleHistory, err)
		}
		return S3Persister{Client: cli, Bucket: config.Cfg.S3.Bucket, Key: config.Cfg.History.S3Key}, nil
	case "file":
		return FilePersister{Path: config.Cfg.History.Path}, nil
	default:
		return nil, fmt.Errorf("%v: unknown backend %q", config.ModuleHistory, config.Cfg.History.Backend)
	}
}
