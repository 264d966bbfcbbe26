package vectorstore

import (
	"context"
	"fmt"
	"time"

	"jlpt-listening/config"

	"gorm.io/gorm"
)

// NewIndex builds the configured backend. db is only used by the local backend.
func NewIndex(ctx context.Context, db *gorm.DB) (Index, error) {
	metric := Metric(config.Cfg.Vector.Metric)
	switch config.Cfg.Vector.Backend {
	case "milvus":
		cli, err := ConnectMilvus(ctx, config.Cfg.Milvus.Address, 20, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("%v: connect: %w", config.ModuleMilvus, err)
		}
		return NewMilvusIndex(cli, metric), nil
	case "local":
		if db == nil {
			return nil, fmt.Errorf("%v: local backend needs a database", config.ModuleVector)
		}
		return NewSQLIndex(ctx, db, metric)
	default:
		return nil, fmt.Errorf("%v: unknown backend %q", config.ModuleVector, config.Cfg.Vector.Backend)
	}
}
