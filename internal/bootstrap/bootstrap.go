package bootstrap

import (
	"context"
	"fmt"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/embedding"
	"jlpt-listening/internal/core/generator"
	"jlpt-listening/internal/core/history"
	"jlpt-listening/internal/core/llm"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/internal/database"
	"jlpt-listening/internal/services/ingest"
	"jlpt-listening/pkg/logger"
	s3client "jlpt-listening/pkg/s3"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gorm.io/gorm"
)

// Deps is everything the binaries share, opened once and closed together.
type Deps struct {
	DB        *gorm.DB
	S3        *s3.Client
	Vectors   *vectorstore.Store
	History   *history.Store
	Chat      llm.ChatClient
	Generator *generator.Generator
	Ingest    *ingest.Service
}

// Open wires the stores, model clients and services from config.Cfg.
func Open(ctx context.Context) (*Deps, error) {
	d := &Deps{}

	db, err := database.Open(ctx)
	if err != nil {
		return nil, err
	}
	d.DB = db

	if cli, err := s3client.GetClient(ctx); err != nil {
		logger.Warn("%v: s3 unavailable: %v", config.ModuleS3, err)
	} else {
		d.S3 = cli
	}

	embedder, err := embedding.New(ctx)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%v: %w", config.ModuleEmbedding, err)
	}
	index, err := vectorstore.NewIndex(ctx, db)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Vectors = vectorstore.Open(index, embedder)

	persister, err := history.NewPersister(ctx)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.History = history.Open(ctx, persister)

	if d.Chat, err = llm.New(ctx); err != nil {
		d.Close()
		return nil, err
	}
	d.Generator = generator.New(d.Vectors, d.History, d.Chat, generator.WithExemplars(config.Cfg.Generation.Exemplars))

	var objects ingest.ObjectGetter
	if d.S3 != nil {
		objects = d.S3
	}
	if d.Ingest, err = ingest.NewService(ctx, d.Vectors, d.Chat, db, objects); err != nil {
		d.Close()
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"vector_backend":  config.Cfg.Vector.Backend,
		"history_backend": config.Cfg.History.Backend,
		"embedding":       config.Cfg.Provider.Embedding,
		"chat":            config.Cfg.Provider.Chat,
	}).Info("bootstrap: dependencies ready")
	return d, nil
}

// Close releases whatever Open managed to acquire.
func (d *Deps) Close() {
	if d.History != nil {
		if err := d.History.Close(); err != nil {
			logger.Error(err, "%v: close failed", config.ModuleHistory)
		}
	}
	if d.Vectors != nil {
		if err := d.Vectors.Close(); err != nil {
			logger.Error(err, "%v: close failed", config.ModuleVector)
		}
	}
	if d.DB != nil {
		if err := database.Close(d.DB); err != nil {
			logger.Error(err, "%v: close failed", config.ModuleDatabase)
		}
	}
}
