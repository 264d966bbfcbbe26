package vectorstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/internal/database"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VectorCollection registers a named collection and its dimensionality.
type VectorCollection struct {
	Name      string `gorm:"primaryKey;size:64"`
	Dim       int
	CreatedAt time.Time
}

// VectorEntry is one stored question with its embedding. The question is kept
// as a JSON document so it round-trips unchanged.
type VectorEntry struct {
	ID         string `gorm:"primaryKey;size:128"`
	Collection string `gorm:"index;size:64"`
	Seq        int64
	Section    int
	Embedding  datatypes.JSONType[[]float32]
	Metadata   datatypes.JSONType[question.Question]
	CreatedAt  time.Time
}

// SQLIndex keeps collections in a relational database (SQLite on disk by
// default) and answers queries with an exact scan of the collection.
type SQLIndex struct {
	db     *gorm.DB
	metric Metric
}

func NewSQLIndex(ctx context.Context, db *gorm.DB, metric Metric) (*SQLIndex, error) {
	if err := db.WithContext(ctx).AutoMigrate(&VectorCollection{}, &VectorEntry{}); err != nil {
		return nil, fmt.Errorf("%v: migrate: %w", config.ModuleVector, err)
	}
	return &SQLIndex{db: db, metric: metric}, nil
}

func (x *SQLIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	n, err := database.CountWhere[VectorCollection](ctx, x.db, "name = ?", name)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (x *SQLIndex) EnsureCollection(ctx context.Context, name string, dim int) error {
	_, err := database.GetEntityByName[VectorCollection](ctx, x.db, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return database.CreateEntities(ctx, x.db, []VectorCollection{{Name: name, Dim: dim}})
}

func (x *SQLIndex) Count(ctx context.Context, name string) (int64, error) {
	return database.CountWhere[VectorEntry](ctx, x.db, "collection = ?", name)
}

func (x *SQLIndex) Insert(ctx context.Context, name string, entries []Entry) error {
	rows := make([]VectorEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, VectorEntry{
			ID:         e.ID,
			Collection: name,
			Seq:        e.Seq,
			Section:    e.Section,
			Embedding:  datatypes.NewJSONType(e.Embedding),
			Metadata:   datatypes.NewJSONType(e.Question),
		})
	}
	return database.WithTx(ctx, x.db, func(tx *gorm.DB) error {
		return database.CreateEntities(ctx, tx, rows)
	})
}

func (x *SQLIndex) Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error) {
	rows, err := database.FindWhere[VectorEntry](ctx, x.db, "seq asc", "collection = ?", name)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(rows))
	for _, r := range rows {
		d, err := distance(x.metric, vector, r.Embedding.Data())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.ID, err)
		}
		hits = append(hits, Hit{
			ID:       r.ID,
			Question: r.Metadata.Data(),
			Distance: d,
			Section:  r.Section,
		})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int { return cmp.Compare(a.Distance, b.Distance) })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (x *SQLIndex) Close() error {
	return nil
}
