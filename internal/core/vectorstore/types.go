package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"jlpt-listening/internal/core/question"
)

var (
	ErrInvalidSection     = errors.New("invalid section")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

// CollectionName is the stable name of a section's persistent collection.
func CollectionName(section int) string {
	return fmt.Sprintf("jlpt_section%d_questions", section)
}

// EntryID is the id of the seq-th question ever stored in a section.
func EntryID(section int, seq int64) string {
	return fmt.Sprintf("section%d_question_%d", section, seq)
}

// Entry is an immutable row of a section index.
type Entry struct {
	ID        string
	Seq       int64
	Section   int
	Embedding []float32
	Question  question.Question
}

// Hit is one similarity search result. Smaller Distance means more similar.
type Hit struct {
	ID       string            `json:"id"`
	Question question.Question `json:"metadata"`
	Distance float32           `json:"distance"`
	Section  int               `json:"section"`
}

// Index is a persistent nearest-neighbor backend holding named collections.
type Index interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	EnsureCollection(ctx context.Context, name string, dim int) error
	Count(ctx context.Context, name string) (int64, error)
	Insert(ctx context.Context, name string, entries []Entry) error
	Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error)
	Close() error
}
