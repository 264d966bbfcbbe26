package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"jlpt-listening/internal/database"

	"gorm.io/gorm"
)

const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Transcript records one ingested source so the same content is not
// structured and stored twice.
type Transcript struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Path        string    `gorm:"size:1024" json:"path"`
	Section     int       `gorm:"uniqueIndex:idx_transcript_hash_section" json:"section"`
	ContentHash string    `gorm:"size:64;uniqueIndex:idx_transcript_hash_section" json:"content_hash"`
	Status      string    `gorm:"size:32" json:"status"`
	Questions   int       `json:"questions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Transcript) TableName() string { return "transcripts" }

func contentHash(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// findTranscript returns the record for a hash and section, or nil.
func findTranscript(ctx context.Context, db *gorm.DB, hash string, section int) (*Transcript, error) {
	rows, err := database.FindWhere[Transcript](ctx, db, "id desc", "content_hash = ? AND section = ?", hash, section)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// beginTranscript creates or resets the record for a run and marks it processing.
func beginTranscript(ctx context.Context, db *gorm.DB, path, hash string, section int) (*Transcript, error) {
	var t *Transcript
	err := database.WithTx(ctx, db, func(tx *gorm.DB) error {
		existing, err := findTranscript(ctx, tx, hash, section)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Path = path
			existing.Status = StatusProcessing
			existing.Questions = 0
			t = existing
			return tx.WithContext(ctx).Save(existing).Error
		}
		t = &Transcript{
			Path:        path,
			Section:     section,
			ContentHash: hash,
			Status:      StatusProcessing,
		}
		return database.CreateEntities(ctx, tx, []*Transcript{t})
	})
	return t, err
}

func finishTranscript(ctx context.Context, db *gorm.DB, t *Transcript, status string, questions int) error {
	if t == nil {
		return errors.New("no transcript record")
	}
	return db.WithContext(ctx).Model(t).Updates(map[string]interface{}{
		"status":    status,
		"questions": questions,
	}).Error
}

// listTranscripts returns every ingest record, newest first.
func listTranscripts(ctx context.Context, db *gorm.DB) ([]Transcript, error) {
	return database.FindWhere[Transcript](ctx, db, "id desc", "1 = 1")
}
