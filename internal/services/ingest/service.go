package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/generator"
	"jlpt-listening/internal/core/llm"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/pkg/logger"

	"gorm.io/gorm"
)

var (
	ErrNoQuestions = errors.New("no questions extracted")
	ErrNoDatabase  = errors.New("transcript records need a database")
)

// Storer is the vector store write path.
type Storer interface {
	Store(ctx context.Context, questions []question.Question, section int) ([]string, error)
}

type Request struct {
	Path    string `json:"path" validate:"required"`
	Section int    `json:"section" validate:"required,oneof=1 2 3"`
	Force   bool   `json:"force"`
}

type Result struct {
	TranscriptID int64    `json:"transcript_id,omitempty"`
	Chunks       int      `json:"chunks"`
	Questions    int      `json:"questions"`
	IDs          []string `json:"ids"`
	Skipped      bool     `json:"skipped"`
}

// Service turns transcripts into stored questions. db is optional; without it
// every run is processed and nothing is recorded.
type Service struct {
	store   Storer
	chat    llm.ChatClient
	db      *gorm.DB
	objects ObjectGetter
	params  llm.Params
}

func NewService(ctx context.Context, store Storer, chat llm.ChatClient, db *gorm.DB, objects ObjectGetter) (*Service, error) {
	if db != nil {
		if err := db.WithContext(ctx).AutoMigrate(&Transcript{}); err != nil {
			return nil, fmt.Errorf("%v: migrate transcripts: %w", config.ModuleIngest, err)
		}
	}
	params := llm.DefaultParams()
	params.Temperature = 0
	return &Service{store: store, chat: chat, db: db, objects: objects, params: params}, nil
}

// Run fetches the source, extracts questions and stores them in the section.
// A .json source is a seed file of finished questions and skips the model.
// Content already ingested into the same section is skipped unless Force.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if !question.IsValidSection(req.Section) {
		return Result{}, fmt.Errorf("%w: %d", vectorstore.ErrInvalidSection, req.Section)
	}

	tmpPath, cleanup, err := FetchToLocalTemp(ctx, s.objects, req.Path)
	if err != nil {
		logger.Error(err, "%v: fetch file failed", config.ModuleIngest)
		return Result{}, err
	}
	defer cleanup()

	content, err := os.ReadFile(tmpPath)
	if err != nil {
		return Result{}, err
	}
	hash := contentHash(content)

	var record *Transcript
	if s.db != nil {
		existing, err := findTranscript(ctx, s.db, hash, req.Section)
		if err != nil {
			return Result{}, fmt.Errorf("%v: lookup transcript: %w", config.ModuleIngest, err)
		}
		if existing != nil && existing.Status == StatusReady && !req.Force {
			logger.Info("%v: %s already ingested into section %d; skip (no force)", config.ModuleIngest, req.Path, req.Section)
			return Result{TranscriptID: existing.ID, Questions: existing.Questions, IDs: []string{}, Skipped: true}, nil
		}
		if record, err = beginTranscript(ctx, s.db, req.Path, hash, req.Section); err != nil {
			return Result{}, fmt.Errorf("%v: record transcript: %w", config.ModuleIngest, err)
		}
	}

	res, err := s.process(ctx, req, tmpPath)
	if record != nil {
		res.TranscriptID = record.ID
		status := StatusReady
		if err != nil {
			status = StatusFailed
		}
		if ferr := finishTranscript(ctx, s.db, record, status, res.Questions); ferr != nil {
			logger.Error(ferr, "%v: update transcript status failed", config.ModuleIngest)
		}
	}
	return res, err
}

// Transcripts lists the ingest records, newest first.
func (s *Service) Transcripts(ctx context.Context) ([]Transcript, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	return listTranscripts(ctx, s.db)
}

func (s *Service) process(ctx context.Context, req Request, tmpPath string) (Result, error) {
	var (
		questions []question.Question
		chunks    int
	)
	if strings.EqualFold(filepath.Ext(req.Path), ".json") {
		seed, err := ReadSeed(tmpPath)
		if err != nil {
			return Result{}, err
		}
		questions = seed
	} else {
		pages, err := ExtractPages(tmpPath)
		if err != nil {
			logger.Error(err, "%v: extract text failed", config.ModuleIngest)
			return Result{}, err
		}
		built := BuildChunks(pages, config.Cfg.Ingest.ChunkTokens, config.Cfg.Ingest.ChunkOverlap)
		chunks = len(built)
		logger.WithFields(map[string]interface{}{
			"path":   req.Path,
			"pages":  len(pages),
			"chunks": chunks,
		}).Info("ingest: chunks built")

		failed := 0
		for _, ch := range built {
			qs, err := generator.Structure(ctx, s.chat, ch.Content, s.params)
			if err != nil {
				failed++
				logger.Error(err, "%v: structuring chunk %d failed", config.ModuleIngest, ch.ChunkIndex)
				continue
			}
			questions = append(questions, qs...)
		}
		if failed > 0 && failed == len(built) {
			return Result{Chunks: chunks}, fmt.Errorf("%v: all %d chunks failed to structure", config.ModuleIngest, failed)
		}
	}

	if len(questions) == 0 {
		return Result{Chunks: chunks}, ErrNoQuestions
	}
	for i := range questions {
		questions[i].Section = req.Section
	}

	ids, err := s.store.Store(ctx, questions, req.Section)
	if err != nil {
		logger.Error(err, "%v: store questions failed", config.ModuleIngest)
		return Result{Chunks: chunks}, err
	}
	logger.WithFields(map[string]interface{}{
		"path":      req.Path,
		"section":   req.Section,
		"questions": len(ids),
	}).Info("ingest: done")
	return Result{Chunks: chunks, Questions: len(ids), IDs: ids}, nil
}
