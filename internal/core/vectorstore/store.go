package vectorstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/embedding"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/pkg/logger"
)

const DefaultResults = 5

type sectionState struct {
	mu     sync.Mutex
	seeded bool
	next   int64
}

// Store is the section-partitioned question index: one collection per section,
// written through a per-section lock so id assignment never races.
type Store struct {
	index    Index
	embedder embedding.Embedder
	sections map[int]*sectionState
}

// Open wraps an index; the store owns it and closes it on Close.
func Open(index Index, embedder embedding.Embedder) *Store {
	s := &Store{
		index:    index,
		embedder: embedder,
		sections: make(map[int]*sectionState, len(question.Sections)),
	}
	for _, sec := range question.Sections {
		s.sections[sec] = &sectionState{}
	}
	return s
}

func (s *Store) Close() error {
	return s.index.Close()
}

// Store embeds each question's composite text and appends it to the section's
// collection, creating the collection on first use. Returned ids are unique
// within the section across calls.
func (s *Store) Store(ctx context.Context, questions []question.Question, section int) ([]string, error) {
	state, ok := s.sections[section]
	if !ok {
		return nil, fmt.Errorf("%w: %d (must be one of %v)", ErrInvalidSection, section, question.Sections)
	}
	if len(questions) == 0 {
		return []string{}, nil
	}

	vectors := make([][]float32, len(questions))
	for i, q := range questions {
		vec, err := s.embedder.Embed(ctx, q.CompositeText())
		if err != nil {
			return nil, fmt.Errorf("embed question %d: %w", i, err)
		}
		vectors[i] = vec
	}

	name := CollectionName(section)
	state.mu.Lock()
	defer state.mu.Unlock()

	if err := s.index.EnsureCollection(ctx, name, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("ensure %s: %w", name, err)
	}
	if !state.seeded {
		n, err := s.index.Count(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		state.next, state.seeded = n, true
	}

	entries := make([]Entry, len(questions))
	ids := make([]string, len(questions))
	for i, q := range questions {
		seq := state.next + int64(i)
		ids[i] = EntryID(section, seq)
		entries[i] = Entry{
			ID:        ids[i],
			Seq:       seq,
			Section:   section,
			Embedding: vectors[i],
			Question:  q,
		}
	}
	if err := s.index.Insert(ctx, name, entries); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", name, err)
	}
	state.next += int64(len(entries))

	logger.WithFields(map[string]interface{}{
		"collection": name,
		"stored":     len(entries),
		"next_seq":   state.next,
	}).Info("vector: questions stored")
	return ids, nil
}

// QuerySimilar returns up to n nearest questions ordered by ascending distance.
// A nil section searches every section, skipping those never written to; an
// explicit section that was never written to yields ErrCollectionNotFound.
func (s *Store) QuerySimilar(ctx context.Context, text string, section *int, n int) ([]Hit, error) {
	if n <= 0 {
		n = DefaultResults
	}

	var targets []int
	if section != nil {
		if !question.IsValidSection(*section) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSection, *section)
		}
		name := CollectionName(*section)
		exists, err := s.index.HasCollection(ctx, name)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		targets = []int{*section}
	} else {
		for _, sec := range question.Sections {
			exists, err := s.index.HasCollection(ctx, CollectionName(sec))
			if err != nil {
				return nil, err
			}
			if exists {
				targets = append(targets, sec)
			}
		}
	}
	if len(targets) == 0 {
		return []Hit{}, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var all []Hit
	for _, sec := range targets {
		hits, err := s.index.Search(ctx, CollectionName(sec), vec, n)
		if err != nil {
			logger.Error(err, "%v: search %s failed", config.ModuleVector, CollectionName(sec))
			return nil, err
		}
		all = append(all, hits...)
	}
	slices.SortStableFunc(all, func(a, b Hit) int { return cmp.Compare(a.Distance, b.Distance) })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Count returns the number of stored questions in a section (0 if never written).
func (s *Store) Count(ctx context.Context, section int) (int64, error) {
	if !question.IsValidSection(section) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSection, section)
	}
	name := CollectionName(section)
	exists, err := s.index.HasCollection(ctx, name)
	if err != nil || !exists {
		return 0, err
	}
	return s.index.Count(ctx, name)
}
