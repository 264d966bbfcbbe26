package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/pkg/logger"
)

// FailedID is returned by Add when the history could not be persisted.
const FailedID = -1

// Entry is one generated question with its metadata.
type Entry struct {
	ID        int               `json:"id"`
	Timestamp string            `json:"timestamp"`
	Section   int               `json:"section"`
	Topic     string            `json:"topic"`
	Question  question.Question `json:"question"`
}

// Store is the append-only question log. The whole log lives in memory and is
// rewritten through the persister on every append.
type Store struct {
	mu        sync.RWMutex
	entries   []Entry
	persister Persister
	now       func() time.Time
}

// Open loads the persisted log. An unreadable or corrupt document is logged
// and the store starts empty.
func Open(ctx context.Context, persister Persister) *Store {
	s := &Store{persister: persister, now: time.Now}
	doc, err := persister.Load(ctx)
	if err != nil {
		logger.Error(err, "%v: error loading history", config.ModuleHistory)
		return s
	}
	if len(doc) == 0 {
		return s
	}
	var entries []Entry
	if err := json.Unmarshal(doc, &entries); err != nil {
		logger.Error(err, "%v: history document is corrupt, starting empty", config.ModuleHistory)
		return s
	}
	s.entries = entries
	logger.Info("%v: loaded %d entries", config.ModuleHistory, len(entries))
	return s
}

func (s *Store) Close() error {
	return nil
}

// Add appends an entry and persists the full log. The id is the log length at
// insert time. If persisting fails the entry stays in memory, the failure is
// logged and FailedID is returned.
func (s *Store) Add(ctx context.Context, q question.Question, section int, topic string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		ID:        len(s.entries),
		Timestamp: s.now().Format(question.TimestampLayout),
		Section:   section,
		Topic:     topic,
		Question:  q,
	}
	s.entries = append(s.entries, entry)

	doc, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		logger.Error(err, "%v: error encoding history", config.ModuleHistory)
		return FailedID
	}
	if err := s.persister.Save(ctx, doc); err != nil {
		logger.Error(err, "%v: error saving history (entry %d kept in memory only)", config.ModuleHistory, entry.ID)
		return FailedID
	}
	return entry.ID
}

// Get filters by exact section and topic; nil filters match everything.
func (s *Store) Get(section *int, topic *string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if section != nil && e.Section != *section {
			continue
		}
		if topic != nil && e.Topic != *topic {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) GetByID(id int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
