package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/intents/pkg/embeddings"
)

// Store holds, per system, the live mapping from question ID to Record.
//
// Lock discipline: mu guards the systems map only. Each system has its own
// RWMutex, held exclusively for the whole of ApplyBatch (embedding included)
// and shared for the duration of View. Batches and queries against different
// systems never contend.
type Store struct {
	mu      sync.RWMutex
	systems map[string]*system

	embedder   embeddings.Embedder
	normalize  bool
	dimensions int
	logger     *slog.Logger
}

type system struct {
	mu sync.RWMutex

	// records is replaced wholesale on every successful batch and never
	// mutated after installation. Nil until the first batch succeeds.
	records map[string]Record
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Embedder produces embeddings for questions and queries.
	Embedder embeddings.Embedder

	// Normalize enables the accent-stripped companion embedding.
	Normalize bool

	// Dimensions, when positive, is the embedding length every provider
	// response must have.
	Dimensions int

	// Logger is the configured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewStore creates an empty Store.
func NewStore(c StoreConfig) (*Store, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		systems:    make(map[string]*system),
		embedder:   c.Embedder,
		normalize:  c.Normalize,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// NewEmpty returns an empty Store sharing s's embedder and settings.
func (s *Store) NewEmpty() *Store {
	return &Store{
		systems:    make(map[string]*system),
		embedder:   s.embedder,
		normalize:  s.normalize,
		dimensions: s.dimensions,
		logger:     s.logger,
	}
}

// ValidateBatch checks that every item of b carries its required fields.
func ValidateBatch(b Batch) error {
	if b.SystemID == "" {
		return &ValidationError{Field: "SystemID"}
	}

	check := func(section string, items []Question, full bool) error {
		for i, q := range items {
			field := ""
			switch {
			case q.QuestionID == "":
				field = "QuestionID"
			case full && q.IntentID == "":
				field = "IntentID"
			case full && q.QuestionText == "":
				field = "QuestionText"
			}
			if field != "" {
				return &ValidationError{SystemID: b.SystemID, Section: section, Index: i, Field: field}
			}
		}
		return nil
	}

	if err := check("DeletedItems", b.DeletedItems, false); err != nil {
		return err
	}
	if err := check("AddedItems", b.AddedItems, true); err != nil {
		return err
	}
	return check("EditedItems", b.EditedItems, true)
}

// ApplyBatch applies b to its system atomically. The batch is validated
// before any work is done, and mutation happens on a copy of the system's
// records that is installed only when every embedding succeeded; on error
// the system is left exactly as it was.
func (s *Store) ApplyBatch(ctx context.Context, b Batch) error {
	if err := ValidateBatch(b); err != nil {
		return err
	}

	sys := s.getOrCreate(b.SystemID)
	sys.mu.Lock()
	defer sys.mu.Unlock()

	// Embeddings are never mutated in place, so cloning the map is a full
	// copy of the record set.
	working := make(map[string]Record, len(sys.records)+len(b.AddedItems))
	if !b.Replace {
		maps.Copy(working, sys.records)
	}

	for _, q := range b.DeletedItems {
		delete(working, q.QuestionID)
	}

	for _, q := range slices.Concat(b.AddedItems, b.EditedItems) {
		rec, err := s.embedQuestion(ctx, q)
		if err != nil {
			s.logger.Warn("batch aborted",
				"system_id", b.SystemID,
				"question_id", q.QuestionID,
				"error", err,
			)
			return err
		}
		working[q.QuestionID] = rec
	}

	sys.records = working

	s.logger.Debug("batch applied",
		"system_id", b.SystemID,
		"added", len(b.AddedItems),
		"edited", len(b.EditedItems),
		"deleted", len(b.DeletedItems),
		"records", len(working),
	)

	return nil
}

func (s *Store) embedQuestion(ctx context.Context, q Question) (Record, error) {
	vec, err := s.Embed(ctx, q.QuestionText)
	if err != nil {
		return Record{}, fmt.Errorf("question %q: %w", q.QuestionID, err)
	}

	rec := Record{IntentID: q.IntentID, Embedding: vec}

	if s.normalize {
		if normalized := NormalizeText(q.QuestionText); normalized != q.QuestionText {
			nvec, err := s.Embed(ctx, normalized)
			if err != nil {
				return Record{}, fmt.Errorf("question %q (normalized): %w", q.QuestionID, err)
			}
			rec.NormalizedEmbedding = nvec
		}
	}

	return rec, nil
}

// Embed runs the store's embedder and classifies its failures as ErrTimeout
// or ErrDependency.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embeddings.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrDependency, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrDependency)
	}
	if s.dimensions > 0 && len(vec) != s.dimensions {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, expected %d", ErrDependency, len(vec), s.dimensions)
	}
	return vec, nil
}

// Close releases the embedder.
func (s *Store) Close() error {
	return s.embedder.Close()
}

// View runs fn with the system's record set under its shared lock. fn must
// not retain or modify records.
func (s *Store) View(systemID string, fn func(records map[string]Record) error) error {
	sys := s.get(systemID)
	if sys == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSystem, systemID)
	}

	sys.mu.RLock()
	defer sys.mu.RUnlock()

	if sys.records == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSystem, systemID)
	}

	return fn(sys.records)
}

// GetAll returns a copy of the system's record set.
func (s *Store) GetAll(systemID string) (map[string]Record, error) {
	var out map[string]Record
	err := s.View(systemID, func(records map[string]Record) error {
		out = maps.Clone(records)
		return nil
	})
	return out, err
}

// Systems lists every trained system, sorted by ID.
func (s *Store) Systems() []SystemInfo {
	s.mu.RLock()
	ids := slices.Sorted(maps.Keys(s.systems))
	s.mu.RUnlock()

	infos := make([]SystemInfo, 0, len(ids))
	for _, id := range ids {
		_ = s.View(id, func(records map[string]Record) error {
			intents := make(map[string]struct{}, len(records))
			for _, rec := range records {
				intents[rec.IntentID] = struct{}{}
			}
			infos = append(infos, SystemInfo{
				SystemID:  id,
				Questions: len(records),
				Intents:   len(intents),
			})
			return nil
		})
	}

	return infos
}

// Snapshot exports every trained system.
func (s *Store) Snapshot() *Snapshot {
	snap := NewSnapshot()

	// Release mu before waiting on any system lock: a writer queued on mu
	// would otherwise block readers of every other system.
	s.mu.RLock()
	systems := maps.Clone(s.systems)
	s.mu.RUnlock()

	for id, sys := range systems {
		sys.mu.RLock()
		if sys.records != nil {
			snap.Systems[id] = maps.Clone(sys.records)
		}
		sys.mu.RUnlock()
	}

	return snap
}

// Restore replaces the whole store with the contents of snap. Records whose
// intent ID is empty or whose embedding is missing are dropped. Restore is
// meant for startup and reload; a batch racing with it lands in the
// replaced record set and is lost.
func (s *Store) Restore(snap *Snapshot) {
	systems := make(map[string]*system)

	if snap != nil {
		for id, records := range snap.Systems {
			clean := make(map[string]Record, len(records))
			for qid, rec := range records {
				if rec.IntentID == "" || len(rec.Embedding) == 0 {
					s.logger.Warn("dropping invalid snapshot record",
						"system_id", id,
						"question_id", qid,
					)
					continue
				}
				clean[qid] = rec
			}
			systems[id] = &system{records: clean}
		}
	}

	s.mu.Lock()
	s.systems = systems
	s.mu.Unlock()
}

func (s *Store) get(systemID string) *system {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systems[systemID]
}

func (s *Store) getOrCreate(systemID string) *system {
	if sys := s.get(systemID); sys != nil {
		return sys
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sys, ok := s.systems[systemID]
	if !ok {
		sys = &system{}
		s.systems[systemID] = sys
	}
	return sys
}
