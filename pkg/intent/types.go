// Package intent holds the nearest-neighbor intent classifier core: the
// per-system vector store, the similarity ranker, and the text normalization
// used to build companion embeddings.
package intent

import "time"

// Question is a labeled training example as it arrives in a train batch.
type Question struct {
	QuestionID   string `json:"QuestionID"`
	IntentID     string `json:"IntentID"`
	QuestionText string `json:"QuestionText"`
}

// Batch is one system's incremental mutation request.
//
// Deletions are applied first, then AddedItems, then EditedItems. Edits
// come after additions so an edit always wins over a same-batch add of the
// same QuestionID.
type Batch struct {
	SystemID     string     `json:"SystemID"`
	AddedItems   []Question `json:"AddedItems"`
	EditedItems  []Question `json:"EditedItems"`
	DeletedItems []Question `json:"DeletedItems"`

	// Replace discards the system's existing records before applying the
	// batch, giving full-replace training semantics.
	Replace bool `json:"Replace,omitempty"`
}

// Record is the stored form of a Question.
type Record struct {
	IntentID  string    `json:"intent_id"`
	Embedding []float32 `json:"embedding"`

	// NormalizedEmbedding is the embedding of the accent-stripped question
	// text. Nil when normalization is disabled or did not change the text.
	NormalizedEmbedding []float32 `json:"normalized_embedding,omitempty"`
}

// Prediction is a ranked intent with a confidence in [0, 1].
type Prediction struct {
	IntentID   string  `json:"IntentID"`
	Confidence float64 `json:"Confidence"`
}

// SystemInfo summarizes one system's record set.
type SystemInfo struct {
	SystemID  string `json:"SystemID"`
	Questions int    `json:"Questions"`
	Intents   int    `json:"Intents"`
}

// SourceQuestion is a row of the external source of truth used to rebuild
// the store from scratch.
type SourceQuestion struct {
	SystemID     string
	QuestionID   string
	QuestionText string
	IntentID     string
}

// SnapshotVersion is the version of the Snapshot layout written by this
// build. Readers reject snapshots with any other version.
const SnapshotVersion = 2

// Snapshot is a whole-store export: system ID -> question ID -> record.
type Snapshot struct {
	Version int                          `json:"version"`
	SavedAt time.Time                    `json:"saved_at"`
	Systems map[string]map[string]Record `json:"systems"`
}

// NewSnapshot returns an empty snapshot at the current version.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		Systems: make(map[string]map[string]Record),
	}
}

// Records returns the total number of question records across systems.
func (s *Snapshot) Records() int {
	n := 0
	for _, records := range s.Systems {
		n += len(records)
	}
	return n
}
