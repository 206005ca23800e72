package intent

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// normEpsilon keeps L2 normalization finite for zero vectors.
const normEpsilon = 1e-9

type candidate struct {
	questionID string
	companion  bool
	intentID   string
	score      float64
}

// Rank scores every stored embedding against query and returns at most topK
// predictions, one per distinct intent, best first.
//
// Both the primary and the normalized companion embedding of a question are
// candidates. Cosine similarity is rescaled from [-1, 1] to [0, 1]. The
// sorted candidates are walked once; the first (highest scoring) occurrence
// of an intent is emitted and later occurrences are skipped.
func Rank(query []float32, records map[string]Record, topK int) ([]Prediction, error) {
	if topK <= 0 {
		return []Prediction{}, nil
	}
	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}

	q := normalizeVector(query)

	candidates := make([]candidate, 0, len(records))
	for qid, rec := range records {
		score, err := confidence(q, rec.Embedding)
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", qid, err)
		}
		candidates = append(candidates, candidate{questionID: qid, intentID: rec.IntentID, score: score})

		if rec.NormalizedEmbedding != nil {
			score, err := confidence(q, rec.NormalizedEmbedding)
			if err != nil {
				return nil, fmt.Errorf("question %q (normalized): %w", qid, err)
			}
			candidates = append(candidates, candidate{questionID: qid, companion: true, intentID: rec.IntentID, score: score})
		}
	}

	// Ties are broken on question ID, then primary before companion, so the
	// order does not depend on map iteration.
	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.questionID, b.questionID); c != 0 {
			return c
		}
		switch {
		case a.companion == b.companion:
			return 0
		case a.companion:
			return 1
		default:
			return -1
		}
	})

	predictions := make([]Prediction, 0, min(topK, len(candidates)))
	seen := make(map[string]struct{}, topK)
	for _, c := range candidates {
		if _, ok := seen[c.intentID]; ok {
			continue
		}
		seen[c.intentID] = struct{}{}
		predictions = append(predictions, Prediction{IntentID: c.intentID, Confidence: c.score})
		if len(predictions) == topK {
			break
		}
	}

	return predictions, nil
}

// confidence returns the rescaled cosine similarity between the normalized
// query q and the raw embedding v.
func confidence(q []float64, v []float32) (float64, error) {
	if len(v) != len(q) {
		return 0, fmt.Errorf("%w: dimension mismatch: query has %d, stored embedding has %d",
			ErrDependency, len(q), len(v))
	}

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq) + normEpsilon

	var dot float64
	for i, x := range v {
		dot += q[i] * (float64(x) / norm)
	}

	score := (dot + 1) / 2
	return min(max(score, 0), 1), nil
}

func normalizeVector(v []float32) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq) + normEpsilon

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / norm
	}
	return out
}
