package reranker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

const (
	// DefaultAlpha weights similarity vs recency equally.
	DefaultAlpha = 0.5

	// DefaultDecayRate gives a recency half-life of roughly 7 days.
	DefaultDecayRate = 0.1
)

// timeNow is swappable for tests.
var timeNow = time.Now

// RecencyReranker blends the store's similarity score with an exponential
// recency decay:
//
//	combined = alpha*similarity + (1-alpha)*exp(-decayRate*daysSince)
//
// A learned model would rank better on average, but the blend is
// deterministic and every score is explainable to a reviewer.
type RecencyReranker struct {
	alpha     float64
	decayRate float64
}

// NewRecencyReranker creates a reranker with the given blend weight and
// decay rate. Zero values select the defaults.
func NewRecencyReranker(alpha, decayRate float64) (*RecencyReranker, error) {
	if alpha == 0 && decayRate == 0 {
		return &RecencyReranker{alpha: DefaultAlpha, decayRate: DefaultDecayRate}, nil
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be in [0, 1], got %g", alpha)
	}
	if decayRate < 0 {
		return nil, fmt.Errorf("decay rate must be non-negative, got %g", decayRate)
	}
	if decayRate == 0 {
		decayRate = DefaultDecayRate
	}
	return &RecencyReranker{alpha: alpha, decayRate: decayRate}, nil
}

// Rerank blends similarity and recency for each candidate. Documents without
// a timestamp are dropped: recency cannot be computed for them, and guessing
// "new" or "old" would bias the ranking unpredictably.
func (r *RecencyReranker) Rerank(ctx context.Context, docs []Document, topK int) ([]ScoredDocument, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if topK <= 0 {
		topK = len(docs)
	}
	if len(docs) == 0 {
		return []ScoredDocument{}, nil
	}

	now := timeNow()

	scored := make([]ScoredDocument, 0, len(docs))
	for i, doc := range docs {
		if doc.Timestamp.IsZero() {
			continue
		}

		daysSince := math.Floor(now.Sub(doc.Timestamp).Hours() / 24)
		if daysSince < 0 {
			daysSince = 0
		}
		recency := math.Exp(-r.decayRate * daysSince)
		combined := r.alpha*float64(doc.Score) + (1-r.alpha)*recency

		scored = append(scored, ScoredDocument{
			Document:      doc,
			RerankerScore: float32(combined),
			RecencyScore:  float32(recency),
			OriginalRank:  i,
		})
	}

	// Stable sort: equal combined scores keep retrieval order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankerScore > scored[j].RerankerScore
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Close closes the reranker. RecencyReranker has no resources to clean up.
func (r *RecencyReranker) Close() error {
	return nil
}

var _ Reranker = (*RecencyReranker)(nil)
