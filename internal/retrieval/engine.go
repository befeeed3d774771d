package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/consent"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/memory"
	"github.com/fyrsmithlabs/tutord/internal/reranker"
	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

const (
	// DefaultLimit is the number of records returned from retrieval.
	DefaultLimit = 10

	// DefaultSimilarityThreshold drops weakly related candidates after
	// re-ranking.
	DefaultSimilarityThreshold = 0.7

	// overFetchFactor over-fetches candidates to give the re-ranker room to
	// reorder before thresholding.
	overFetchFactor = 2
)

// Config tunes the retrieval engine.
type Config struct {
	// Limit is the maximum records returned. Zero selects DefaultLimit.
	Limit int

	// SimilarityThreshold is the minimum combined score. Zero selects
	// DefaultSimilarityThreshold.
	SimilarityThreshold float64

	// DefaultDifficulty seeds students without history. Zero selects
	// DefaultDifficulty (3).
	DefaultDifficulty int
}

// Options narrows a single retrieval call.
type Options struct {
	// Subject adds an exact-match subject filter.
	Subject string

	// MemoryTypes restricts results to the given types. Empty means all.
	MemoryTypes []memory.MemoryType

	// Limit overrides the engine's configured limit for this call.
	Limit int
}

// RankedRecord is a retrieved record with its ranking scores.
type RankedRecord struct {
	memory.Record

	// Similarity is the raw vector similarity score.
	Similarity float32

	// Combined is the blended similarity/recency score used for ordering.
	Combined float32
}

// Engine retrieves and re-ranks a student's learning memories.
type Engine struct {
	records           *memory.RecordStore
	ranker            reranker.Reranker
	logger            *logging.Logger
	limit             int
	threshold         float64
	defaultDifficulty int
}

// NewEngine creates a retrieval engine.
func NewEngine(records *memory.RecordStore, ranker reranker.Reranker, cfg Config, logger *logging.Logger) (*Engine, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if ranker == nil {
		return nil, errors.New("reranker is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	threshold := cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be in [0, 1], got %g", threshold)
	}
	defaultDifficulty := cfg.DefaultDifficulty
	if defaultDifficulty == 0 {
		defaultDifficulty = DefaultDifficulty
	}
	if defaultDifficulty < MinDifficulty || defaultDifficulty > MaxDifficulty {
		return nil, fmt.Errorf("default difficulty must be in [%d, %d], got %d", MinDifficulty, MaxDifficulty, defaultDifficulty)
	}

	return &Engine{
		records:           records,
		ranker:            ranker,
		logger:            logger,
		limit:             limit,
		threshold:         threshold,
		defaultDifficulty: defaultDifficulty,
	}, nil
}

// Retrieve returns the student's re-ranked learning memories for the topic,
// along with the assessed difficulty that seeded the window.
//
// minimal_pseudonymous consent short-circuits to an empty set; the difficulty
// estimate still runs so the caller can calibrate a non-personalized answer.
// Fewer than limit survivors are returned as-is, never padded.
func (e *Engine) Retrieve(ctx context.Context, student *consent.Student, topic string, opts Options) ([]RankedRecord, int, error) {
	if student == nil {
		return nil, 0, errors.New("student is required")
	}

	if !student.ConsentLevel.AllowsRetrieval() {
		difficulty, err := e.CurrentDifficulty(ctx, student.ID, topic, opts.Subject)
		if err != nil {
			return nil, 0, err
		}
		e.logger.Debug(ctx, "retrieval skipped by consent",
			zap.String("consent_level", student.ConsentLevel.String()))
		return nil, difficulty, nil
	}

	difficulty, err := e.CurrentDifficulty(ctx, student.ID, topic, opts.Subject)
	if err != nil {
		return nil, 0, err
	}

	filter, err := e.buildFilter(difficulty, opts)
	if err != nil {
		return nil, 0, err
	}

	scopedCtx, err := scopeContext(ctx, student.ID)
	if err != nil {
		return nil, 0, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = e.limit
	}

	candidates, err := e.records.Search(scopedCtx, topic, limit*overFetchFactor, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("candidate search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, difficulty, nil
	}

	ranked, err := e.rerank(ctx, candidates, limit)
	if err != nil {
		return nil, 0, err
	}

	e.logger.Debug(ctx, "retrieval complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(ranked)),
		zap.Int("difficulty", difficulty))

	return ranked, difficulty, nil
}

// buildFilter assembles the metadata constraints for candidate search.
func (e *Engine) buildFilter(difficulty int, opts Options) (*vectorstore.Filter, error) {
	low, high := difficultyWindow(difficulty)

	filter := vectorstore.NewFilter()
	window := make([]string, 0, high-low+1)
	for d := low; d <= high; d++ {
		window = append(window, strconv.Itoa(d))
	}
	filter.In["difficulty_level"] = window

	if opts.Subject != "" {
		filter.Equals["subject"] = opts.Subject
	}

	if len(opts.MemoryTypes) > 0 {
		types := make([]string, 0, len(opts.MemoryTypes))
		for _, mt := range opts.MemoryTypes {
			if !mt.Valid() {
				return nil, fmt.Errorf("%w: %q", memory.ErrInvalidRecord, mt)
			}
			types = append(types, mt.String())
		}
		filter.In["memory_type"] = types
	}

	return filter, nil
}

// rerank blends similarity with recency, thresholds, and truncates. Records
// without parsable timestamps never survive.
func (e *Engine) rerank(ctx context.Context, candidates []memory.ScoredRecord, limit int) ([]RankedRecord, error) {
	docs := make([]reranker.Document, len(candidates))
	for i, rec := range candidates {
		docs[i] = reranker.Document{
			ID:        rec.ID(),
			Content:   rec.Content,
			Score:     rec.Score,
			Timestamp: rec.Timestamp,
		}
	}

	scored, err := e.ranker.Rerank(ctx, docs, 0)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	ranked := make([]RankedRecord, 0, limit)
	for _, doc := range scored {
		if float64(doc.RerankerScore) < e.threshold {
			continue
		}
		rec := candidates[doc.OriginalRank]
		ranked = append(ranked, RankedRecord{
			Record:     rec.Record,
			Similarity: doc.Score,
			Combined:   doc.RerankerScore,
		})
		if len(ranked) == limit {
			break
		}
	}
	return ranked, nil
}
