// Package retrieval selects a student's most relevant learning memories for
// a query, windowed by current difficulty and re-ranked by recency.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

const (
	// MinDifficulty and MaxDifficulty bound the 1-10 difficulty scale.
	MinDifficulty = 1
	MaxDifficulty = 10

	// DefaultDifficulty seeds students with no history.
	DefaultDifficulty = 3

	// difficultyCandidates bounds the history lookup. Any match is equally
	// valid; only the newest one is used.
	difficultyCandidates = 10
)

// CurrentDifficulty returns the student's most recently recorded difficulty
// level for the topic and subject, or defaultLevel when no history exists.
// This runs standalone under minimal consent: a single difficulty integer is
// a non-identifying aggregate.
func (e *Engine) CurrentDifficulty(ctx context.Context, studentID, topic, subject string) (int, error) {
	ctx, err := scopeContext(ctx, studentID)
	if err != nil {
		return 0, err
	}

	filter := vectorstore.NewFilter()
	filter.Equals["topic"] = topic
	if subject != "" {
		filter.Equals["subject"] = subject
	}

	records, err := e.records.Search(ctx, topic, difficultyCandidates, filter)
	if err != nil {
		return 0, fmt.Errorf("difficulty lookup: %w", err)
	}
	if len(records) == 0 {
		return e.defaultDifficulty, nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	for _, rec := range records {
		if level, ok := parseDifficulty(rec.Metadata["difficulty_level"]); ok {
			return clampDifficulty(level), nil
		}
	}
	return e.defaultDifficulty, nil
}

// difficultyWindow returns the inclusive band of acceptable difficulty
// levels around d. A record matched by pure similarity may be calibrated too
// far above or below the student's current level to be useful.
func difficultyWindow(d int) (int, int) {
	low := d - 1
	if low < MinDifficulty {
		low = MinDifficulty
	}
	high := d + 1
	if high > MaxDifficulty {
		high = MaxDifficulty
	}
	return low, high
}

// parseDifficulty reads a difficulty level from stored metadata. Difficulty
// is written as a string at the store boundary, but typed backends may hand
// back numbers.
func parseDifficulty(raw any) (int, bool) {
	switch v := raw.(type) {
	case string:
		level, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return level, true
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func clampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// scopeContext attaches the per-student owner scope for store calls.
func scopeContext(ctx context.Context, studentID string) (context.Context, error) {
	scope := &vectorstore.Scope{StudentID: studentID}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return vectorstore.ContextWithScope(ctx, scope), nil
}
