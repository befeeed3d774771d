package reranker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func TestRerankPureSimilarityIgnoresTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	r, err := NewRecencyReranker(1.0, DefaultDecayRate)
	require.NoError(t, err)

	docs := []Document{
		{ID: "old_but_similar", Score: 0.9, Timestamp: now.AddDate(0, 0, -30)},
		{ID: "fresh_but_weak", Score: 0.4, Timestamp: now},
	}

	ranked, err := r.Rerank(context.Background(), docs, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "old_but_similar", ranked[0].ID)
	assert.Equal(t, "fresh_but_weak", ranked[1].ID)
}

func TestRerankPureRecencyScores(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	r, err := NewRecencyReranker(0.0, 0.1)
	require.NoError(t, err)

	docs := []Document{
		{ID: "today", Score: 0.1, Timestamp: now},
		{ID: "week_old", Score: 0.99, Timestamp: now.AddDate(0, 0, -7)},
	}

	ranked, err := r.Rerank(context.Background(), docs, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "today", ranked[0].ID)
	assert.InDelta(t, 1.0, float64(ranked[0].RerankerScore), 0.001)
	assert.Equal(t, "week_old", ranked[1].ID)
	assert.InDelta(t, 0.497, float64(ranked[1].RerankerScore), 0.001)
}

func TestRerankDropsDocumentsWithoutTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	r, err := NewRecencyReranker(DefaultAlpha, DefaultDecayRate)
	require.NoError(t, err)

	docs := []Document{
		{ID: "timestamped", Score: 0.5, Timestamp: now},
		{ID: "no_timestamp", Score: 0.99},
	}

	ranked, err := r.Rerank(context.Background(), docs, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "timestamped", ranked[0].ID)
}

func TestRerankBlendsScores(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	r, err := NewRecencyReranker(0.5, 0.1)
	require.NoError(t, err)

	docs := []Document{{ID: "d", Score: 0.8, Timestamp: now}}

	ranked, err := r.Rerank(context.Background(), docs, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	// 0.5*0.8 + 0.5*1.0 = 0.9
	assert.InDelta(t, 0.9, float64(ranked[0].RerankerScore), 0.001)
	assert.InDelta(t, 1.0, float64(ranked[0].RecencyScore), 0.001)
}

func TestRerankTruncatesToTopK(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	r, err := NewRecencyReranker(1.0, DefaultDecayRate)
	require.NoError(t, err)

	docs := []Document{
		{ID: "a", Score: 0.9, Timestamp: now},
		{ID: "b", Score: 0.8, Timestamp: now},
		{ID: "c", Score: 0.7, Timestamp: now},
	}

	ranked, err := r.Rerank(context.Background(), docs, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].ID)
	assert.Equal(t, "b", ranked[1].ID)
}

func TestRerankStableOnTies(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	r, err := NewRecencyReranker(1.0, DefaultDecayRate)
	require.NoError(t, err)

	docs := []Document{
		{ID: "first", Score: 0.5, Timestamp: now},
		{ID: "second", Score: 0.5, Timestamp: now.AddDate(0, 0, -10)},
	}

	ranked, err := r.Rerank(context.Background(), docs, 0)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "first", ranked[0].ID)
	assert.Equal(t, 0, ranked[0].OriginalRank)
	assert.Equal(t, "second", ranked[1].ID)
	assert.Equal(t, 1, ranked[1].OriginalRank)
}

func TestRerankEmptyInput(t *testing.T) {
	r, err := NewRecencyReranker(0, 0)
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRerankNilContext(t *testing.T) {
	r, err := NewRecencyReranker(0, 0)
	require.NoError(t, err)

	_, err = r.Rerank(nil, []Document{{ID: "a"}}, 1) //nolint:staticcheck
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestNewRecencyRerankerValidation(t *testing.T) {
	_, err := NewRecencyReranker(1.5, 0.1)
	assert.Error(t, err)

	_, err = NewRecencyReranker(0.5, -1)
	assert.Error(t, err)

	r, err := NewRecencyReranker(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultAlpha, r.alpha)
	assert.Equal(t, DefaultDecayRate, r.decayRate)
}
