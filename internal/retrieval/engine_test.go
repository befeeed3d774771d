package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/consent"
	"github.com/fyrsmithlabs/tutord/internal/memory"
	"github.com/fyrsmithlabs/tutord/internal/reranker"
	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

type queryCall struct {
	query  string
	k      int
	filter *vectorstore.Filter
}

// fakeStore returns queued result sets in order and records each query.
type fakeStore struct {
	queued   [][]vectorstore.SearchResult
	calls    []queryCall
	queryErr error
}

func (f *fakeStore) AddDocuments(_ context.Context, docs []vectorstore.Document) ([]string, error) {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func (f *fakeStore) Query(ctx context.Context, _, query string, k int, filter *vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	if _, err := vectorstore.ScopeFromContext(ctx); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, queryCall{query: query, k: k, filter: filter})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queued) == 0 {
		return nil, nil
	}
	results := f.queued[0]
	f.queued = f.queued[1:]
	return results, nil
}

func (f *fakeStore) DeleteDocuments(_ context.Context, _ string, _ []string) error { return nil }
func (f *fakeStore) CreateCollection(_ context.Context, _ string, _ int) error     { return nil }
func (f *fakeStore) CollectionExists(_ context.Context, _ string) (bool, error)    { return true, nil }
func (f *fakeStore) Close() error                                                  { return nil }

var _ vectorstore.Store = (*fakeStore)(nil)

func newTestEngine(t *testing.T, store vectorstore.Store) *Engine {
	t.Helper()
	records, err := memory.NewRecordStore(store, "learning_memories", nil)
	require.NoError(t, err)
	ranker, err := reranker.NewRecencyReranker(0.5, 0.1)
	require.NoError(t, err)
	engine, err := NewEngine(records, ranker, Config{}, nil)
	require.NoError(t, err)
	return engine
}

func historyResult(difficulty, ts string) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		ID:      "s1_skill_assessment_1",
		Content: "history",
		Score:   0.5,
		Metadata: map[string]any{
			"student_id":       "s1",
			"memory_type":      "skill_assessment",
			"difficulty_level": difficulty,
			"timestamp":        ts,
		},
	}
}

func fullProfile(id string) *consent.Student {
	return &consent.Student{ID: id, ConsentLevel: consent.LevelFullProfile}
}

func TestCurrentDifficultyReturnsMostRecent(t *testing.T) {
	store := &fakeStore{queued: [][]vectorstore.SearchResult{{
		historyResult("4", "2025-05-01T10:00:00Z"),
		historyResult("7", "2025-06-01T10:00:00Z"),
		historyResult("2", "2025-04-01T10:00:00Z"),
	}}}
	engine := newTestEngine(t, store)

	difficulty, err := engine.CurrentDifficulty(context.Background(), "s1", "algebra", "math")
	require.NoError(t, err)
	assert.Equal(t, 7, difficulty)

	require.Len(t, store.calls, 1)
	assert.Equal(t, "algebra", store.calls[0].query)
	assert.Equal(t, difficultyCandidates, store.calls[0].k)
	assert.Equal(t, "algebra", store.calls[0].filter.Equals["topic"])
	assert.Equal(t, "math", store.calls[0].filter.Equals["subject"])
}

func TestCurrentDifficultyDefaultsOnEmptyHistory(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{})

	difficulty, err := engine.CurrentDifficulty(context.Background(), "s1", "algebra", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDifficulty, difficulty)
}

func TestCurrentDifficultyClampsOutOfRange(t *testing.T) {
	store := &fakeStore{queued: [][]vectorstore.SearchResult{{
		historyResult("15", "2025-06-01T10:00:00Z"),
	}}}
	engine := newTestEngine(t, store)

	difficulty, err := engine.CurrentDifficulty(context.Background(), "s1", "algebra", "")
	require.NoError(t, err)
	assert.Equal(t, MaxDifficulty, difficulty)
}

func TestCurrentDifficultyInvalidStudentID(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{})

	_, err := engine.CurrentDifficulty(context.Background(), "bad id!", "algebra", "")
	assert.ErrorIs(t, err, vectorstore.ErrInvalidScope)
}

func TestDifficultyWindow(t *testing.T) {
	tests := []struct {
		difficulty int
		wantLow    int
		wantHigh   int
	}{
		{difficulty: 1, wantLow: 1, wantHigh: 2},
		{difficulty: 2, wantLow: 1, wantHigh: 3},
		{difficulty: 5, wantLow: 4, wantHigh: 6},
		{difficulty: 9, wantLow: 8, wantHigh: 10},
		{difficulty: 10, wantLow: 9, wantHigh: 10},
	}

	for _, tt := range tests {
		low, high := difficultyWindow(tt.difficulty)
		assert.Equal(t, tt.wantLow, low, "d=%d low", tt.difficulty)
		assert.Equal(t, tt.wantHigh, high, "d=%d high", tt.difficulty)
	}
}

func TestRetrieveMinimalConsentShortCircuits(t *testing.T) {
	store := &fakeStore{queued: [][]vectorstore.SearchResult{{
		historyResult("6", "2025-06-01T10:00:00Z"),
	}}}
	engine := newTestEngine(t, store)

	student := &consent.Student{ID: "s1", ConsentLevel: consent.LevelMinimalPseudonymous}
	records, difficulty, err := engine.Retrieve(context.Background(), student, "algebra", Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 6, difficulty)

	// Only the difficulty lookup hit the store; no candidate query.
	assert.Len(t, store.calls, 1)
}

func TestRetrieveFiltersAndRanks(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{queued: [][]vectorstore.SearchResult{
		{historyResult("5", now.Format(time.RFC3339))},
		{
			{
				ID: "strong_recent", Content: "factoring quadratics", Score: 0.9,
				Metadata: map[string]any{
					"student_id": "s1", "memory_type": "learning_interaction",
					"difficulty_level": "5", "timestamp": now.Format(time.RFC3339),
				},
			},
			{
				ID: "weak", Content: "unrelated", Score: 0.2,
				Metadata: map[string]any{
					"student_id": "s1", "memory_type": "learning_interaction",
					"difficulty_level": "4", "timestamp": now.Format(time.RFC3339),
				},
			},
			{
				ID: "no_timestamp", Content: "undated", Score: 0.95,
				Metadata: map[string]any{
					"student_id": "s1", "memory_type": "learning_interaction",
					"difficulty_level": "5",
				},
			},
		},
	}}
	engine := newTestEngine(t, store)

	records, difficulty, err := engine.Retrieve(context.Background(), fullProfile("s1"), "quadratics", Options{
		Subject:     "math",
		MemoryTypes: []memory.MemoryType{memory.TypeLearningInteraction},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, difficulty)

	// Only the strong recent record clears the 0.7 combined threshold; the
	// weak one scores too low and the undated one is dropped outright.
	require.Len(t, records, 1)
	assert.Equal(t, "factoring quadratics", records[0].Content)
	assert.Equal(t, float32(0.9), records[0].Similarity)
	assert.Greater(t, records[0].Combined, float32(0.7))

	require.Len(t, store.calls, 2)
	candidateCall := store.calls[1]
	assert.Equal(t, DefaultLimit*overFetchFactor, candidateCall.k)
	assert.Equal(t, []string{"4", "5", "6"}, candidateCall.filter.In["difficulty_level"])
	assert.Equal(t, []string{"learning_interaction"}, candidateCall.filter.In["memory_type"])
	assert.Equal(t, "math", candidateCall.filter.Equals["subject"])
}

func TestRetrieveWindowBoundaries(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)

	tests := []struct {
		name       string
		difficulty string
		wantWindow []string
	}{
		{name: "floor", difficulty: "1", wantWindow: []string{"1", "2"}},
		{name: "ceiling", difficulty: "10", wantWindow: []string{"9", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{queued: [][]vectorstore.SearchResult{
				{historyResult(tt.difficulty, now)},
			}}
			engine := newTestEngine(t, store)

			_, _, err := engine.Retrieve(context.Background(), fullProfile("s1"), "algebra", Options{})
			require.NoError(t, err)

			require.Len(t, store.calls, 2)
			assert.Equal(t, tt.wantWindow, store.calls[1].filter.In["difficulty_level"])
		})
	}
}

func TestRetrieveEmptyCandidatesNeverPads(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(t, store)

	records, difficulty, err := engine.Retrieve(context.Background(), fullProfile("s1"), "algebra", Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, DefaultDifficulty, difficulty)
}

func TestRetrieveStoreErrorPropagates(t *testing.T) {
	store := &fakeStore{queryErr: assert.AnError}
	engine := newTestEngine(t, store)

	_, _, err := engine.Retrieve(context.Background(), fullProfile("s1"), "algebra", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrStoreQuery)
}

func TestRetrieveRejectsInvalidMemoryType(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	store := &fakeStore{queued: [][]vectorstore.SearchResult{
		{historyResult("5", now)},
	}}
	engine := newTestEngine(t, store)

	_, _, err := engine.Retrieve(context.Background(), fullProfile("s1"), "algebra", Options{
		MemoryTypes: []memory.MemoryType{"homework"},
	})
	assert.ErrorIs(t, err, memory.ErrInvalidRecord)
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		want   int
		wantOK bool
	}{
		{name: "string", raw: "7", want: 7, wantOK: true},
		{name: "int", raw: 4, want: 4, wantOK: true},
		{name: "int64", raw: int64(9), want: 9, wantOK: true},
		{name: "float64", raw: 6.0, want: 6, wantOK: true},
		{name: "garbage string", raw: "hard", wantOK: false},
		{name: "nil", raw: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDifficulty(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
