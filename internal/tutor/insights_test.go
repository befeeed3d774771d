package tutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

func newInsightHarness(t *testing.T, results []vectorstore.SearchResult) *testHarness {
	t.Helper()
	h := newHarness(t, &fakeClassifier{parsed: clearIntent("x")}, &fakeRetriever{difficulty: 3})
	h.store.results = results
	return h
}

func TestSimilarPatternsStripsIdentity(t *testing.T) {
	h := newInsightHarness(t, []vectorstore.SearchResult{
		{
			ID:      "s2_success_milestone_1700000000",
			Content: "practiced with flashcards daily until fractions clicked",
			Score:   0.88,
			Metadata: map[string]any{
				"student_id":  "s2",
				"memory_type": "success_milestone",
				"topic":       "fractions",
				"timestamp":   "2025-05-01T10:00:00Z",
			},
		},
	})

	insights, err := h.service.SimilarPatterns(context.Background(), "s1", "struggling with fractions", 5)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	assert.Equal(t, "practiced with flashcards daily until fractions clicked", insights[0].Content)
	assert.Equal(t, "success_milestone", insights[0].MemoryType)
	assert.Equal(t, "fractions", insights[0].Topic)
	assert.Equal(t, float32(0.88), insights[0].Score)

	// The query ran cross-student, excluding the requester.
	require.Len(t, h.store.scopes, 1)
	assert.True(t, h.store.scopes[0].CrossStudent)
	assert.Equal(t, "s1", h.store.scopes[0].StudentID)
}

func TestSimilarPatternsRequiresChallenge(t *testing.T) {
	h := newInsightHarness(t, nil)

	_, err := h.service.SimilarPatterns(context.Background(), "s1", "", 5)
	assert.Error(t, err)
}

func TestRecommendContentBand(t *testing.T) {
	h := newInsightHarness(t, []vectorstore.SearchResult{
		{
			ID:      "s1_content_mastery_1700000000",
			Content: "video walkthrough of balancing equations",
			Score:   0.8,
			Metadata: map[string]any{
				"student_id":       "s1",
				"memory_type":      "content_mastery",
				"topic":            "chemical equations",
				"difficulty_level": "6",
				"learning_style":   "visual",
			},
		},
	})

	recommendations, err := h.service.RecommendContent(context.Background(), "s1", "chemical equations", 5, "visual", 3)
	require.NoError(t, err)
	require.Len(t, recommendations, 1)
	assert.Equal(t, 6, recommendations[0].Difficulty)
	assert.Equal(t, "visual", recommendations[0].LearningStyle)

	require.Len(t, h.store.scopes, 1)
	assert.False(t, h.store.scopes[0].CrossStudent)
}

func TestRecommendContentRejectsBadDifficulty(t *testing.T) {
	h := newInsightHarness(t, nil)

	_, err := h.service.RecommendContent(context.Background(), "s1", "topic", 0, "", 3)
	assert.Error(t, err)

	_, err = h.service.RecommendContent(context.Background(), "s1", "topic", 11, "", 3)
	assert.Error(t, err)
}

func TestLearningTrajectoryAggregates(t *testing.T) {
	h := newInsightHarness(t, []vectorstore.SearchResult{
		{
			ID: "a", Content: "assessed fractions", Score: 0.5,
			Metadata: map[string]any{
				"memory_type": "skill_assessment", "topic": "fractions",
				"difficulty_level": "3", "timestamp": "2025-04-01T10:00:00Z",
			},
		},
		{
			ID: "b", Content: "kept flipping numerators", Score: 0.5,
			Metadata: map[string]any{
				"memory_type": "error_pattern", "topic": "fractions",
				"timestamp": "2025-04-10T10:00:00Z",
			},
		},
		{
			ID: "c", Content: "mastered decimals", Score: 0.5,
			Metadata: map[string]any{
				"memory_type": "success_milestone", "topic": "decimals",
				"difficulty_level": "5", "timestamp": "2025-05-01T10:00:00Z",
			},
		},
	})

	trajectory, err := h.service.LearningTrajectory(context.Background(), "s1", "math")
	require.NoError(t, err)

	assert.Equal(t, 1, trajectory.Assessments)
	assert.Equal(t, 1, trajectory.ErrorPatterns)
	assert.Equal(t, 1, trajectory.Milestones)
	assert.Equal(t, []string{"decimals", "fractions"}, trajectory.RecentTopics)
	assert.Equal(t, []int{3, 5}, trajectory.DifficultyProgression)
}

func TestRecordSkillAssessmentScaling(t *testing.T) {
	h := newInsightHarness(t, nil)

	id, err := h.service.RecordSkillAssessment(context.Background(), "s1", "long division", "math", 0.65)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, h.store.added, 1)
	doc := h.store.added[0]
	assert.Equal(t, "skill_assessment", doc.Metadata["memory_type"])
	assert.Equal(t, "7", doc.Metadata["difficulty_level"])
	assert.Equal(t, "long division", doc.Metadata["topic"])
	assert.Equal(t, "math", doc.Metadata["subject"])
}

func TestRecordSkillAssessmentFloorsAtMinimum(t *testing.T) {
	h := newInsightHarness(t, nil)

	_, err := h.service.RecordSkillAssessment(context.Background(), "s1", "counting", "", 0.0)
	require.NoError(t, err)

	require.Len(t, h.store.added, 1)
	assert.Equal(t, "1", h.store.added[0].Metadata["difficulty_level"])
}

func TestRecordSkillAssessmentValidation(t *testing.T) {
	h := newInsightHarness(t, nil)

	_, err := h.service.RecordSkillAssessment(context.Background(), "s1", "", "math", 0.5)
	assert.Error(t, err)

	_, err = h.service.RecordSkillAssessment(context.Background(), "s1", "skill", "math", 1.5)
	assert.Error(t, err)
}
