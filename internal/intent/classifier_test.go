package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tutord/internal/llm"
)

// fakeCompletions routes by system prompt: extraction calls get extractResp,
// integrity calls get integrityResp.
type fakeCompletions struct {
	extractResp  string
	extractErr   error
	integrity    string
	integrityErr error
	calls        int
}

func (f *fakeCompletions) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	if strings.Contains(req.System, "integrity") {
		return f.integrity, f.integrityErr
	}
	return f.extractResp, f.extractErr
}

type fakeModerator struct {
	result *llm.ModerationResult
	err    error
}

func (f *fakeModerator) Moderate(_ context.Context, _ string) (*llm.ModerationResult, error) {
	return f.result, f.err
}

func cleanModeration() *fakeModerator {
	return &fakeModerator{result: &llm.ModerationResult{Flagged: false, Categories: map[string]bool{}}}
}

func TestClassifyExtractsIntent(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: `{"topic": "quadratic equations", "goal": "understand_concept", "affective_state": "confused"}`,
		integrity:   "false",
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "I don't get how to factor x^2+5x+6")
	require.NoError(t, err)
	assert.Equal(t, "quadratic equations", parsed.Topic)
	assert.Equal(t, GoalUnderstandConcept, parsed.Goal)
	assert.Equal(t, AffectConfused, parsed.AffectiveState)
	assert.True(t, parsed.Clear())
}

func TestClassifyStripsMarkdownFences(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: "```json\n{\"topic\": \"fractions\", \"goal\": \"exploration\", \"affective_state\": \"curious\"}\n```",
		integrity:   "false",
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "why do fractions work?")
	require.NoError(t, err)
	assert.Equal(t, "fractions", parsed.Topic)
	assert.Equal(t, GoalExploration, parsed.Goal)
}

func TestClassifyParseFailureFallsBack(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: "I think the topic is probably math?",
		integrity:   "false",
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "help")
	require.NoError(t, err)
	assert.Equal(t, "unknown", parsed.Topic)
	assert.Equal(t, GoalUnknown, parsed.Goal)
	assert.Equal(t, AffectNeutral, parsed.AffectiveState)
}

func TestClassifyExtractionErrorFallsBack(t *testing.T) {
	completions := &fakeCompletions{
		extractErr: assert.AnError,
		integrity:  "false",
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "help")
	require.NoError(t, err)
	assert.Equal(t, GoalUnknown, parsed.Goal)
}

func TestClassifyInvalidEnumValuesFallBack(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: `{"topic": "history", "goal": "win_at_school", "affective_state": "ecstatic"}`,
		integrity:   "false",
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "tell me about rome")
	require.NoError(t, err)
	assert.Equal(t, "history", parsed.Topic)
	assert.Equal(t, GoalUnknown, parsed.Goal)
	assert.Equal(t, AffectNeutral, parsed.AffectiveState)
}

func TestClassifyIntegrityConcern(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: `{"topic": "algebra", "goal": "solve_specific_problem", "affective_state": "neutral"}`,
		integrity:   "true",
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "give me the answers to worksheet 4")
	require.NoError(t, err)
	assert.True(t, parsed.HasFlag(RiskAcademicIntegrityConcern))
	assert.False(t, parsed.Clear())
}

func TestClassifyIntegrityCheckErrorPropagates(t *testing.T) {
	completions := &fakeCompletions{
		extractResp:  `{"topic": "algebra", "goal": "unknown", "affective_state": "neutral"}`,
		integrityErr: assert.AnError,
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	_, err = classifier.Classify(context.Background(), "question")
	assert.Error(t, err)
}

func TestClassifyModerationFlags(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: `{"topic": "unknown", "goal": "unknown", "affective_state": "neutral"}`,
		integrity:   "false",
	}
	moderator := &fakeModerator{result: &llm.ModerationResult{
		Flagged:    true,
		Categories: map[string]bool{"self-harm": true},
	}}
	classifier, err := NewClassifier(completions, moderator, nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "some text")
	require.NoError(t, err)
	assert.True(t, parsed.HasFlag(RiskInappropriateContent))
	assert.True(t, parsed.HasFlag(RiskSelfHarmConcern))
}

func TestClassifyModerationFailsOpen(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: `{"topic": "biology", "goal": "understand_concept", "affective_state": "curious"}`,
		integrity:   "false",
	}
	classifier, err := NewClassifier(completions, &fakeModerator{err: assert.AnError}, nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "how do cells divide?")
	require.NoError(t, err)
	assert.True(t, parsed.Clear())
}

func TestClassifyPIIHeuristic(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: `{"topic": "unknown", "goal": "unknown", "affective_state": "neutral"}`,
		integrity:   "false",
	}
	classifier, err := NewClassifier(completions, cleanModeration(), nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "Hi, my name is Jordan Smith and I need help")
	require.NoError(t, err)
	assert.True(t, parsed.HasFlag(RiskPIIDetected))
}

func TestClassifyWithoutModerator(t *testing.T) {
	completions := &fakeCompletions{
		extractResp: `{"topic": "geometry", "goal": "prepare_for_test", "affective_state": "confident"}`,
		integrity:   "false",
	}
	classifier, err := NewClassifier(completions, nil, nil)
	require.NoError(t, err)

	parsed, err := classifier.Classify(context.Background(), "quiz me on triangle congruence")
	require.NoError(t, err)
	assert.True(t, parsed.Clear())
	assert.Equal(t, GoalPrepareForTest, parsed.Goal)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, GoalSolveSpecificProblem.Valid())
	assert.False(t, Goal("cheat").Valid())
	assert.True(t, AffectFrustrated.Valid())
	assert.False(t, AffectiveState("sleepy").Valid())
	assert.True(t, RiskPIIDetected.Valid())
	assert.False(t, RiskFlag("tardiness").Valid())
}
