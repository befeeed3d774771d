package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/logging"
)

const extractionSystem = `You analyze student questions for a tutoring system.
Respond with ONLY a JSON object, no markdown, no explanation:
{"topic": "<short topic phrase>", "goal": "<one of: solve_specific_problem, understand_concept, prepare_for_test, exploration, unknown>", "affective_state": "<one of: frustrated, confused, curious, confident, neutral>"}`

const integritySystem = `You are an academic integrity checker for a tutoring system.
Determine whether the student is asking for a direct answer to an assignment,
homework problem, or test question to submit as their own work, rather than
asking to understand the material.
Respond with ONLY the word "true" or "false".`

// piiPhrases are cheap textual markers of self-identifying content. The check
// is a heuristic, not a PII scanner; it catches the common case of a student
// introducing themselves by name.
var piiPhrases = []string{"my name is"}

// Classifier extracts intent and detects risk for student queries.
type Classifier struct {
	completions llm.Client
	moderator   llm.Moderator
	logger      *logging.Logger
}

// NewClassifier creates a classifier. The moderator is optional; without one
// the moderation sub-check is skipped entirely.
func NewClassifier(completions llm.Client, moderator llm.Moderator, logger *logging.Logger) (*Classifier, error) {
	if completions == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Classifier{
		completions: completions,
		moderator:   moderator,
		logger:      logger,
	}, nil
}

// extractionResult is the constrained JSON shape the model must return.
type extractionResult struct {
	Topic          string `json:"topic"`
	Goal           string `json:"goal"`
	AffectiveState string `json:"affective_state"`
}

// Classify runs structured extraction and risk detection on the text. The
// extraction sub-step never fails the request: unparsable model output falls
// back to unknown/neutral. The integrity check is required and its failure
// propagates.
func (c *Classifier) Classify(ctx context.Context, text string) (*ParsedIntent, error) {
	parsed := &ParsedIntent{
		OriginalText:   text,
		Topic:          "unknown",
		Goal:           GoalUnknown,
		AffectiveState: AffectNeutral,
	}

	c.extractIntent(ctx, text, parsed)

	if err := c.detectRisk(ctx, text, parsed); err != nil {
		return nil, err
	}

	return parsed, nil
}

// extractIntent fills topic/goal/affect from a single constrained completion
// call. Any failure leaves the unknown/neutral defaults in place.
func (c *Classifier) extractIntent(ctx context.Context, text string, parsed *ParsedIntent) {
	response, err := c.completions.Complete(ctx, llm.Request{
		System:      extractionSystem,
		Prompt:      text,
		Temperature: 0.0,
	})
	if err != nil {
		c.logger.Warn(ctx, "intent extraction failed, using defaults", zap.Error(err))
		return
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(llm.StripMarkdownFences(response)), &result); err != nil {
		c.logger.Warn(ctx, "intent extraction returned unparsable JSON, using defaults", zap.Error(err))
		return
	}

	if result.Topic != "" {
		parsed.Topic = result.Topic
	}
	if goal := Goal(result.Goal); goal.Valid() {
		parsed.Goal = goal
	}
	if affect := AffectiveState(result.AffectiveState); affect.Valid() {
		parsed.AffectiveState = affect
	}
}

// detectRisk runs the three risk sub-checks. Moderation fails open for its
// sub-check only; the integrity completion call is required.
func (c *Classifier) detectRisk(ctx context.Context, text string, parsed *ParsedIntent) error {
	if c.moderator != nil {
		result, err := c.moderator.Moderate(ctx, text)
		if err != nil {
			// Fail-open is deliberate and loud: a moderation outage must not
			// take the tutor down, but every skipped check is logged.
			c.logger.Error(ctx, "moderation check failed, proceeding unflagged", zap.Error(err))
		} else {
			if result.Flagged {
				parsed.RiskFlags = append(parsed.RiskFlags, RiskInappropriateContent)
			}
			if result.SelfHarm() {
				parsed.RiskFlags = append(parsed.RiskFlags, RiskSelfHarmConcern)
			}
		}
	}

	integrityConcern, err := c.checkIntegrity(ctx, text)
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrityConcern {
		parsed.RiskFlags = append(parsed.RiskFlags, RiskAcademicIntegrityConcern)
	}

	if containsPII(text) {
		parsed.RiskFlags = append(parsed.RiskFlags, RiskPIIDetected)
	}

	return nil
}

// checkIntegrity asks the model for a boolean judgment on whether the text
// requests an assignment or test answer outright.
func (c *Classifier) checkIntegrity(ctx context.Context, text string) (bool, error) {
	response, err := c.completions.Complete(ctx, llm.Request{
		System:      integritySystem,
		Prompt:      text,
		MaxTokens:   8,
		Temperature: 0.0,
	})
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(response), "true"), nil
}

// containsPII applies the self-identification heuristic.
func containsPII(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range piiPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
