package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultModerationModel = "omni-moderation-latest"

// ModerationResult is the outcome of a content moderation check.
type ModerationResult struct {
	// Flagged is true when any category triggered.
	Flagged bool

	// Categories maps category name (e.g. "self-harm", "harassment") to
	// whether it triggered.
	Categories map[string]bool
}

// SelfHarm reports whether any self-harm category triggered.
func (r *ModerationResult) SelfHarm() bool {
	for name, flagged := range r.Categories {
		if !flagged {
			continue
		}
		if name == "self-harm" || name == "self-harm/intent" || name == "self-harm/instructions" {
			return true
		}
	}
	return false
}

// Moderator checks text against a content moderation service.
type Moderator interface {
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
}

// ModerationConfig holds moderation client configuration.
type ModerationConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ModerationClient calls OpenAI's moderation endpoint.
//
// Callers decide the failure posture; this client only reports errors. The
// intent classifier deliberately fails open on moderation transport errors
// and logs them.
type ModerationClient struct {
	model      string
	apiKey     string `json:"-"` // Never serialize API keys
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewModerationClient creates a moderation client.
func NewModerationClient(cfg ModerationConfig) (*ModerationClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("moderation API key required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModerationModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &ModerationClient{
		model:   model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}, nil
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// Moderate checks the text against the moderation endpoint.
func (m *ModerationClient) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	jsonData, err := json.Marshal(moderationRequest{Model: m.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/moderations", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("moderation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("moderation API error (%d): %s", resp.StatusCode, string(body))
	}

	var modResp moderationResponse
	if err := json.Unmarshal(body, &modResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(modResp.Results) == 0 {
		return nil, ErrEmptyResponse
	}

	return &ModerationResult{
		Flagged:    modResp.Results[0].Flagged,
		Categories: modResp.Results[0].Categories,
	}, nil
}

var _ Moderator = (*ModerationClient)(nil)
