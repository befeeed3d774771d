// Package llm provides language-model completion and moderation clients.
//
// Clients are hand-rolled HTTP with rate limiting and exponential backoff for
// transient failures; no vendor SDK is carried.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultTimeout          = 60 * time.Second
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second
	defaultMaxTokens        = 1024

	// Conservative limits that work across providers.
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// ErrEmptyResponse indicates the provider returned no content.
var ErrEmptyResponse = errors.New("empty response from API")

// Request is a single completion request.
type Request struct {
	// System is the optional system prompt.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens caps the response length. Zero uses the default.
	MaxTokens int

	// Temperature controls sampling. Completion calls in this codebase run
	// low temperatures for consistent outputs.
	Temperature float64
}

// Client generates text completions.
type Client interface {
	// Complete sends the request and returns the generated text. Transient
	// transport failures (timeouts, 429, 5xx) are retried with exponential
	// backoff; the call is cancellable via ctx.
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds completion client configuration.
type Config struct {
	// Provider is "openai" or "anthropic".
	Provider string

	// Model overrides the provider default.
	Model string

	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL overrides the provider endpoint (for proxies and tests).
	BaseURL string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
}

// NewClient creates a completion client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// completeWithRetry runs attempt with exponential backoff for transient
// errors, honoring context cancellation between attempts.
func completeWithRetry(ctx context.Context, maxRetries int, attemptFn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := attemptFn()
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
