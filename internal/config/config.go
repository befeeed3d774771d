// Package config provides configuration loading for tutord.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the tutord daemon.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Completion  CompletionConfig  `koanf:"completion"`
	Moderation  ModerationConfig  `koanf:"moderation"`
	Consent     ConsentConfig     `koanf:"consent"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// VectorStoreConfig selects and configures the vector store provider.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
}

// QdrantConfig configures the Qdrant gRPC store.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
	UseTLS     bool   `koanf:"use_tls"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (local ONNX, default) or "tei" (HTTP).
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	CacheDir string `koanf:"cache_dir"`
}

// CompletionConfig configures the language-model completion service.
type CompletionConfig struct {
	// Provider is "openai" (default) or "anthropic".
	Provider string        `koanf:"provider"`
	Model    string        `koanf:"model"`
	APIKey   string        `koanf:"api_key"`
	BaseURL  string        `koanf:"base_url"`
	Timeout  time.Duration `koanf:"timeout"`
}

// ModerationConfig configures the content-moderation service.
type ModerationConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// ConsentConfig seeds the consent gate.
//
// Students maps student IDs to consent levels ("full_profile",
// "limited_anonymized", "minimal_pseudonymous"). Unknown students receive
// DefaultLevel, which itself defaults to minimal_pseudonymous.
type ConsentConfig struct {
	DefaultLevel string            `koanf:"default_level"`
	Students     map[string]string `koanf:"students"`
}

// RetrievalConfig holds retrieval and re-ranking tunables.
type RetrievalConfig struct {
	Limit               int     `koanf:"limit"`
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	RecencyAlpha        float64 `koanf:"recency_alpha"`
	DecayRate           float64 `koanf:"decay_rate"`
	DefaultDifficulty   int     `koanf:"default_difficulty"`
	ContextLimit        int     `koanf:"context_limit"`
}

// ApplyDefaults sets default values for missing configuration fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 9390
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "tutord"
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4317"
	}

	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "chromem"
	}
	if c.VectorStore.Chromem.Path == "" {
		c.VectorStore.Chromem.Path = "~/.config/tutord/vectorstore"
	}
	if c.VectorStore.Chromem.Collection == "" {
		c.VectorStore.Chromem.Collection = "learning_memories"
	}
	if c.VectorStore.Chromem.VectorSize == 0 {
		c.VectorStore.Chromem.VectorSize = 384 // bge-small-en-v1.5 dimensions
	}
	if c.VectorStore.Qdrant.Host == "" {
		c.VectorStore.Qdrant.Host = "localhost"
	}
	if c.VectorStore.Qdrant.Port == 0 {
		c.VectorStore.Qdrant.Port = 6334
	}
	if c.VectorStore.Qdrant.Collection == "" {
		c.VectorStore.Qdrant.Collection = "learning_memories"
	}
	if c.VectorStore.Qdrant.VectorSize == 0 {
		c.VectorStore.Qdrant.VectorSize = 384
	}

	if c.Embeddings.Provider == "" {
		c.Embeddings.Provider = "fastembed"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = "http://localhost:8080"
	}

	if c.Completion.Provider == "" {
		c.Completion.Provider = "openai"
	}
	if c.Completion.Timeout == 0 {
		c.Completion.Timeout = 60 * time.Second
	}

	if c.Moderation.BaseURL == "" {
		c.Moderation.BaseURL = "https://api.openai.com"
	}
	if c.Moderation.Timeout == 0 {
		c.Moderation.Timeout = 30 * time.Second
	}

	if c.Consent.DefaultLevel == "" {
		c.Consent.DefaultLevel = "minimal_pseudonymous"
	}

	if c.Retrieval.Limit == 0 {
		c.Retrieval.Limit = 10
	}
	if c.Retrieval.SimilarityThreshold == 0 {
		c.Retrieval.SimilarityThreshold = 0.7
	}
	if c.Retrieval.RecencyAlpha == 0 {
		c.Retrieval.RecencyAlpha = 0.5
	}
	if c.Retrieval.DecayRate == 0 {
		c.Retrieval.DecayRate = 0.1
	}
	if c.Retrieval.DefaultDifficulty == 0 {
		c.Retrieval.DefaultDifficulty = 3
	}
	if c.Retrieval.ContextLimit == 0 {
		c.Retrieval.ContextLimit = 5
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("vectorstore.provider must be 'chromem' or 'qdrant', got %q", c.VectorStore.Provider)
	}

	switch c.Embeddings.Provider {
	case "fastembed", "tei":
	default:
		return fmt.Errorf("embeddings.provider must be 'fastembed' or 'tei', got %q", c.Embeddings.Provider)
	}

	switch c.Completion.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("completion.provider must be 'openai' or 'anthropic', got %q", c.Completion.Provider)
	}

	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be in [0,1], got %f", c.Retrieval.SimilarityThreshold)
	}
	if c.Retrieval.RecencyAlpha < 0 || c.Retrieval.RecencyAlpha > 1 {
		return fmt.Errorf("retrieval.recency_alpha must be in [0,1], got %f", c.Retrieval.RecencyAlpha)
	}
	if c.Retrieval.DefaultDifficulty < 1 || c.Retrieval.DefaultDifficulty > 10 {
		return fmt.Errorf("retrieval.default_difficulty must be in [1,10], got %d", c.Retrieval.DefaultDifficulty)
	}

	return nil
}
