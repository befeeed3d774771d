package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, 9390, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "learning_memories", cfg.VectorStore.Chromem.Collection)
	assert.Equal(t, 384, cfg.VectorStore.Chromem.VectorSize)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embeddings.Model)
	assert.Equal(t, "openai", cfg.Completion.Provider)
	assert.Equal(t, "minimal_pseudonymous", cfg.Consent.DefaultLevel)
	assert.Equal(t, 10, cfg.Retrieval.Limit)
	assert.InDelta(t, 0.7, cfg.Retrieval.SimilarityThreshold, 1e-9)
	assert.InDelta(t, 0.5, cfg.Retrieval.RecencyAlpha, 1e-9)
	assert.InDelta(t, 0.1, cfg.Retrieval.DecayRate, 1e-9)
	assert.Equal(t, 3, cfg.Retrieval.DefaultDifficulty)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Server.Port = 8080
	cfg.Retrieval.DefaultDifficulty = 5
	cfg.ApplyDefaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retrieval.DefaultDifficulty)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "server.port",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "unknown vector store provider",
			mutate:  func(c *Config) { c.VectorStore.Provider = "pinecone" },
			wantErr: "vectorstore.provider",
		},
		{
			name:    "unknown embeddings provider",
			mutate:  func(c *Config) { c.Embeddings.Provider = "openai" },
			wantErr: "embeddings.provider",
		},
		{
			name:    "unknown completion provider",
			mutate:  func(c *Config) { c.Completion.Provider = "llama" },
			wantErr: "completion.provider",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Retrieval.SimilarityThreshold = 1.5 },
			wantErr: "similarity_threshold",
		},
		{
			name:    "alpha out of range",
			mutate:  func(c *Config) { c.Retrieval.RecencyAlpha = -0.1 },
			wantErr: "recency_alpha",
		},
		{
			name:    "default difficulty out of range",
			mutate:  func(c *Config) { c.Retrieval.DefaultDifficulty = 11 },
			wantErr: "default_difficulty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SERVER_PORT", "server.port"},
		{"COMPLETION_API_KEY", "completion.api_key"},
		{"RETRIEVAL_RECENCY_ALPHA", "retrieval.recency_alpha"},
		{"LOGGING_LEVEL", "logging.level"},
		{"PORT", "port"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envTransform(tt.in))
	}
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7001\nretrieval:\n  recency_alpha: 0.8\n")
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.InDelta(t, 0.8, cfg.Retrieval.RecencyAlpha, 1e-9)
	// Unset fields still get defaults.
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
}

func TestLoadWithFileRejectsWeakPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7001\n"), 0644))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}
