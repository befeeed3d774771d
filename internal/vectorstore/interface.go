// Package vectorstore defines the interface for vector storage operations.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrMissingScope is returned when a store operation runs without an
	// owner scope in context. Queries fail closed rather than returning
	// another student's records.
	ErrMissingScope = errors.New("missing owner scope in context")

	// ErrInvalidScope indicates an owner scope that fails validation.
	ErrInvalidScope = errors.New("invalid owner scope")
)

// Embedder generates vector embeddings from text.
//
// Embeddings are dense numerical representations that capture semantic
// meaning, enabling similarity search. Implementations can use local models
// (fastembed) or an HTTP inference service (TEI).
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns a slice of embeddings (one per input text) or an error.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for vector storage operations.
//
// Implementations are transport-agnostic. All operations enforce owner
// scoping: the context must carry a Scope (see ContextWithScope), and queries
// without one fail with ErrMissingScope rather than leaking records across
// students. A Scope with CrossStudent set inverts the filter, excluding the
// requesting student's own records instead of selecting them.
//
// Implementations:
//   - ChromemStore: embedded chromem-go (default)
//   - QdrantStore: external Qdrant gRPC client
type Store interface {
	// AddDocuments embeds and stores documents with their metadata. The
	// document ID is the unique identifier in the store; writes are
	// append-only at this layer (an existing ID is the caller's bug).
	// Returns the IDs of added documents.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Query performs similarity search in the given collection, returning
	// up to k results ordered by similarity score (highest first). The
	// filter constrains results by metadata; a nil filter applies only the
	// owner scope.
	Query(ctx context.Context, collection, query string, k int, filter *Filter) ([]SearchResult, error)

	// DeleteDocuments deletes documents by their IDs.
	DeleteDocuments(ctx context.Context, collection string, ids []string) error

	// CreateCollection creates a collection with the given embedding
	// dimensionality. Implementations may treat this as idempotent setup.
	CreateCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Close closes the vector store connection and releases resources.
	Close() error
}
