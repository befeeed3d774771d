package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

// Sentinel errors distinguishing store failures from empty-but-healthy
// results. Callers must never convert these into empty slices.
var (
	// ErrStoreQuery indicates the backing vector store failed during a read.
	ErrStoreQuery = errors.New("memory store query failed")

	// ErrStoreWrite indicates the backing vector store failed during a write.
	ErrStoreWrite = errors.New("memory store write failed")
)

// ScoredRecord is a record returned from similarity search with its score.
type ScoredRecord struct {
	Record

	// Score is the similarity score from the vector store, in [0, 1].
	Score float32
}

// RecordStore persists Records in a vector store collection, converting
// between the typed record model and store documents at the boundary.
type RecordStore struct {
	store      vectorstore.Store
	collection string
	logger     *logging.Logger
}

// NewRecordStore creates a record store over the given collection.
func NewRecordStore(store vectorstore.Store, collection string, logger *logging.Logger) (*RecordStore, error) {
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if collection == "" {
		return nil, errors.New("collection name is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &RecordStore{
		store:      store,
		collection: collection,
		logger:     logger,
	}, nil
}

// Collection returns the backing collection name.
func (rs *RecordStore) Collection() string {
	return rs.collection
}

// Add validates, sanitizes, and stores a record. A zero timestamp is stamped
// with the current time. Returns the record ID.
func (rs *RecordStore) Add(ctx context.Context, rec Record) (string, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}

	doc := documentFromRecord(rec)
	doc.Collection = rs.collection

	if _, err := rs.store.AddDocuments(ctx, []vectorstore.Document{doc}); err != nil {
		rs.logger.Error(ctx, "memory record write failed",
			zap.String("memory_type", rec.Type.String()),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	return doc.ID, nil
}

// Search performs similarity search over records. The owner scope in ctx
// controls which student's records are visible; the filter adds metadata
// constraints on top.
func (rs *RecordStore) Search(ctx context.Context, query string, k int, filter *vectorstore.Filter) ([]ScoredRecord, error) {
	results, err := rs.store.Query(ctx, rs.collection, query, k, filter)
	if err != nil {
		if errors.Is(err, vectorstore.ErrMissingScope) || errors.Is(err, vectorstore.ErrInvalidScope) {
			return nil, err
		}
		rs.logger.Error(ctx, "memory record query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStoreQuery, err)
	}

	records := make([]ScoredRecord, 0, len(results))
	for _, result := range results {
		records = append(records, recordFromResult(result))
	}
	return records, nil
}

// Delete removes records by ID.
func (rs *RecordStore) Delete(ctx context.Context, ids []string) error {
	if err := rs.store.DeleteDocuments(ctx, rs.collection, ids); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

// EnsureCollection creates the backing collection if it does not exist.
func (rs *RecordStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	exists, err := rs.store.CollectionExists(ctx, rs.collection)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreQuery, err)
	}
	if exists {
		return nil
	}
	if err := rs.store.CreateCollection(ctx, rs.collection, vectorSize); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

// documentFromRecord converts a record to a store document. Reserved keys
// (memory_type, timestamp) overwrite caller metadata; the owner is stamped by
// the store's scope enforcement, not here.
func documentFromRecord(rec Record) vectorstore.Document {
	metadata := SanitizeMetadata(rec.Metadata)
	if metadata == nil {
		metadata = make(map[string]any, 2)
	}
	metadata["memory_type"] = rec.Type.String()
	metadata["timestamp"] = rec.Timestamp.UTC().Format(time.RFC3339)

	return vectorstore.Document{
		ID:       rec.ID(),
		Content:  rec.Content,
		Metadata: metadata,
	}
}

// recordFromResult converts a search result back to a typed record. Unknown
// memory types and missing timestamps are preserved as-is; downstream ranking
// decides what to drop.
func recordFromResult(result vectorstore.SearchResult) ScoredRecord {
	rec := Record{
		Content:  result.Content,
		Metadata: result.Metadata,
	}

	if studentID, ok := result.Metadata["student_id"].(string); ok {
		rec.StudentID = studentID
	}
	if rawType, ok := result.Metadata["memory_type"].(string); ok {
		rec.Type = MemoryType(rawType)
	}
	if ts, ok := ParseTimestamp(result.Metadata); ok {
		rec.Timestamp = ts
	}

	return ScoredRecord{Record: rec, Score: result.Score}
}
