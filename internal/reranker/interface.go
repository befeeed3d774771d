// Package reranker re-orders similarity search results to improve relevance
// for tutoring retrieval.
package reranker

import (
	"context"
	"time"
)

// Document is a candidate record entering re-ranking.
type Document struct {
	ID        string    // Unique identifier for the document
	Content   string    // Text content
	Score     float32   // Original similarity score from search
	Timestamp time.Time // Creation time; zero means unknown
}

// ScoredDocument is a document with re-ranking scores attached.
type ScoredDocument struct {
	Document
	RerankerScore float32 // Combined score used for the final ordering (0.0-1.0)
	RecencyScore  float32 // Recency component before blending
	OriginalRank  int     // Original rank position in results (0-indexed)
}

// Reranker re-orders candidate documents.
type Reranker interface {
	// Rerank scores and sorts the documents, returning at most topK results
	// ordered by RerankerScore descending. Ties preserve the original
	// retrieval order.
	Rerank(ctx context.Context, docs []Document, topK int) ([]ScoredDocument, error)

	// Close releases any resources held by the reranker.
	Close() error
}
