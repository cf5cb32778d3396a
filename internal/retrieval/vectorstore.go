package retrieval

import (
	"context"
	"time"
)

// VectorStore is the interface for vector storage and similarity search.
// The only implementation today is SQLite with brute-force cosine
// similarity over the context_vectors table, which is plenty for a few
// thousand quotation and catalog chunks.
type VectorStore interface {
	// Insert adds records to the store.
	Insert(records []Record) error

	// Search returns the top-K records most similar to the query vector,
	// ordered by descending cosine similarity.
	Search(vector []float32, topK int) ([]ScoredRecord, error)

	// GetByIDs returns records matching the given IDs.
	GetByIDs(ctx context.Context, ids []string) ([]Record, error)

	// Delete removes a record by ID.
	Delete(id string) error

	// Count returns the number of stored records.
	Count() (int, error)
}

// Record represents a row in the vector store.
type Record struct {
	ID         string
	SourceID   string
	SourceType string
	TextChunk  string
	Embedding  []float32
	CreatedAt  time.Time
	Tags       string // JSON array stored as text
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
