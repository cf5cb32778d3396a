package retrieval

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTopK is the neighbor count used when the caller passes topK <= 0.
const DefaultTopK = 7

// Embedder converts texts to vectors. Satisfied by llm.OpenAIEmbedder.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ContextSnippet is one retrieved unit of grounding text.
type ContextSnippet struct {
	ID         string
	Source     string
	SourceType string
	Text       string
	Score      float32
	CreatedAt  time.Time
}

// Retriever combines embedding and vector search to find relevant context.
// Grounding is a quality improvement, not a correctness requirement: every
// failure path degrades to an empty result set instead of aborting the
// caller's pipeline.
type Retriever struct {
	embedder Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the top-K most similar context
// snippets in descending score order. Embedding or search failures are
// logged and yield an empty slice; Retrieve never returns an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) []ContextSnippet {
	if query == "" {
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		slog.Warn("retrieval degraded: embedding failed", "error", err)
		return nil
	}

	scored, err := r.store.Search(vecs[0], topK)
	if err != nil {
		slog.Warn("retrieval degraded: vector search failed", "error", err)
		return nil
	}

	snippets := make([]ContextSnippet, len(scored))
	for i, s := range scored {
		snippets[i] = ContextSnippet{
			ID:         s.ID,
			Source:     s.SourceID,
			SourceType: s.SourceType,
			Text:       s.TextChunk,
			Score:      s.Score,
			CreatedAt:  s.CreatedAt,
		}
	}
	return snippets
}
