package llm

import "context"

// Completer abstracts the generative model. Implementations must use
// deterministic sampling: the generation invoker relies on retries differing
// only through the corrective instruction, not through sampling noise.
type Completer interface {
	// Complete sends a single-turn prompt and returns the raw assistant text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder abstracts the embedding provider.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionRequest is a single-turn generation request.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}
