package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/impag-mx/surco/internal/composer"
	"github.com/impag-mx/surco/internal/llm"
)

// maxAttempts bounds model calls per phase: one initial call plus one
// corrective retry. A second malformed response fails the phase; more
// retries only burn tokens on a model that is not going to comply.
const maxAttempts = 2

// SchemaValidationError reports that the model's output never satisfied
// the artifact schema, even after the corrective retry.
type SchemaValidationError struct {
	Attempts int
	Raw      string
	Err      error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("model output failed schema validation after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// Invoker runs a single generation phase against a completion model.
type Invoker struct {
	completer llm.Completer
	maxTokens int
}

// NewInvoker creates an Invoker. maxTokens <= 0 uses the provider default.
func NewInvoker(completer llm.Completer, maxTokens int) *Invoker {
	return &Invoker{completer: completer, maxTokens: maxTokens}
}

// Run executes one phase: call the model, extract and strictly decode the
// JSON artifact, validate it. On a schema failure it retries exactly once
// with a corrective prompt quoting the concrete error; transport failures
// are not retried here. Returns the artifact and the number of attempts
// consumed.
func Run[T Validator](ctx context.Context, inv *Invoker, prompt composer.Prompt) (T, int, error) {
	var zero T

	userPrompt := prompt.User
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := inv.completer.Complete(ctx, llm.CompletionRequest{
			System:    prompt.System,
			Prompt:    userPrompt,
			MaxTokens: inv.maxTokens,
		})
		if err != nil {
			return zero, attempt, fmt.Errorf("completion call: %w", err)
		}

		artifact, verr := parse[T](raw)
		if verr == nil {
			return artifact, attempt, nil
		}

		if attempt == maxAttempts {
			return zero, attempt, &SchemaValidationError{Attempts: attempt, Raw: raw, Err: verr}
		}

		slog.Warn("model output failed validation, retrying once", "attempt", attempt, "error", verr)
		userPrompt = correctivePrompt(prompt.User, raw, verr)
	}
	return zero, maxAttempts, fmt.Errorf("unreachable")
}

// parse extracts, decodes and validates a raw model response.
func parse[T Validator](raw string) (T, error) {
	var artifact T
	if err := decodeStrict(extractJSON(raw), &artifact); err != nil {
		return artifact, fmt.Errorf("decoding artifact: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return artifact, fmt.Errorf("validating artifact: %w", err)
	}
	return artifact, nil
}

// correctivePrompt rebuilds the user prompt for the retry, quoting the
// rejected output and the exact validation error so the model can fix the
// specific problem instead of guessing.
func correctivePrompt(original, rejected string, verr error) string {
	return original + fmt.Sprintf(
		"\n\nTu respuesta anterior fue rechazada.\nRespuesta: %s\nError: %v\nResponde de nuevo únicamente con el objeto JSON corregido, sin texto adicional.",
		rejected, verr,
	)
}
