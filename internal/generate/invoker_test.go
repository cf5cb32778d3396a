package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/impag-mx/surco/internal/composer"
	"github.com/impag-mx/surco/internal/llm"
)

// scriptedCompleter replays canned responses and records the prompts it saw.
type scriptedCompleter struct {
	responses []string
	err       error
	prompts   []string
}

func (c *scriptedCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	c.prompts = append(c.prompts, req.Prompt)
	if c.err != nil {
		return "", c.err
	}
	i := len(c.prompts) - 1
	if i >= len(c.responses) {
		return "", errors.New("no scripted response left")
	}
	return c.responses[i], nil
}

var testPrompt = composer.Prompt{System: "sistema", User: "usuario"}

const validStrategy = `{"topic":"calor → malla","problem":"calor","solution":"malla","rationale":"temporada","post_type":"producto"}`

func TestRun_FirstAttemptSucceeds(t *testing.T) {
	c := &scriptedCompleter{responses: []string{validStrategy}}

	artifact, attempts, err := Run[StrategyArtifact](context.Background(), NewInvoker(c, 0), testPrompt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if artifact.Topic != "calor → malla" {
		t.Errorf("artifact not decoded: %+v", artifact)
	}
}

func TestRun_RetryRecoversFromMalformedResponse(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		"lo siento, aquí va: {\"topic\": \"incompleto\"",
		validStrategy,
	}}

	artifact, attempts, err := Run[StrategyArtifact](context.Background(), NewInvoker(c, 0), testPrompt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if artifact.Solution != "malla" {
		t.Errorf("artifact not decoded on retry: %+v", artifact)
	}

	// The corrective prompt quotes the rejected output and keeps the original.
	retry := c.prompts[1]
	if !strings.Contains(retry, "usuario") {
		t.Error("retry prompt dropped the original content")
	}
	if !strings.Contains(retry, "incompleto") {
		t.Error("retry prompt does not quote the rejected output")
	}
	if !strings.Contains(retry, "Error:") {
		t.Error("retry prompt does not name the validation error")
	}
}

func TestRun_SecondFailureIsFatal(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"no json", "sigue sin json"}}

	_, attempts, err := Run[StrategyArtifact](context.Background(), NewInvoker(c, 0), testPrompt)
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	var sve *SchemaValidationError
	if !errors.As(err, &sve) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
	if sve.Attempts != 2 || sve.Raw != "sigue sin json" {
		t.Errorf("error detail wrong: %+v", sve)
	}
	if len(c.prompts) != 2 {
		t.Errorf("model called %d times, want 2", len(c.prompts))
	}
}

func TestRun_ValidationFailureTriggersRetry(t *testing.T) {
	// Well-formed JSON that fails semantic validation must also retry.
	c := &scriptedCompleter{responses: []string{
		`{"topic":"","problem":"p","solution":"s","rationale":"","post_type":"x"}`,
		validStrategy,
	}}

	_, attempts, err := Run[StrategyArtifact](context.Background(), NewInvoker(c, 0), testPrompt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRun_TransportErrorNotRetried(t *testing.T) {
	c := &scriptedCompleter{err: errors.New("connection refused")}

	_, attempts, err := Run[StrategyArtifact](context.Background(), NewInvoker(c, 0), testPrompt)
	if err == nil {
		t.Fatal("expected error")
	}
	var sve *SchemaValidationError
	if errors.As(err, &sve) {
		t.Error("transport error misclassified as schema failure")
	}
	if attempts != 1 || len(c.prompts) != 1 {
		t.Errorf("transport error retried: attempts=%d calls=%d", attempts, len(c.prompts))
	}
}
