package config

import (
	"testing"
)

// mapBackend is an in-memory Backend for tests.
type mapBackend struct {
	data map[string]any
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, _ := v.(int)
	return i, true, nil
}

func (b *mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *mapBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }
func (b *mapBackend) Delete(key string) error          { delete(b.data, key); return nil }

func setKeys(t *testing.T) {
	t.Helper()
	t.Setenv("SURCO_ANTHROPIC_API_KEY", "test-anthropic-key")
	t.Setenv("SURCO_OPENAI_API_KEY", "test-openai-key")
}

func TestLoad_Defaults(t *testing.T) {
	setKeys(t)

	cfg, err := loadWith(&mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("expected default port 4600, got %d", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK != 7 {
		t.Errorf("expected default topK 7, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Dedupe.HardWindowDays != 10 || cfg.Dedupe.SoftWindowDays != 3 {
		t.Errorf("unexpected dedupe windows: %+v", cfg.Dedupe)
	}
	if cfg.Catalog.MatchThreshold != 80 {
		t.Errorf("expected match threshold 80, got %d", cfg.Catalog.MatchThreshold)
	}
}

func TestLoad_BackendOverrides(t *testing.T) {
	setKeys(t)

	b := &mapBackend{data: map[string]any{
		"server.port":             5000,
		"catalog.match_threshold": 90,
		"llm.model":               "claude-test",
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("expected port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.MatchThreshold != 90 {
		t.Errorf("expected threshold 90, got %d", cfg.Catalog.MatchThreshold)
	}
	if cfg.LLM.Model != "claude-test" {
		t.Errorf("expected model claude-test, got %q", cfg.LLM.Model)
	}
}

func TestLoad_EnvOverridesBackend(t *testing.T) {
	setKeys(t)
	t.Setenv("SURCO_RETRIEVAL_TOP_K", "12")

	b := &mapBackend{data: map[string]any{"retrieval.top_k": 3}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retrieval.TopK != 12 {
		t.Errorf("env override lost: topK = %d", cfg.Retrieval.TopK)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("SURCO_ANTHROPIC_API_KEY", "")
	t.Setenv("SURCO_OPENAI_API_KEY", "x")

	if _, err := loadWith(&mapBackend{data: map[string]any{}}); err == nil {
		t.Fatal("expected error for missing Anthropic API key")
	}
}

func TestSetKey_RejectsSecrets(t *testing.T) {
	if err := SetKey("llm.anthropic_api_key", "oops"); err == nil {
		t.Fatal("expected error setting secret via SetKey")
	}
}
