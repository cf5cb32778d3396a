package catalog

import (
	"testing"

	"github.com/impag-mx/surco/internal/storage"
)

func snapshot() []storage.Product {
	return []storage.Product{
		{ID: "42", Name: "Malla Sombra 35% 4x100m", Price: 5200, Currency: "MXN", Active: true},
		{ID: "43", Name: "Malla Sombra 50% 4x100m", Price: 5900, Currency: "MXN", Active: true},
		{ID: "90", Name: "Acolchado Agrícola Plata/Negro 1.2m", Price: 1450, Currency: "MXN", Active: true},
	}
}

func TestMatch_MentionResolvesToCatalogEntry(t *testing.T) {
	m := NewMatcher(80)

	results := m.Match([]string{"malla sombra 35%"}, snapshot())
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].Product.ID != "42" {
		t.Errorf("expected product 42, got %s", results[0].Product.ID)
	}
	if results[0].Score < 80 {
		t.Errorf("expected score >= 80, got %d", results[0].Score)
	}
	if results[0].Mention != "malla sombra 35%" {
		t.Errorf("mention not carried: %q", results[0].Mention)
	}
}

func TestMatch_BelowThresholdYieldsNothing(t *testing.T) {
	m := NewMatcher(80)

	results := m.Match([]string{"sistema de riego por goteo"}, snapshot())
	if len(results) != 0 {
		t.Errorf("expected no matches, got %v", results)
	}
}

func TestMatch_DedupesByProductID(t *testing.T) {
	m := NewMatcher(80)

	results := m.Match([]string{"malla sombra 35%", "malla sombra 35% 4x100m"}, snapshot())
	if len(results) != 1 {
		t.Fatalf("expected 1 deduplicated match, got %d", len(results))
	}
	if results[0].Score != 100 {
		t.Errorf("expected the higher score kept, got %d", results[0].Score)
	}
}

func TestMatch_TieBreaksOnLexicalID(t *testing.T) {
	m := NewMatcher(80)
	snap := []storage.Product{
		{ID: "b2", Name: "Cinta de Riego 8mil", Active: true},
		{ID: "a1", Name: "Cinta de Riego 8mil", Active: true},
	}

	results := m.Match([]string{"cinta de riego 8mil"}, snap)
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].Product.ID != "a1" {
		t.Errorf("expected lexically smaller ID a1, got %s", results[0].Product.ID)
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	m := NewMatcher(80)

	if got := m.Match(nil, snapshot()); len(got) != 0 {
		t.Errorf("expected no matches for nil mentions, got %v", got)
	}
	if got := m.Match([]string{"malla sombra"}, nil); len(got) != 0 {
		t.Errorf("expected no matches for empty snapshot, got %v", got)
	}
	if got := m.Match([]string{"   "}, snapshot()); len(got) != 0 {
		t.Errorf("expected no matches for blank mention, got %v", got)
	}
}

func TestMatch_ResultsSortedByScore(t *testing.T) {
	m := NewMatcher(60)

	results := m.Match([]string{"malla sombra 35% 4x100m", "acolchado plata"}, snapshot())
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by score: %d before %d", results[i-1].Score, results[i].Score)
		}
	}
}

func TestNewMatcher_ThresholdFallback(t *testing.T) {
	if m := NewMatcher(0); m.threshold != DefaultMatchThreshold {
		t.Errorf("expected default threshold, got %d", m.threshold)
	}
	if m := NewMatcher(150); m.threshold != DefaultMatchThreshold {
		t.Errorf("expected default threshold, got %d", m.threshold)
	}
}
