package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/impag-mx/surco/internal/retrieval"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("El riego es clave. ¿Cuándo regar? Temprano!\nNota final sin punto")
	want := []string{"El riego es clave.", "¿Cuándo regar?", "Temprano!", "Nota final sin punto"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentences_DecimalNotSplit(t *testing.T) {
	got := splitSentences("La malla cuesta 5200.50 pesos por rollo.")
	if len(got) != 1 {
		t.Errorf("decimal point split a sentence: %v", got)
	}
}

func TestChunk_RespectsSizeAndOverlap(t *testing.T) {
	text := "Primera oración del documento. Segunda oración del documento. Tercera oración del documento. Cuarta oración del documento."

	chunks := chunk(text, 70, 1)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	for i := 1; i < len(chunks); i++ {
		// The overlap sentence ends the previous chunk and starts the next.
		prevEnd := lastSentence(chunks[i-1])
		if !strings.HasPrefix(chunks[i], prevEnd) {
			t.Errorf("chunk %d does not start with overlap %q: %q", i, prevEnd, chunks[i])
		}
	}
}

func lastSentence(s string) string {
	parts := splitSentences(s)
	return parts[len(parts)-1]
}

func TestChunk_OversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("palabra ", 50) + "final."
	chunks := chunk(long+" Corta.", 100, 1)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := chunk("   \n  ", 100, 1); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
}

type fakeEmbedder struct {
	err   error
	calls [][]string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

type memStore struct {
	mu      sync.Mutex
	records []retrieval.Record
}

func (m *memStore) Insert(records []retrieval.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *memStore) Search(vector []float32, topK int) ([]retrieval.ScoredRecord, error) {
	return nil, nil
}

func (m *memStore) GetByIDs(ctx context.Context, ids []string) ([]retrieval.Record, error) {
	return nil, nil
}

func (m *memStore) Delete(id string) error { return nil }

func (m *memStore) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func TestIngestText_StoresChunks(t *testing.T) {
	emb := &fakeEmbedder{}
	store := &memStore{}
	ing := NewIngestor(emb, store, 80, 1)

	n, err := ing.IngestText(context.Background(), "cotizacion-123", "quotation",
		"Cotización para malla sombra. Incluye instalación en campo. Precio válido por treinta días naturales.")
	if err != nil {
		t.Fatalf("ingesting: %v", err)
	}
	if n == 0 || n != len(store.records) {
		t.Fatalf("chunk count mismatch: returned %d, stored %d", n, len(store.records))
	}
	for _, r := range store.records {
		if r.SourceID != "cotizacion-123" || r.SourceType != "quotation" {
			t.Errorf("record source fields wrong: %+v", r)
		}
		if r.ID == "" || len(r.Embedding) == 0 {
			t.Errorf("record incomplete: %+v", r)
		}
	}
}

func TestIngestText_EmbedFailure(t *testing.T) {
	ing := NewIngestor(&fakeEmbedder{err: errors.New("quota exceeded")}, &memStore{}, 0, 1)

	if _, err := ing.IngestText(context.Background(), "x", "note", "Texto de prueba."); err == nil {
		t.Error("expected embedding error to propagate")
	}
}

func TestIngestDir_SkipsFailingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nota.txt"), []byte("Apunte de campo sobre riego."), 0o644); err != nil {
		t.Fatal(err)
	}
	// A .pdf that is not actually a PDF must be skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "roto.pdf"), []byte("no es un pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &memStore{}
	ing := NewIngestor(&fakeEmbedder{}, store, 0, 1)

	total, err := ing.IngestDir(context.Background(), dir, "note")
	if err != nil {
		t.Fatalf("ingesting dir: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 chunk from the readable file, got %d", total)
	}
}
