package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/impag-mx/surco/internal/retrieval"
)

// ingestConcurrency caps parallel file ingestion; embedding calls are the
// bottleneck, not disk reads.
const ingestConcurrency = 4

// embedBatchSize is the number of chunks sent per embedding call.
const embedBatchSize = 64

// Embedder converts texts to vectors. Satisfied by llm.OpenAIEmbedder.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Ingestor turns source documents into embedded chunks in the vector
// store. Quotations, field notes and catalog descriptions all pass
// through the same path: extract text, chunk it, embed, insert.
type Ingestor struct {
	embedder  Embedder
	store     retrieval.VectorStore
	chunkSize int
	overlap   int
}

// NewIngestor creates an Ingestor. Non-positive chunkSize or negative
// overlap use the defaults.
func NewIngestor(embedder Embedder, store retrieval.VectorStore, chunkSize, overlap int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlapSentence
	}
	return &Ingestor{embedder: embedder, store: store, chunkSize: chunkSize, overlap: overlap}
}

// IngestText chunks, embeds and stores a single document. Returns the
// number of chunks inserted.
func (in *Ingestor) IngestText(ctx context.Context, sourceID, sourceType, text string) (int, error) {
	chunks := chunk(text, in.chunkSize, in.overlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	var records []retrieval.Record
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := in.embedder.Embed(ctx, batch)
		if err != nil {
			return 0, fmt.Errorf("embedding chunks of %s: %w", sourceID, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedding %s: got %d vectors for %d chunks", sourceID, len(vectors), len(batch))
		}

		for i, text := range batch {
			records = append(records, retrieval.Record{
				ID:         uuid.NewString(),
				SourceID:   sourceID,
				SourceType: sourceType,
				TextChunk:  text,
				Embedding:  vectors[i],
				CreatedAt:  now,
			})
		}
	}

	if err := in.store.Insert(records); err != nil {
		return 0, fmt.Errorf("storing chunks of %s: %w", sourceID, err)
	}
	return len(records), nil
}

// IngestFile extracts text from a file and ingests it. PDF files go
// through the PDF extractor; everything else is read as plain text.
func (in *Ingestor) IngestFile(ctx context.Context, path, sourceType string) (int, error) {
	var text string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = extractPDF(path)
	} else {
		text, err = readTextFile(path)
	}
	if err != nil {
		return 0, err
	}
	return in.IngestText(ctx, filepath.Base(path), sourceType, text)
}

// IngestDir ingests every regular file under dir, a few files at a time.
// A file that fails is logged and skipped; one corrupt PDF should not
// abort a directory import. Returns the total chunks inserted.
func (in *Ingestor) IngestDir(ctx context.Context, dir, sourceType string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking %s: %w", dir, err)
	}

	counts := make([]int, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			n, err := in.IngestFile(ctx, path, sourceType)
			if err != nil {
				slog.Warn("skipping file", "path", path, "error", err)
				return nil
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// extractPDF pulls the plain text out of a PDF file.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading text of %s: %w", path, err)
	}
	return string(data), nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
