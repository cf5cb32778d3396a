package ingest

import (
	"strings"
	"unicode"
)

// Chunking defaults: chunks big enough to carry a complete thought from a
// quotation or note, with a one-sentence overlap so a fact straddling a
// boundary survives in at least one chunk.
const (
	DefaultChunkSize       = 900
	DefaultOverlapSentence = 1
)

// splitSentences breaks text into sentences on terminal punctuation and
// newlines. It is deliberately simple; quotations and field notes are not
// literary prose.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// chunk groups sentences into pieces of at most maxChars characters,
// carrying overlap trailing sentences into the next piece. A single
// sentence longer than maxChars becomes its own oversized chunk rather
// than being cut mid-sentence.
func chunk(text string, maxChars, overlap int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, s := range sentences {
		sLen := len([]rune(s))
		if currentLen > 0 && currentLen+sLen+1 > maxChars {
			chunks = append(chunks, strings.Join(current, " "))
			// Carry at most overlap sentences forward, always dropping at
			// least one so progress is guaranteed.
			keep := overlap
			if keep >= len(current) {
				keep = len(current) - 1
			}
			current = append([]string(nil), current[len(current)-keep:]...)
			currentLen = 0
			for _, c := range current {
				currentLen += len([]rune(c)) + 1
			}
		}
		current = append(current, s)
		currentLen += sLen + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
