package composer

import (
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended when a section's text exceeds its budget.
// The marker fits inside the budget, so rendered sections never overrun.
const TruncationMarker = "…"

// Default per-section character budgets. Region and history text comes
// from unbounded sources and must be capped so prompts stay a predictable
// size; instruction text and generation inputs from earlier phases are
// passed whole.
const (
	RegionBudget  = 800
	HistoryBudget = 600
	HintsBudget   = 300
)

// Section is one labeled block of an assembled prompt. A Budget of zero
// means unlimited.
type Section struct {
	Label  string
	Text   string
	Budget int
}

// Prompt is a fully assembled prompt ready for a model call.
type Prompt struct {
	System string
	User   string
}

// Render produces the user prompt text from sections, in order. Empty
// sections are skipped entirely rather than rendered as bare labels, so
// missing context (a degraded retrieval, no catalog matches) leaves no
// hole in the prompt. Output is deterministic for identical input.
func Render(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		text = Clamp(text, s.Budget)
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if s.Label != "" {
			b.WriteString("## ")
			b.WriteString(s.Label)
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	return b.String()
}

// Clamp truncates text to at most budget characters, counting runes rather
// than bytes so multi-byte text is never cut mid-character. Truncated text
// ends with TruncationMarker and still fits the budget. A budget <= 0
// leaves the text untouched.
func Clamp(text string, budget int) string {
	if budget <= 0 || utf8.RuneCountInString(text) <= budget {
		return text
	}

	keep := budget - utf8.RuneCountInString(TruncationMarker)
	if keep <= 0 {
		return TruncationMarker
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:keep])) + TruncationMarker
}
