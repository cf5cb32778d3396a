package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidTopic signals a malformed topic: no separator, a half below
// its minimum length, or a catch-all phrase. Wrapped by Validate errors.
var ErrInvalidTopic = errors.New("invalid topic")

// Topic separator after normalization. All arrow spellings collapse to
// this one so equivalent topics hash identically.
const arrow = "→"

// arrowVariants lists the separator spellings seen in drafted topics.
// Longer spellings come first so "=>" is not half-replaced.
var arrowVariants = []string{"-->", "->", "=>", "➜", "➡", "⟶", "⇒"}

// minProblemLen and minSolutionLen reject topic halves too short to be a
// concrete problem or remedy.
const (
	minProblemLen  = 10
	minSolutionLen = 8
)

// vagueTerms are topic halves that name no real problem or solution.
var vagueTerms = []string{
	"tips generales",
	"consejos generales",
	"recomendaciones",
	"varios temas",
	"información general",
}

// Normalize canonicalizes a topic for hashing: arrow spellings unify,
// decorative symbols drop, case and whitespace collapse, and edge
// punctuation trims. Normalize is idempotent: applying it to its own
// output changes nothing.
func Normalize(topic string) string {
	s := topic
	for _, v := range arrowVariants {
		s = strings.ReplaceAll(s, v, " "+arrow+" ")
	}
	s = strings.ToLower(s)
	s = stripSymbols(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " .,;:¡!¿?\"'«»‐‑–—*#")
	return s
}

// stripSymbols removes emoji and other decorative symbols. The arrow
// (U+2192, a math symbol) is kept; it is the topic separator.
func stripSymbols(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '→' {
			return r
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return -1
		}
		// Variation selectors, ZWJ and combining keycap used in emoji sequences.
		if (r >= 0xFE00 && r <= 0xFE0F) || r == 0x200D || r == 0x20E3 {
			return -1
		}
		return r
	}, s)
}

// Hash returns the hex SHA-256 of the normalized topic. Two topics with
// the same hash are the same topic for uniqueness purposes.
func Hash(topic string) string {
	sum := sha256.Sum256([]byte(Normalize(topic)))
	return hex.EncodeToString(sum[:])
}

// Split divides a normalized topic at the FIRST arrow, so a topic whose
// solution itself contains an arrow keeps the remainder intact. The
// second return is false when the topic has no arrow.
func Split(topic string) (problem, solution string, ok bool) {
	s := Normalize(topic)
	before, after, found := strings.Cut(s, arrow)
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

// Validate checks that a topic is well-formed: it splits into a problem of
// at least 10 characters and a solution of at least 8, and neither half is
// a catch-all phrase.
func Validate(topic string) error {
	problem, solution, ok := Split(topic)
	if !ok {
		return fmt.Errorf("%w: topic %q has no %q separator", ErrInvalidTopic, topic, arrow)
	}
	if len([]rune(problem)) < minProblemLen {
		return fmt.Errorf("%w: problem %q is shorter than %d characters", ErrInvalidTopic, problem, minProblemLen)
	}
	if len([]rune(solution)) < minSolutionLen {
		return fmt.Errorf("%w: solution %q is shorter than %d characters", ErrInvalidTopic, solution, minSolutionLen)
	}
	for _, vague := range vagueTerms {
		if problem == vague || solution == vague {
			return fmt.Errorf("%w: topic half %q is too generic", ErrInvalidTopic, vague)
		}
	}
	return nil
}
