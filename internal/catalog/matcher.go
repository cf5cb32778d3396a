package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/impag-mx/surco/internal/storage"
)

// DefaultMatchThreshold is the minimum token-set similarity score, on a
// 0..100 scale, for a catalog entry to count as a match.
const DefaultMatchThreshold = 80

// MatchResult links a free-text product mention to a catalog entry.
type MatchResult struct {
	Product storage.Product
	Mention string
	Score   int
}

// Matcher resolves product mentions against a catalog snapshot using
// token-set similarity. It only ever returns entries present in the
// snapshot; a mention without a sufficiently similar entry yields nothing.
type Matcher struct {
	threshold int
	lev       *metrics.Levenshtein
}

// NewMatcher creates a Matcher with the given score threshold. A threshold
// outside 1..100 falls back to DefaultMatchThreshold.
func NewMatcher(threshold int) *Matcher {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultMatchThreshold
	}
	return &Matcher{threshold: threshold, lev: metrics.NewLevenshtein()}
}

// Match scores every mention against every snapshot entry and returns the
// best match per mention, deduplicated by product ID keeping the highest
// score. Results come back sorted by score descending, then product ID.
func (m *Matcher) Match(mentions []string, snapshot []storage.Product) []MatchResult {
	byID := make(map[string]MatchResult)

	for _, mention := range mentions {
		best, ok := m.bestMatch(mention, snapshot)
		if !ok {
			continue
		}
		if prev, seen := byID[best.Product.ID]; !seen || best.Score > prev.Score {
			byID[best.Product.ID] = best
		}
	}

	results := make([]MatchResult, 0, len(byID))
	for _, r := range byID {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Product.ID < results[j].Product.ID
	})
	return results
}

// bestMatch returns the highest-scoring entry for a mention. Ties are
// broken toward the lexically smaller product ID so results are stable
// across runs.
func (m *Matcher) bestMatch(mention string, snapshot []storage.Product) (MatchResult, bool) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return MatchResult{}, false
	}

	var best MatchResult
	found := false
	for _, p := range snapshot {
		score := m.tokenSetRatio(mention, p.Name)
		if score < m.threshold {
			continue
		}
		if !found || score > best.Score || (score == best.Score && p.ID < best.Product.ID) {
			best = MatchResult{Product: p, Mention: mention, Score: score}
			found = true
		}
	}
	return best, found
}

// tokenSetRatio compares two strings on a 0..100 scale, ignoring token
// order and duplicated tokens. A mention whose tokens are a subset of the
// entry name scores 100 regardless of extra tokens in the name.
func (m *Matcher) tokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, diffA, diffB []string
	for tok := range ta {
		if tb[tok] {
			inter = append(inter, tok)
		} else {
			diffA = append(diffA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			diffB = append(diffB, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(diffA)
	sort.Strings(diffB)

	base := strings.Join(inter, " ")
	withA := joinNonEmpty(base, strings.Join(diffA, " "))
	withB := joinNonEmpty(base, strings.Join(diffB, " "))

	sim := strutil.Similarity(base, withA, m.lev)
	if s := strutil.Similarity(base, withB, m.lev); s > sim {
		sim = s
	}
	if s := strutil.Similarity(withA, withB, m.lev); s > sim {
		sim = s
	}
	return int(math.Round(sim * 100))
}

// tokenSet lowercases and splits a string into its unique tokens.
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " " + b
}
