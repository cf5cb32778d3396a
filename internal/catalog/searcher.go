package catalog

import (
	"context"
	"fmt"

	"github.com/impag-mx/surco/internal/storage"
)

// Searcher resolves free-text mentions against the stored catalog
// snapshot.
type Searcher struct {
	store   *storage.Store
	matcher *Matcher
}

// NewSearcher creates a Searcher over the given store and matcher.
func NewSearcher(store *storage.Store, matcher *Matcher) *Searcher {
	return &Searcher{store: store, matcher: matcher}
}

// Search matches one mention against the active products.
func (s *Searcher) Search(ctx context.Context, query string) ([]MatchResult, error) {
	products, err := s.store.ActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog snapshot: %w", err)
	}
	return s.matcher.Match([]string{query}, products), nil
}
