package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/impag-mx/surco/internal/storage"
)

// FeedClient fetches the shop's public products.json feed and flattens it
// into catalog snapshot rows, one per variant. The feed is owned by the
// shop platform; this client only reads it.
type FeedClient struct {
	feedURL    string
	currency   string
	httpClient *http.Client
}

// NewFeedClient creates a client for the given products.json URL. Prices in
// the feed carry no currency marker; currency labels every imported row
// (the shop sells in MXN).
func NewFeedClient(feedURL, currency string) *FeedClient {
	if currency == "" {
		currency = "MXN"
	}
	return &FeedClient{
		feedURL:  feedURL,
		currency: currency,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// feedResponse mirrors the products.json payload.
type feedResponse struct {
	Products []feedProduct `json:"products"`
}

type feedProduct struct {
	ID       int64         `json:"id"`
	Title    string        `json:"title"`
	Variants []feedVariant `json:"variants"`
}

type feedVariant struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

// Fetch downloads the feed and returns one Product per variant. Variants
// titled "Default Title" inherit the product title unchanged; others get
// the variant title appended, matching how quotations reference them.
func (c *FeedClient) Fetch(ctx context.Context) ([]storage.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding catalog feed: %w", err)
	}

	var products []storage.Product
	for _, p := range feed.Products {
		title := strings.TrimSpace(p.Title)
		for _, v := range p.Variants {
			name := title
			variantTitle := strings.TrimSpace(v.Title)
			if variantTitle != "" && !strings.EqualFold(variantTitle, "Default Title") {
				name = title + " " + variantTitle
			}

			price, err := strconv.ParseFloat(v.Price, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing price %q for variant %d: %w", v.Price, v.ID, err)
			}

			products = append(products, storage.Product{
				ID:       strconv.FormatInt(v.ID, 10),
				Name:     name,
				Price:    price,
				Currency: c.currency,
				Active:   v.Available,
			})
		}
	}

	return products, nil
}

// Sync fetches the feed and replaces the stored snapshot. Returns the
// number of imported variants.
func (c *FeedClient) Sync(ctx context.Context, store *storage.Store) (int, error) {
	products, err := c.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceCatalog(ctx, products); err != nil {
		return 0, fmt.Errorf("replacing catalog snapshot: %w", err)
	}
	return len(products), nil
}
