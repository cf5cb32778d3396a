package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/impag-mx/surco/internal/dedupe"
	"github.com/impag-mx/surco/internal/generate"
	"github.com/impag-mx/surco/internal/pipeline"
)

const maxRequestBodySize = 1 << 20 // 1MB

const dateLayout = "2006-01-02"

// Generator abstracts the generation pipeline for the API layer.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	CheckDuplicate(ctx context.Context, topic string, dateFor time.Time) (dedupe.Result, error)
	VarietyScore(ctx context.Context, dateFor time.Time, windowDays int) (float64, error)
}

// CatalogSyncer abstracts the catalog feed refresh.
type CatalogSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// SyncerFunc adapts a function to CatalogSyncer.
type SyncerFunc func(ctx context.Context) (int, error)

func (f SyncerFunc) Sync(ctx context.Context) (int, error) { return f(ctx) }

// Deps holds everything the HTTP handlers need.
type Deps struct {
	Pipeline Generator
	Catalog  CatalogSyncer
	Token    string // optional; empty disables auth
}

// NewHandler returns the HTTP API router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/api/generate", handleGenerate(deps))
		r.Post("/api/dedupe/check", handleDedupeCheck(deps))
		r.Post("/api/catalog/refresh", handleCatalogRefresh(deps))
		r.Get("/api/variety", handleVariety(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type generateRequest struct {
	Query   string   `json:"query"`
	DateFor string   `json:"date_for"`
	Channel string   `json:"channel"`
	Phases  []string `json:"phases,omitempty"`
}

type generateResponse struct {
	Strategy generate.StrategyArtifact `json:"strategy"`
	Content  generate.ContentArtifact  `json:"content"`
	QA       generate.QAArtifact       `json:"qa"`
	Products []productMatch            `json:"products"`
	PostID   string                    `json:"post_id,omitempty"`
	SoftDup  bool                      `json:"soft_duplicate"`
	Attempts map[string]int            `json:"attempts"`
}

type productMatch struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Score    int     `json:"score"`
}

func handleGenerate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}
		dateFor, err := parseDate(req.DateFor)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "date_for: %v", err)
			return
		}

		res, err := deps.Pipeline.Generate(r.Context(), pipeline.Request{
			Query:   req.Query,
			DateFor: dateFor,
			Channel: req.Channel,
			Phases:  req.Phases,
		})
		if err != nil {
			var sve *generate.SchemaValidationError
			switch {
			case errors.Is(err, pipeline.ErrDuplicateTopic):
				httpError(w, http.StatusConflict, "duplicate_topic", "%v", err)
			case errors.As(err, &sve):
				httpError(w, http.StatusBadGateway, "schema_validation_error", "%v", err)
			default:
				httpError(w, http.StatusInternalServerError, "api_error", "generation failed: %v", err)
			}
			return
		}

		resp := generateResponse{
			Strategy: res.Strategy,
			Content:  res.Content,
			QA:       res.QA,
			Products: make([]productMatch, 0, len(res.Products)),
			PostID:   res.Post.ID,
			SoftDup:  res.SoftDup,
			Attempts: res.Attempts,
		}
		for _, m := range res.Products {
			resp.Products = append(resp.Products, productMatch{
				ID:       m.Product.ID,
				Name:     m.Product.Name,
				Price:    m.Product.Price,
				Currency: m.Product.Currency,
				Score:    m.Score,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

type dedupeCheckRequest struct {
	Topic   string `json:"topic"`
	DateFor string `json:"date_for"`
}

type dedupeCheckResponse struct {
	Hard      bool     `json:"hard"`
	Soft      bool     `json:"soft"`
	Conflicts []string `json:"conflicts"`
}

func handleDedupeCheck(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req dedupeCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Topic == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "topic is required")
			return
		}
		dateFor, err := parseDate(req.DateFor)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "date_for: %v", err)
			return
		}

		res, err := deps.Pipeline.CheckDuplicate(r.Context(), req.Topic, dateFor)
		if err != nil {
			if errors.Is(err, dedupe.ErrInvalidTopic) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "duplicate check failed: %v", err)
			return
		}

		resp := dedupeCheckResponse{Hard: res.Hard, Soft: res.Soft, Conflicts: []string{}}
		for _, p := range res.Conflicts {
			resp.Conflicts = append(resp.Conflicts, fmt.Sprintf("%s (%s)", p.Topic, p.DateFor.Format(dateLayout)))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleCatalogRefresh(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Catalog.Sync(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "catalog refresh failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"products": n})
	}
}

func handleVariety(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateFor, err := parseDate(r.URL.Query().Get("date_for"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "date_for: %v", err)
			return
		}
		windowDays := parseIntParam(r, "window_days", 30, 365)

		score, err := deps.Pipeline.VarietyScore(r.Context(), dateFor, windowDays)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "variety score failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"date_for":    dateFor.Format(dateLayout),
			"window_days": windowDays,
			"variety":     score,
		})
	}
}

// parseDate accepts YYYY-MM-DD; empty means today (UTC).
func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
