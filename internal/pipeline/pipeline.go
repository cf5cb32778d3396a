package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/impag-mx/surco/internal/catalog"
	"github.com/impag-mx/surco/internal/composer"
	"github.com/impag-mx/surco/internal/dedupe"
	"github.com/impag-mx/surco/internal/generate"
	"github.com/impag-mx/surco/internal/retrieval"
	"github.com/impag-mx/surco/internal/storage"
)

// historyDays and historyLimit bound the publishing history summarized in
// strategy prompts.
const (
	historyDays  = 30
	historyLimit = 20
)

// Phase names, in pipeline order.
const (
	PhaseStrategy = "strategy"
	PhaseContent  = "content"
	PhaseQA       = "qa"
)

// ErrDuplicateTopic is returned when the strategy phase lands on a topic
// already used inside the hard uniqueness window.
var ErrDuplicateTopic = errors.New("generated topic duplicates a recent post")

// retriever, regionSource and deduper are the pipeline's views of its
// collaborators; narrow so tests can fake them.
type retriever interface {
	Retrieve(ctx context.Context, query string, topK int) []retrieval.ContextSnippet
}

type regionSource interface {
	ForMonth(month time.Month) string
}

type deduper interface {
	CheckDuplicate(ctx context.Context, topic string, dateFor time.Time) (dedupe.Result, error)
	Record(ctx context.Context, topic string, dateFor time.Time, channel, postType string) (storage.Post, error)
	VarietyScore(ctx context.Context, dateFor time.Time, windowDays int) (float64, error)
}

type postHistory interface {
	RecentPosts(ctx context.Context, dateFor time.Time, daysBack, limit int) ([]storage.Post, error)
	ActiveProducts(ctx context.Context) ([]storage.Product, error)
}

type productMatcher interface {
	Match(mentions []string, snapshot []storage.Product) []catalog.MatchResult
}

// Pipeline chains retrieval, context assembly, phased generation and
// uniqueness enforcement into a single grounded generation run.
type Pipeline struct {
	retriever retriever
	region    regionSource
	dedupe    deduper
	store     postHistory
	matcher   productMatcher
	invoker   *generate.Invoker
	topK      int
}

// New wires a Pipeline from its collaborators. topK <= 0 uses the
// retrieval default.
func New(r retriever, region regionSource, d deduper, store postHistory, matcher productMatcher, invoker *generate.Invoker, topK int) *Pipeline {
	return &Pipeline{
		retriever: r,
		region:    region,
		dedupe:    d,
		store:     store,
		matcher:   matcher,
		invoker:   invoker,
		topK:      topK,
	}
}

// Request describes one generation run.
type Request struct {
	Query   string
	DateFor time.Time
	Channel string
	// Phases selects which phases run, in order. Empty means all three.
	Phases []string
}

// Result carries the artifacts of a completed run. Products lists the
// catalog entries resolved from the content's product mentions; QA and
// Post are zero-valued when their phases were not requested.
type Result struct {
	Strategy generate.StrategyArtifact
	Content  generate.ContentArtifact
	QA       generate.QAArtifact
	Products []catalog.MatchResult
	Post     storage.Post
	SoftDup  bool
	// Attempts records model calls consumed per executed phase.
	Attempts map[string]int
}

// Generate runs the requested phases for one post. Retrieval degradation
// is invisible to the caller; a missing catalog match only narrows what
// the content may mention; a schema failure after the corrective retry or
// a hard topic duplicate aborts the run.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Result, error) {
	if req.Query == "" {
		return Result{}, fmt.Errorf("query is required")
	}
	if req.DateFor.IsZero() {
		return Result{}, fmt.Errorf("publication date is required")
	}
	phases := req.Phases
	if len(phases) == 0 {
		phases = []string{PhaseStrategy, PhaseContent, PhaseQA}
	}

	res := Result{Attempts: make(map[string]int)}

	snippets := p.retriever.Retrieve(ctx, req.Query, p.topK)
	regionNotes := p.region.ForMonth(req.DateFor.Month())

	history, err := p.store.RecentPosts(ctx, req.DateFor, historyDays, historyLimit)
	if err != nil {
		return res, fmt.Errorf("loading post history: %w", err)
	}
	hints := topicHints(history)

	inputs := composer.Inputs{
		Query:       req.Query,
		Snippets:    snippets,
		RegionNotes: regionNotes,
		History:     history,
		DedupeHints: hints,
	}

	for _, phase := range phases {
		switch phase {
		case PhaseStrategy:
			if err := p.runStrategy(ctx, req, inputs, &res); err != nil {
				return res, err
			}
			inputs.Prior = strategyJSON(res.Strategy)
		case PhaseContent:
			if err := p.runContent(ctx, inputs, &res); err != nil {
				return res, err
			}
			inputs.Prior = contentJSON(res.Content)
		case PhaseQA:
			if err := p.runQA(ctx, inputs, &res); err != nil {
				return res, err
			}
		default:
			return res, fmt.Errorf("unknown phase %q", phase)
		}
	}

	// Record the topic only after every requested phase passed, so a QA
	// rejection or schema failure never burns a date slot.
	if res.Strategy.Topic != "" && phaseRequested(phases, PhaseStrategy) {
		post, err := p.dedupe.Record(ctx, res.Strategy.Topic, req.DateFor, req.Channel, res.Strategy.PostType)
		if err != nil {
			if errors.Is(err, dedupe.ErrHardDuplicate) {
				return res, fmt.Errorf("%w: %s", ErrDuplicateTopic, res.Strategy.Topic)
			}
			return res, fmt.Errorf("recording topic: %w", err)
		}
		res.Post = post
	}

	return res, nil
}

func (p *Pipeline) runStrategy(ctx context.Context, req Request, inputs composer.Inputs, res *Result) error {
	artifact, attempts, err := generate.Run[generate.StrategyArtifact](ctx, p.invoker, composer.StrategyPrompt(inputs))
	res.Attempts[PhaseStrategy] = attempts
	if err != nil {
		return fmt.Errorf("strategy phase: %w", err)
	}

	check, err := p.dedupe.CheckDuplicate(ctx, artifact.Topic, req.DateFor)
	if err != nil {
		return fmt.Errorf("checking topic uniqueness: %w", err)
	}
	if check.Hard {
		return fmt.Errorf("%w: %s", ErrDuplicateTopic, artifact.Topic)
	}
	if check.Soft {
		slog.Warn("topic reuses a recent problem with a new solution", "topic", artifact.Topic)
		res.SoftDup = true
	}

	res.Strategy = artifact
	return nil
}

func (p *Pipeline) runContent(ctx context.Context, inputs composer.Inputs, res *Result) error {
	// Resolve the strategy's solution against the catalog so the content
	// prompt carries exact names and prices. No match is benign; the
	// prompt simply lists no products and the instructions forbid
	// inventing any.
	if res.Strategy.Solution != "" {
		snapshot, err := p.store.ActiveProducts(ctx)
		if err != nil {
			return fmt.Errorf("loading catalog snapshot: %w", err)
		}
		res.Products = p.matcher.Match([]string{res.Strategy.Solution}, snapshot)
		if len(res.Products) == 0 {
			slog.Info("no catalog match for solution", "solution", res.Strategy.Solution)
		}
	}
	for _, m := range res.Products {
		inputs.Products = append(inputs.Products, m.Product)
	}

	artifact, attempts, err := generate.Run[generate.ContentArtifact](ctx, p.invoker, composer.ContentPrompt(inputs))
	res.Attempts[PhaseContent] = attempts
	if err != nil {
		return fmt.Errorf("content phase: %w", err)
	}
	res.Content = artifact
	return nil
}

func (p *Pipeline) runQA(ctx context.Context, inputs composer.Inputs, res *Result) error {
	artifact, attempts, err := generate.Run[generate.QAArtifact](ctx, p.invoker, composer.QAPrompt(inputs))
	res.Attempts[PhaseQA] = attempts
	if err != nil {
		return fmt.Errorf("qa phase: %w", err)
	}
	if !artifact.Approved {
		res.QA = artifact
		return fmt.Errorf("qa rejected the post: %v", artifact.Issues)
	}
	res.QA = artifact
	return nil
}

// CheckDuplicate exposes the uniqueness check for callers that validate a
// topic without generating.
func (p *Pipeline) CheckDuplicate(ctx context.Context, topic string, dateFor time.Time) (dedupe.Result, error) {
	return p.dedupe.CheckDuplicate(ctx, topic, dateFor)
}

// VarietyScore exposes the topic diversity metric.
func (p *Pipeline) VarietyScore(ctx context.Context, dateFor time.Time, windowDays int) (float64, error) {
	return p.dedupe.VarietyScore(ctx, dateFor, windowDays)
}

// topicHints lists distinct recent topics for the "avoid these" prompt
// section, preserving history order.
func topicHints(history []storage.Post) []string {
	seen := make(map[string]bool)
	var hints []string
	for _, p := range history {
		if seen[p.TopicHash] {
			continue
		}
		seen[p.TopicHash] = true
		hints = append(hints, p.Topic)
	}
	return hints
}

// strategyJSON and contentJSON render validated artifacts back to JSON
// for the next phase's prompt. Marshaling a struct that round-tripped
// through the decoder cannot fail.
func strategyJSON(a generate.StrategyArtifact) string {
	b, _ := json.Marshal(a)
	return string(b)
}

func contentJSON(a generate.ContentArtifact) string {
	b, _ := json.Marshal(a)
	return string(b)
}

func phaseRequested(phases []string, want string) bool {
	for _, p := range phases {
		if p == want {
			return true
		}
	}
	return false
}
