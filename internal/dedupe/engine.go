package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/impag-mx/surco/internal/storage"
)

// Default uniqueness windows, in days, applied symmetrically around the
// publication date. The hard window blocks exact topic repeats; the soft
// window flags the same problem resurfacing with a different remedy.
const (
	DefaultHardWindowDays = 10
	DefaultSoftWindowDays = 3
)

// ErrHardDuplicate signals that an identical topic already exists inside
// the hard window. Callers must pick another topic.
var ErrHardDuplicate = errors.New("topic already published within the hard window")

// historyStore is the slice of storage.Store the engine needs.
type historyStore interface {
	InsertPost(ctx context.Context, p storage.Post) error
	PostsInWindow(ctx context.Context, dateFor time.Time, windowDays int) ([]storage.Post, error)
	TopicHashFrequencies(ctx context.Context, dateFor time.Time, windowDays int) (map[string]int, error)
}

// Result reports the outcome of a duplicate check. Hard means the exact
// topic exists in the hard window and publication must not proceed; Soft
// means the same problem appears with a different solution inside the soft
// window, a warning rather than a block.
type Result struct {
	Hard      bool
	Soft      bool
	Conflicts []storage.Post
}

// Engine enforces topic uniqueness over the publishing history.
type Engine struct {
	store          historyStore
	hardWindowDays int
	softWindowDays int

	// recordMu serializes the check-then-insert in Record. The hard
	// window spans dates, so the lock must too: two concurrent drafts a
	// couple of days apart are still in each other's window, and per-date
	// locking would let both pass the check. Record is rare enough that
	// one lock costs nothing.
	recordMu sync.Mutex
}

// NewEngine creates an Engine with the given windows. Non-positive window
// values fall back to the defaults.
func NewEngine(store historyStore, hardWindowDays, softWindowDays int) *Engine {
	if hardWindowDays <= 0 {
		hardWindowDays = DefaultHardWindowDays
	}
	if softWindowDays <= 0 {
		softWindowDays = DefaultSoftWindowDays
	}
	return &Engine{
		store:          store,
		hardWindowDays: hardWindowDays,
		softWindowDays: softWindowDays,
	}
}

// CheckDuplicate evaluates a topic against the history around dateFor. A
// malformed topic is rejected with ErrInvalidTopic before any history is
// read. The windows are symmetric: a post scheduled ahead of dateFor
// conflicts the same as one already published behind it.
func (e *Engine) CheckDuplicate(ctx context.Context, topic string, dateFor time.Time) (Result, error) {
	if err := Validate(topic); err != nil {
		return Result{}, err
	}

	hash := Hash(topic)
	problem, solution, _ := Split(topic)

	posts, err := e.store.PostsInWindow(ctx, dateFor, e.hardWindowDays)
	if err != nil {
		return Result{}, fmt.Errorf("loading posts for duplicate check: %w", err)
	}

	var res Result
	for _, p := range posts {
		if p.TopicHash == hash {
			res.Hard = true
			res.Conflicts = append(res.Conflicts, p)
			continue
		}
		if !withinDays(p.DateFor, dateFor, e.softWindowDays) {
			continue
		}
		if Normalize(p.Problem) == problem && Normalize(p.Solution) != solution {
			res.Soft = true
			res.Conflicts = append(res.Conflicts, p)
		}
	}
	return res, nil
}

// Record runs a final duplicate check and persists the post. A hard
// conflict returns ErrHardDuplicate and stores nothing. The engine lock
// closes the window between check and insert for concurrent callers; the
// unique index underneath catches writers on other processes, surfacing
// as storage.ErrDuplicatePost which Record maps to the same hard error.
func (e *Engine) Record(ctx context.Context, topic string, dateFor time.Time, channel, postType string) (storage.Post, error) {
	if err := Validate(topic); err != nil {
		return storage.Post{}, err
	}

	e.recordMu.Lock()
	defer e.recordMu.Unlock()

	res, err := e.CheckDuplicate(ctx, topic, dateFor)
	if err != nil {
		return storage.Post{}, err
	}
	if res.Hard {
		return storage.Post{}, ErrHardDuplicate
	}

	problem, solution, _ := Split(topic)
	post := storage.Post{
		ID:        uuid.NewString(),
		Topic:     Normalize(topic),
		TopicHash: Hash(topic),
		Problem:   problem,
		Solution:  solution,
		DateFor:   dateFor,
		Channel:   channel,
		PostType:  postType,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertPost(ctx, post); err != nil {
		if errors.Is(err, storage.ErrDuplicatePost) {
			return storage.Post{}, ErrHardDuplicate
		}
		return storage.Post{}, err
	}
	return post, nil
}

// VarietyScore measures topic diversity over the trailing windowDays
// ending at dateFor: unique topics divided by total posts, in (0, 1].
// An empty window scores 1; nothing has been repeated.
func (e *Engine) VarietyScore(ctx context.Context, dateFor time.Time, windowDays int) (float64, error) {
	freq, err := e.store.TopicHashFrequencies(ctx, dateFor, windowDays)
	if err != nil {
		return 0, fmt.Errorf("loading topic frequencies: %w", err)
	}

	total := 0
	for _, n := range freq {
		total += n
	}
	if total == 0 {
		return 1, nil
	}
	return float64(len(freq)) / float64(total), nil
}

func withinDays(a, b time.Time, days int) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(days)*24*time.Hour
}
