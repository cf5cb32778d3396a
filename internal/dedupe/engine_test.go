package dedupe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/impag-mx/surco/internal/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewEngine(s, DefaultHardWindowDays, DefaultSoftWindowDays)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckDuplicate_HardWindowIsSymmetric(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	topic := "plagas en tomate → control biológico"

	if _, err := e.Record(ctx, topic, date(2026, 8, 15), "facebook", "educativo"); err != nil {
		t.Fatalf("recording post: %v", err)
	}

	cases := []struct {
		dateFor time.Time
		hard    bool
	}{
		{date(2026, 8, 25), true},  // 10 days after
		{date(2026, 8, 5), true},   // 10 days before
		{date(2026, 8, 26), false}, // 11 days after
		{date(2026, 8, 4), false},  // 11 days before
	}
	for _, c := range cases {
		res, err := e.CheckDuplicate(ctx, "PLAGAS EN TOMATE -> Control Biológico", c.dateFor)
		if err != nil {
			t.Fatalf("checking duplicate at %s: %v", c.dateFor.Format("2006-01-02"), err)
		}
		if res.Hard != c.hard {
			t.Errorf("hard at %s = %v, want %v", c.dateFor.Format("2006-01-02"), res.Hard, c.hard)
		}
		if c.hard && len(res.Conflicts) == 0 {
			t.Errorf("hard duplicate at %s reported no conflicts", c.dateFor.Format("2006-01-02"))
		}
	}
}

func TestCheckDuplicate_SoftSameProblemDifferentSolution(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Record(ctx, "calor extremo → malla sombra 35%", date(2026, 7, 10), "facebook", "producto"); err != nil {
		t.Fatalf("recording post: %v", err)
	}

	res, err := e.CheckDuplicate(ctx, "calor extremo → riego nocturno", date(2026, 7, 12))
	if err != nil {
		t.Fatalf("checking duplicate: %v", err)
	}
	if res.Hard {
		t.Error("different solution should not be a hard duplicate")
	}
	if !res.Soft {
		t.Error("same problem within soft window should flag soft")
	}

	// Outside the soft window the same problem is fine.
	res, err = e.CheckDuplicate(ctx, "calor extremo → riego nocturno", date(2026, 7, 14))
	if err != nil {
		t.Fatalf("checking duplicate: %v", err)
	}
	if res.Soft {
		t.Error("soft window should not reach 4 days out")
	}
}

func TestRecord_BlocksHardDuplicate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	topic := "sequía prolongada → riego por goteo"

	post, err := e.Record(ctx, topic, date(2026, 6, 1), "facebook", "educativo")
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if post.TopicHash != Hash(topic) || post.Problem != "sequía prolongada" {
		t.Errorf("recorded post malformed: %+v", post)
	}

	if _, err := e.Record(ctx, "Sequía Prolongada -> Riego por Goteo", date(2026, 6, 8), "facebook", "educativo"); !errors.Is(err, ErrHardDuplicate) {
		t.Errorf("expected ErrHardDuplicate, got %v", err)
	}
}

func TestRecord_RejectsInvalidTopic(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Record(context.Background(), "sin separador", date(2026, 6, 1), "facebook", "educativo"); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
}

func TestCheckDuplicate_RejectsInvalidTopic(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cases := []string{
		"sin separador",
		"corto → malla sombra",
		"plagas en tomate → corta",
	}
	for _, topic := range cases {
		if _, err := e.CheckDuplicate(ctx, topic, date(2026, 6, 1)); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("CheckDuplicate(%q) error = %v, want ErrInvalidTopic", topic, err)
		}
	}
}

func TestRecord_ConcurrentSameTopicOneWins(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	topic := "granizo en agosto → malla antigranizo"

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Record(ctx, topic, date(2026, 8, 20), "facebook", "producto")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrHardDuplicate):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one successful record, got %d", wins)
	}
}

// laggedStore widens the gap between the window query and the insert so
// concurrent Record calls overlap reliably.
type laggedStore struct {
	historyStore
	delay time.Duration
}

func (s laggedStore) PostsInWindow(ctx context.Context, dateFor time.Time, windowDays int) ([]storage.Post, error) {
	posts, err := s.historyStore.PostsInWindow(ctx, dateFor, windowDays)
	time.Sleep(s.delay)
	return posts, err
}

func TestRecord_ConcurrentAcrossDatesOneWins(t *testing.T) {
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	e := NewEngine(laggedStore{historyStore: s, delay: 100 * time.Millisecond}, DefaultHardWindowDays, DefaultSoftWindowDays)

	ctx := context.Background()
	topic := "granizo en agosto → malla antigranizo"
	dates := []time.Time{date(2026, 8, 20), date(2026, 8, 22)}

	// The dates differ, so the unique index cannot save us here; only the
	// engine lock keeps the second record from passing the window check.
	var wg sync.WaitGroup
	errs := make([]error, len(dates))
	for i, d := range dates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.Record(ctx, topic, d, "facebook", "producto")
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrHardDuplicate):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one successful record across dates, got %d", wins)
	}
}

func TestVarietyScore(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	score, err := e.VarietyScore(ctx, date(2026, 8, 1), 30)
	if err != nil {
		t.Fatalf("variety on empty history: %v", err)
	}
	if score != 1 {
		t.Errorf("empty history variety = %f, want 1", score)
	}

	topics := []struct {
		topic string
		day   int
	}{
		{"plagas en tomate → control biológico", 1},
		{"calor extremo → malla sombra 35%", 5},
		{"plagas en tomate → control biológico", 20},
	}
	for _, tc := range topics {
		if _, err := e.Record(ctx, tc.topic, date(2026, 7, tc.day), "facebook", "educativo"); err != nil {
			t.Fatalf("recording %q: %v", tc.topic, err)
		}
	}

	score, err = e.VarietyScore(ctx, date(2026, 8, 1), 40)
	if err != nil {
		t.Fatalf("variety: %v", err)
	}
	want := 2.0 / 3.0
	if score < want-0.001 || score > want+0.001 {
		t.Errorf("variety = %f, want %f", score, want)
	}
}
