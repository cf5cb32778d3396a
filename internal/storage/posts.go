package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// InsertPost persists a topic record. Returns ErrDuplicatePost when the
// (topic_hash, date_for) unique index rejects the row.
func (s *Store) InsertPost(ctx context.Context, p Post) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, topic, topic_hash, problem, solution, date_for, channel, post_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Topic, p.TopicHash, p.Problem, p.Solution,
		p.DateFor.Format(dateLayout), p.Channel, p.PostType,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicatePost
		}
		return fmt.Errorf("inserting post: %w", err)
	}
	return nil
}

// PostsInWindow returns posts whose date_for lies within windowDays of
// dateFor, in both time directions, ordered by created_at descending.
func (s *Store) PostsInWindow(ctx context.Context, dateFor time.Time, windowDays int) ([]Post, error) {
	start := dateFor.AddDate(0, 0, -windowDays).Format(dateLayout)
	end := dateFor.AddDate(0, 0, windowDays).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, topic_hash, problem, solution, date_for, channel, post_type, created_at
		FROM posts
		WHERE date_for BETWEEN ? AND ?
		ORDER BY created_at DESC`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("querying posts in window: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// RecentPosts returns up to limit posts with date_for in the daysBack days
// up to and including dateFor, most recent first. Used for the history
// summary section of assembled contexts.
func (s *Store) RecentPosts(ctx context.Context, dateFor time.Time, daysBack, limit int) ([]Post, error) {
	cutoff := dateFor.AddDate(0, 0, -daysBack).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, topic_hash, problem, solution, date_for, channel, post_type, created_at
		FROM posts
		WHERE date_for >= ? AND date_for <= ?
		ORDER BY created_at DESC
		LIMIT ?`,
		cutoff, dateFor.Format(dateLayout), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// TopicHashFrequencies counts posts per normalized topic hash over the
// trailing windowDays ending at dateFor. Feeds the variety metric.
func (s *Store) TopicHashFrequencies(ctx context.Context, dateFor time.Time, windowDays int) (map[string]int, error) {
	cutoff := dateFor.AddDate(0, 0, -windowDays).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT topic_hash, COUNT(*)
		FROM posts
		WHERE date_for >= ? AND date_for <= ?
		GROUP BY topic_hash`,
		cutoff, dateFor.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("querying topic frequencies: %w", err)
	}
	defer rows.Close()

	freq := make(map[string]int)
	for rows.Next() {
		var hash string
		var n int
		if err := rows.Scan(&hash, &n); err != nil {
			return nil, fmt.Errorf("scanning frequency row: %w", err)
		}
		freq[hash] = n
	}
	return freq, rows.Err()
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var p Post
		var dateFor, createdAt string
		if err := rows.Scan(&p.ID, &p.Topic, &p.TopicHash, &p.Problem, &p.Solution, &dateFor, &p.Channel, &p.PostType, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		d, err := time.Parse(dateLayout, dateFor)
		if err != nil {
			return nil, fmt.Errorf("parsing date_for for post %s: %w", p.ID, err)
		}
		p.DateFor = d
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for post %s: %w", p.ID, err)
		}
		p.CreatedAt = t
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
