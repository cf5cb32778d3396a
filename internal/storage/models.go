package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicatePost is returned when inserting a post whose (topic_hash,
// date_for) pair already exists. Callers treat this as a hard duplicate
// discovered late: two concurrent generations passed the window check and
// the unique index caught the loser.
var ErrDuplicatePost = errors.New("duplicate post for topic hash and date")

// Post is one accepted social post artifact's topic record. Immutable after
// insertion; consulted only for future duplicate checks and variety metrics.
type Post struct {
	ID        string
	Topic     string
	TopicHash string
	Problem   string
	Solution  string
	DateFor   time.Time
	Channel   string
	PostType  string
	CreatedAt time.Time
}

// Product is one row of the read-only catalog snapshot.
type Product struct {
	ID        string
	Name      string
	Price     float64
	Currency  string
	Active    bool
	UpdatedAt time.Time
}
