// internal/adapter/storage/sqlite_store.go

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"peerhive/internal/domain/post"
)

// SQLiteStore implements post storage on an embedded SQLite database.
// Timestamps come from the store clock and are kept as unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database at path. Use ":memory:" for a private
// in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite-backed post store
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		now: time.Now,
	}
}

// CreatePost inserts a post stamped with the store clock
func (s *SQLiteStore) CreatePost(ctx context.Context, p post.NewPost) (*post.Post, error) {
	created := post.Post{
		ID:        uuid.NewString(),
		Author:    p.Author,
		Text:      p.Text,
		Zone:      p.Zone,
		Timestamp: time.UnixMilli(s.now().UnixMilli()).UTC(),
		Votes:     post.InitialVotes,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, author, text, zone, created_at, votes) VALUES (?, ?, ?, ?, ?, ?)`,
		created.ID, created.Author, created.Text, string(created.Zone), created.Timestamp.UnixMilli(), created.Votes,
	)
	if err != nil {
		return nil, fmt.Errorf("error inserting post: %w", err)
	}

	return &created, nil
}

// GetPost retrieves a post by ID
func (s *SQLiteStore) GetPost(ctx context.Context, id string) (*post.Post, error) {
	if !validID(id) {
		return nil, post.ErrNotFound
	}

	query, args, err := sqliteQuery.get(id)
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	p, err := scanSQLitePost(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, fmt.Errorf("error getting post: %w", err)
	}

	return p, nil
}

// FindPosts returns posts matching the filter, newest first
func (s *SQLiteStore) FindPosts(ctx context.Context, filter post.Filter) ([]post.Post, error) {
	query, args, err := sqliteQuery.find(filter)
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := []post.Post{}
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

// AdjustVotes atomically adds delta to a post's votes
func (s *SQLiteStore) AdjustVotes(ctx context.Context, id string, delta int) (*post.Post, error) {
	if !validID(id) {
		return nil, post.ErrNotFound
	}

	query, args, err := sqliteQuery.adjustVotes(id, delta)
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	p, err := scanSQLitePost(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, fmt.Errorf("error updating votes: %w", err)
	}

	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row rowScanner) (*post.Post, error) {
	var (
		p       post.Post
		zone    string
		created int64
	)
	if err := row.Scan(&p.ID, &p.Author, &p.Text, &zone, &created, &p.Votes); err != nil {
		return nil, err
	}
	p.Zone = post.Zone(zone)
	p.Timestamp = time.UnixMilli(created).UTC()
	return &p, nil
}
