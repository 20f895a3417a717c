// internal/adapter/storage/post_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"peerhive/internal/domain/post"
)

// PostStore implements post storage on Postgres
type PostStore struct {
	db *pgxpool.Pool
}

// NewPostStore creates a new post store
func NewPostStore(db *pgxpool.Pool) *PostStore {
	return &PostStore{
		db: db,
	}
}

// CreatePost inserts a post. The database assigns the timestamp and initial votes.
func (s *PostStore) CreatePost(ctx context.Context, p post.NewPost) (*post.Post, error) {
	query := `
		INSERT INTO posts (id, author, text, zone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, votes
	`

	created := post.Post{
		ID:     uuid.NewString(),
		Author: p.Author,
		Text:   p.Text,
		Zone:   p.Zone,
	}

	err := s.db.QueryRow(ctx, query, created.ID, created.Author, created.Text, string(created.Zone)).
		Scan(&created.Timestamp, &created.Votes)
	if err != nil {
		return nil, fmt.Errorf("error inserting post: %w", err)
	}

	return &created, nil
}

// GetPost retrieves a post by ID
func (s *PostStore) GetPost(ctx context.Context, id string) (*post.Post, error) {
	if !validID(id) {
		return nil, post.ErrNotFound
	}

	query, args, err := postgresQuery.get(id)
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	p, err := scanPost(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, fmt.Errorf("error getting post: %w", err)
	}

	return p, nil
}

// FindPosts returns posts matching the filter, newest first
func (s *PostStore) FindPosts(ctx context.Context, filter post.Filter) ([]post.Post, error) {
	query, args, err := postgresQuery.find(filter)
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := []post.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
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
func (s *PostStore) AdjustVotes(ctx context.Context, id string, delta int) (*post.Post, error) {
	if !validID(id) {
		return nil, post.ErrNotFound
	}

	query, args, err := postgresQuery.adjustVotes(id, delta)
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	p, err := scanPost(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, post.ErrNotFound
		}
		return nil, fmt.Errorf("error updating votes: %w", err)
	}

	return p, nil
}

func scanPost(row pgx.Row) (*post.Post, error) {
	var (
		p    post.Post
		zone string
	)
	if err := row.Scan(&p.ID, &p.Author, &p.Text, &zone, &p.Timestamp, &p.Votes); err != nil {
		return nil, err
	}
	p.Zone = post.Zone(zone)
	return &p, nil
}
