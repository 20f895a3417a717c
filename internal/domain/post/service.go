// internal/domain/post/service.go

package post

import (
	"context"

	"peerhive/internal/domain/dashboard"
	"peerhive/internal/domain/identity"
)

// Classifier maps post text to a zone
type Classifier interface {
	// Classify returns the zone for text. It never fails.
	Classify(text string) Zone
}

// Service defines the feed operations exposed to transports
type Service interface {
	// CreatePost classifies text and stores it as a new post authored by who
	CreatePost(ctx context.Context, who *identity.Identity, text string) (*Post, error)

	// GetPost returns a post by ID
	GetPost(ctx context.Context, id string) (*Post, error)

	// ListPosts returns posts matching the filter, newest first
	ListPosts(ctx context.Context, filter Filter) ([]Post, error)

	// Vote moves a post's vote count by direction (+1 or -1)
	Vote(ctx context.Context, who *identity.Identity, postID string, direction int) (*Post, error)

	// Dashboard aggregates the current snapshot of posts
	Dashboard(ctx context.Context) (dashboard.ViewModel, error)
}
