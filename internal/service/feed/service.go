// internal/service/feed/service.go

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"peerhive/internal/domain/dashboard"
	"peerhive/internal/domain/identity"
	"peerhive/internal/domain/post"
	"peerhive/internal/metrics"
	"peerhive/internal/service/mood"
)

// PostStore defines the storage interface for posts
type PostStore interface {
	// CreatePost persists a new post, assigning ID, timestamp and initial votes
	CreatePost(ctx context.Context, p post.NewPost) (*post.Post, error)

	// GetPost retrieves a post by ID
	GetPost(ctx context.Context, id string) (*post.Post, error)

	// FindPosts returns posts matching the filter, newest first. A zero
	// limit returns every match.
	FindPosts(ctx context.Context, filter post.Filter) ([]post.Post, error)

	// AdjustVotes atomically adds delta to a post's vote count
	AdjustVotes(ctx context.Context, id string, delta int) (*post.Post, error)
}

// Publisher publishes feed events
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config contains configuration for the feed service
type Config struct {
	MaxPostLength    int
	PostRate         float64
	PostBurst        int
	EventsTopic      string
	DefaultListLimit int
	MaxListLimit     int
}

// Service implements the post.Service interface
type Service struct {
	store      PostStore
	classifier *mood.Classifier
	aggregator *mood.Aggregator
	bus        Publisher
	limiter    *RateLimiter
	config     Config
	log        *slog.Logger
	now        func() time.Time
}

var _ post.Service = (*Service)(nil)

// NewService creates a new feed service
func NewService(
	store PostStore,
	classifier *mood.Classifier,
	aggregator *mood.Aggregator,
	bus Publisher,
	config Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		aggregator: aggregator,
		bus:        bus,
		limiter:    NewRateLimiter(config.PostRate, config.PostBurst, 10*time.Minute),
		config:     config,
		log:        logger.With("component", "feed"),
		now:        time.Now,
	}
}

// Analyze classifies text without storing it
func (s *Service) Analyze(text string) (mood.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return mood.Analysis{}, post.ErrEmptyText
	}
	return s.classifier.Analyze(text), nil
}

// CreatePost classifies text and stores it as a new post authored by who
func (s *Service) CreatePost(ctx context.Context, who *identity.Identity, text string) (*post.Post, error) {
	if who == nil {
		return nil, post.ErrUnauthorized
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, post.ErrEmptyText
	}
	if utf8.RuneCountInString(text) > s.config.MaxPostLength {
		return nil, post.ErrTextTooLong
	}

	if !s.limiter.Allow(who.UID) {
		metrics.PostsRateLimited.Inc()
		return nil, post.ErrRateLimited
	}

	created, err := s.store.CreatePost(ctx, post.NewPost{
		Author: who.AuthorName(),
		Text:   text,
		Zone:   s.classifier.Classify(text),
	})
	if err != nil {
		return nil, fmt.Errorf("error saving post: %w", err)
	}

	metrics.IncPostCreated(string(created.Zone))
	s.log.Debug("post created", "id", created.ID, "zone", created.Zone)

	if err := s.publish(post.EventCreated, created); err != nil {
		s.log.Warn("error publishing post event", "event", post.EventCreated, "error", err)
	}

	return created, nil
}

// GetPost returns a post by ID
func (s *Service) GetPost(ctx context.Context, id string) (*post.Post, error) {
	return s.store.GetPost(ctx, id)
}

// ListPosts returns posts matching the filter, newest first
func (s *Service) ListPosts(ctx context.Context, filter post.Filter) ([]post.Post, error) {
	for _, z := range filter.Zones {
		if !z.Valid() {
			return nil, post.ErrUnknownZone
		}
	}

	if filter.Limit <= 0 {
		filter.Limit = s.config.DefaultListLimit
	}
	if filter.Limit > s.config.MaxListLimit {
		filter.Limit = s.config.MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	posts, err := s.store.FindPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// Vote moves a post's vote count by direction (+1 or -1)
func (s *Service) Vote(ctx context.Context, who *identity.Identity, postID string, direction int) (*post.Post, error) {
	if who == nil {
		return nil, post.ErrUnauthorized
	}
	if who.IsAnonymous {
		return nil, post.ErrVoteForbidden
	}
	if !post.ValidDirection(direction) {
		return nil, post.ErrInvalidVote
	}

	updated, err := s.store.AdjustVotes(ctx, postID, direction)
	if err != nil {
		return nil, err
	}

	metrics.IncVote(direction)

	if err := s.publish(post.EventVoted, updated); err != nil {
		s.log.Warn("error publishing post event", "event", post.EventVoted, "error", err)
	}

	return updated, nil
}

// Dashboard aggregates every stored post into the admin view model
func (s *Service) Dashboard(ctx context.Context) (dashboard.ViewModel, error) {
	start := time.Now()
	defer metrics.ObserveDashboard(start)

	posts, err := s.store.FindPosts(ctx, post.Filter{})
	if err != nil {
		return dashboard.ViewModel{}, fmt.Errorf("error loading posts: %w", err)
	}

	return s.aggregator.Aggregate(posts, s.now()), nil
}

// EventsTopic returns the subject prefix events are published under
func (s *Service) EventsTopic() string {
	return s.config.EventsTopic
}

func (s *Service) publish(eventType string, p *post.Post) error {
	data, err := json.Marshal(post.Event{Type: eventType, Post: p})
	if err != nil {
		return err
	}
	return s.bus.Publish(post.Subject(s.config.EventsTopic, eventType), data)
}
