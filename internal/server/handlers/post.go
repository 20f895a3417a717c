// internal/server/handlers/post.go

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"peerhive/internal/domain/identity"
	"peerhive/internal/domain/post"
	"peerhive/internal/service/mood"
)

// FeedService is the feed surface the HTTP layer needs
type FeedService interface {
	post.Service

	// Analyze classifies text without storing it
	Analyze(text string) (mood.Analysis, error)
}

// PostHandler handles feed-related HTTP requests
type PostHandler struct {
	feed FeedService
	log  *slog.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(feed FeedService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		feed: feed,
		log:  logger.With("component", "post_handler"),
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type voteRequest struct {
	Direction int `json:"direction"`
}

// ListPosts returns the feed, newest first
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter post.Filter

	// Parse comma-separated zones
	if zonesStr := q.Get("zone"); zonesStr != "" {
		for _, s := range strings.Split(zonesStr, ",") {
			z, err := post.ParseZone(strings.TrimSpace(s))
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "unknown zone "+strconv.Quote(s))
				return
			}
			filter.Zones = append(filter.Zones, z)
		}
	}

	filter.Author = q.Get("author")

	// Parse pagination
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	posts, err := h.feed.ListPosts(r.Context(), filter)
	if err != nil {
		respondWithDomainError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, posts)
}

// CreatePost publishes a new post as the calling identity
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.feed.CreatePost(r.Context(), identity.FromContext(r.Context()), req.Text)
	if err != nil {
		respondWithDomainError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

// GetPost returns a specific post by ID
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.feed.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithDomainError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// Vote applies a single up or down vote to a post
func (h *PostHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.feed.Vote(r.Context(), identity.FromContext(r.Context()), chi.URLParam(r, "id"), req.Direction)
	if err != nil {
		respondWithDomainError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// Classify previews the zone a text would be assigned
func (h *PostHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	analysis, err := h.feed.Analyze(req.Text)
	if err != nil {
		respondWithDomainError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, analysis)
}
