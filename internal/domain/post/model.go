// internal/domain/post/model.go

package post

import (
	"errors"
	"time"
)

// Zone is the mood classification assigned to a post
type Zone string

const (
	ZoneCalm        Zone = "Calm"
	ZoneStressed    Zone = "Stressed"
	ZoneOverwhelmed Zone = "Overwhelmed"
)

// Zones lists every zone in tie-break order. The first zone holding the
// maximum score wins a classification.
var Zones = []Zone{ZoneCalm, ZoneStressed, ZoneOverwhelmed}

// Valid reports whether z is one of the enumerated zones
func (z Zone) Valid() bool {
	switch z {
	case ZoneCalm, ZoneStressed, ZoneOverwhelmed:
		return true
	}
	return false
}

// AtRisk reports whether a post in this zone counts as at-risk.
// Any zone other than Calm is at-risk, including unknown values.
func (z Zone) AtRisk() bool {
	return z != ZoneCalm
}

// ParseZone converts a string into a Zone
func ParseZone(s string) (Zone, error) {
	z := Zone(s)
	if !z.Valid() {
		return "", ErrUnknownZone
	}
	return z, nil
}

// Post is a single feed entry
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Zone      Zone      `json:"zone"`
	Timestamp time.Time `json:"timestamp"`
	Votes     int       `json:"votes"`
}

// HasTimestamp reports whether the store assigned a timestamp
func (p Post) HasTimestamp() bool {
	return !p.Timestamp.IsZero()
}

// NewPost carries the fields a caller supplies on creation. The store assigns
// ID, Timestamp and the initial vote count.
type NewPost struct {
	Author string
	Text   string
	Zone   Zone
}

// InitialVotes is the vote count of a freshly created post
const InitialVotes = 1

// Vote directions
const (
	Upvote   = 1
	Downvote = -1
)

// ValidDirection reports whether d is a single up or down vote
func ValidDirection(d int) bool {
	return d == Upvote || d == Downvote
}

// Filter defines criteria for listing posts
type Filter struct {
	Zones  []Zone
	Author string
	Since  time.Time
	Limit  int
	Offset int
}

// Common errors
var (
	ErrNotFound      = errors.New("post not found")
	ErrEmptyText     = errors.New("post text is empty")
	ErrTextTooLong   = errors.New("post text is too long")
	ErrUnknownZone   = errors.New("unknown zone")
	ErrInvalidVote   = errors.New("vote direction must be 1 or -1")
	ErrVoteForbidden = errors.New("anonymous users cannot vote")
	ErrRateLimited   = errors.New("posting too fast")
	ErrUnauthorized  = errors.New("identity required")
)
