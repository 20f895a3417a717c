// internal/domain/post/event.go

package post

import (
	"encoding/json"
	"fmt"
)

// Event types carried on the feed stream
const (
	EventCreated  = "created"
	EventVoted    = "voted"
	EventSnapshot = "snapshot"
)

// Event is a change to the feed, published on "<topic>.<type>"
type Event struct {
	Type  string `json:"type"`
	Post  *Post  `json:"post,omitempty"`
	Posts []Post `json:"posts,omitempty"`
}

// Subject returns the bus subject for an event type under topic
func Subject(topic, eventType string) string {
	return fmt.Sprintf("%s.%s", topic, eventType)
}

// WildcardSubject matches every event under topic
func WildcardSubject(topic string) string {
	return topic + ".>"
}

// DecodeEvent parses a published event
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
