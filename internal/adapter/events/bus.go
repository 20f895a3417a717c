// internal/adapter/events/bus.go

package events

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig holds the NATS connection settings
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// NATSBus publishes and subscribes through a NATS connection
type NATSBus struct {
	conn *nats.Conn
	log  *slog.Logger
}

// ConnectNATS dials the NATS server described by cfg
func ConnectNATS(cfg NATSConfig, logger *slog.Logger) (*NATSBus, error) {
	log := logger.With("component", "nats")

	options := []nats.Option{
		nats.Name("peerhive"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return &NATSBus{conn: nc, log: log}, nil
}

// Publish sends data on subject
func (b *NATSBus) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// Subscribe delivers every message on subject to fn. Subject may use NATS wildcards.
func (b *NATSBus) Subscribe(subject string, fn func(data []byte)) (unsubscribe func() error, err error) {
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub.Unsubscribe, nil
}

// Close drains pending messages and closes the connection
func (b *NATSBus) Close() error {
	return b.conn.Drain()
}

// LocalBus is an in-process bus with NATS-style subject matching.
// Handlers run synchronously on the publishing goroutine.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]localSub
}

type localSub struct {
	pattern []string
	fn      func([]byte)
}

// NewLocalBus creates an empty in-process bus
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]localSub)}
}

// Publish delivers data to every matching subscriber
func (b *LocalBus) Publish(subject string, data []byte) error {
	tokens := strings.Split(subject, ".")

	b.mu.RLock()
	var targets []func([]byte)
	for _, s := range b.subs {
		if subjectMatches(s.pattern, tokens) {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(data)
	}
	return nil
}

// Subscribe registers fn for subject
func (b *LocalBus) Subscribe(subject string, fn func(data []byte)) (unsubscribe func() error, err error) {
	if subject == "" {
		return nil, fmt.Errorf("empty subject")
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = localSub{pattern: strings.Split(subject, "."), fn: fn}
	b.mu.Unlock()

	return func() error {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		return nil
	}, nil
}

// subjectMatches implements "*" (one token) and ">" (one or more trailing tokens)
func subjectMatches(pattern, subject []string) bool {
	for i, p := range pattern {
		if p == ">" {
			return len(subject) > i
		}
		if i >= len(subject) {
			return false
		}
		if p != "*" && p != subject[i] {
			return false
		}
	}
	return len(pattern) == len(subject)
}
