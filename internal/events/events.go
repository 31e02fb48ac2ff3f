// Package events publishes card lifecycle notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects, relative to the configured prefix
const (
	SubjectCardCreated  = "cards.created"
	SubjectCardUpdated  = "cards.updated"
	SubjectCardDeleted  = "cards.deleted"
	SubjectCardImported = "cards.imported"
)

// CardEvent is published when a single card changes
type CardEvent struct {
	CardID string    `json:"cardId"`
	Slug   string    `json:"slug"`
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

// ImportEvent is published once per import that created cards
type ImportEvent struct {
	JobID        string    `json:"jobId"`
	UserID       string    `json:"userId"`
	TotalRows    int       `json:"totalRows"`
	SuccessRows  int       `json:"successRows"`
	ErrorRows    int       `json:"errorRows"`
	CreatedCards []string  `json:"createdCards"`
	At           time.Time `json:"at"`
}

// Publisher delivers events; implementations must be safe for concurrent use
type Publisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
	Close()
}

// Config holds NATS connection settings
type Config struct {
	URL           string
	Token         string
	SubjectPrefix string
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
	log    zerolog.Logger
}

// Connect opens a NATS connection. An empty URL yields a publisher that drops events.
func Connect(cfg Config, log zerolog.Logger) (Publisher, error) {
	log = log.With().Str("component", "events").Logger()

	if cfg.URL == "" {
		log.Info().Msg("NATS_URL not set, events disabled")
		return Nop{}, nil
	}

	opts := []nats.Option{
		nats.Name("digital-card-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", conn.ConnectedUrl()).Msg("NATS connection established")
	return &natsPublisher{conn: conn, prefix: cfg.SubjectPrefix, log: log}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	full := Subject(p.prefix, subject)
	if err := p.conn.Publish(full, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", full, err)
	}

	p.log.Debug().Str("subject", full).Int("bytes", len(data)).Msg("Event published")
	return nil
}

// Close flushes pending messages and closes the connection
func (p *natsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn().Err(err).Msg("NATS drain failed")
		p.conn.Close()
	}
}

// Subject joins a prefix and a relative subject with a dot
func Subject(prefix, subject string) string {
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
func (Nop) Close()                                             {}
