// Package notifier delivers task reminder digests over NATS.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the subject prefix for reminder messages. The
// recipient's notify channel is appended to form the full subject.
const SubjectPrefix = "notifications"

// Reminder is the message delivered to a recipient's channel.
type Reminder struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// Publisher publishes reminder messages to NATS.
type Publisher struct {
	nc      *nats.Conn
	natsURL string
}

// NewPublisher creates a publisher for the given NATS URL.
func NewPublisher(natsURL string) *Publisher {
	return &Publisher{natsURL: natsURL}
}

// Connect establishes the NATS connection.
func (p *Publisher) Connect() error {
	nc, err := nats.Connect(p.natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p.nc = nc

	log.Printf("[notifier] Connected to NATS at %s", p.natsURL)
	return nil
}

// Publish sends a reminder to the recipient's channel.
func (p *Publisher) Publish(_ context.Context, channel string, r Reminder) error {
	if p.nc == nil {
		return fmt.Errorf("publisher not connected")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	subject := SubjectPrefix + "." + channel
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish reminder: %w", err)
	}
	return nil
}

// IsConnected returns true if the NATS connection is established.
func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		log.Println("[notifier] Connection closed")
	}
}
