// Package publish fans GPU inventory out to NATS subscribers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/computerscienceiscool/nodekit/pkg/config"
	"github.com/computerscienceiscool/nodekit/pkg/hardware"
)

// Inventory is the message published after a successful registration
type Inventory struct {
	Hostname     string                  `json:"hostname"`
	GPUs         []hardware.DeviceRecord `json:"gpus"`
	RegisteredAt time.Time               `json:"registered_at"`
}

// Publisher sends inventory messages on one subject
type Publisher struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

// Connect dials the configured NATS server
func Connect(cfg config.NATSConfig) (*Publisher, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultNATSTimeout
	}
	subject := cfg.Subject
	if subject == "" {
		subject = config.DefaultNATSSubject
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("nodekit-hwreport"),
		nats.Timeout(timeout),
		nats.MaxReconnects(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	return &Publisher{nc: nc, subject: subject, timeout: timeout}, nil
}

// Subject returns the subject messages are published on
func (p *Publisher) Subject() string {
	return p.subject
}

// PublishInventory publishes inv and waits for the server to acknowledge the flush
func (p *Publisher) PublishInventory(ctx context.Context, inv Inventory) error {
	if inv.GPUs == nil {
		inv.GPUs = []hardware.DeviceRecord{}
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish inventory to %s: %w", p.subject, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush inventory to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
