// Package redis provides Redis-backed adapters for the jumpseat service.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jumpseat/jumpseat-api/internal/core"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

// DefaultPresenceChannel is the pub/sub channel used when none is configured.
const DefaultPresenceChannel = "jumpseat:presence"

// ErrSubscriptionClosed is returned by Subscribe when Redis closes the message channel.
var ErrSubscriptionClosed = errors.New("presence subscription closed")

// PresenceBus fans presence events out to every server instance over Redis pub/sub.
type PresenceBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

var _ core.PresenceFanout = (*PresenceBus)(nil)

// NewPresenceBus creates a bus publishing on channel (DefaultPresenceChannel when empty).
func NewPresenceBus(client redis.UniversalClient, channel string, logger *slog.Logger) *PresenceBus {
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = DefaultPresenceChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceBus{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "presence_bus", "channel", channel),
	}
}

// Channel returns the pub/sub channel name.
func (b *PresenceBus) Channel() string { return b.channel }

func (b *PresenceBus) Publish(ctx context.Context, evt model.PresenceEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal presence event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe delivers every event published on the channel to handler, in order, until
// ctx is cancelled or the subscription fails. Undecodable payloads are logged and skipped.
func (b *PresenceBus) Subscribe(ctx context.Context, handler func(model.PresenceEvent)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Debug("close presence subscription", "error", err)
		}
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.logger.InfoContext(ctx, "presence subscription established")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ErrSubscriptionClosed
			}
			var evt model.PresenceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.WarnContext(ctx, "dropping malformed presence event", "error", err)
				continue
			}
			handler(evt)
		}
	}
}
