// Package notify fans moderation decisions out over Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/moderation"
)

const (
	// Channel carries every moderation decision.
	Channel        = "moderation:decisions"
	publishTimeout = 5 * time.Second
)

// envelope is the message published to Redis.
type envelope struct {
	Decision moderation.Decision `json:"decision"`
	At       int64               `json:"at"`
}

func encode(d moderation.Decision, now time.Time) ([]byte, error) {
	return json.Marshal(envelope{Decision: d, At: now.Unix()})
}

func decode(payload string) (moderation.Decision, error) {
	var e envelope
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return moderation.Decision{}, err
	}
	return e.Decision, nil
}

// Publisher implements moderation.Notifier on a Redis channel.
type Publisher struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewPublisher creates a decision publisher.
func NewPublisher(client redis.UniversalClient, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, logger: logger}
}

// Publish sends d to Channel.
func (p *Publisher) Publish(ctx context.Context, d moderation.Decision) error {
	body, err := encode(d, time.Now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, Channel, body).Err(); err != nil {
		return fmt.Errorf("publish decision: %w", err)
	}
	p.logger.Debug("decision published",
		zap.String("listing_id", d.ListingID.String()), zap.String("action", string(d.Action)))
	return nil
}

// Subscriber delivers decisions published on Channel to a handler.
type Subscriber struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewSubscriber creates a decision subscriber.
func NewSubscriber(client redis.UniversalClient, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{client: client, logger: logger}
}

// Run subscribes and calls handle for each decision until ctx is done. Malformed messages are skipped.
func (s *Subscriber) Run(ctx context.Context, handle func(context.Context, moderation.Decision)) error {
	pubsub := s.client.Subscribe(ctx, Channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info("listening for moderation decisions", zap.String("channel", Channel))
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(ctx, msg.Payload, handle)
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, payload string, handle func(context.Context, moderation.Decision)) {
	d, err := decode(payload)
	if err != nil {
		s.logger.Warn("invalid decision payload", zap.String("raw", payload), zap.Error(err))
		return
	}
	handle(ctx, d)
}
