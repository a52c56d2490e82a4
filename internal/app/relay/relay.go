/*
Package relay carries committed domain events from write-path processes to
the realtime process over Redis pub/sub.

Publishers encode events as {"type", "payload"} envelopes on a single
channel. The Subscriber decodes each envelope and hands it to the local
broadcaster, which fans it out to the connected clients.
*/
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"clawchat/internal/app/realtime"
	"clawchat/internal/pkg/logx"
)

// ErrFailedToReceiveMessage is returned when the subscription breaks.
var ErrFailedToReceiveMessage = errors.New("failed to receive message")

// NewClient returns a Redis client for addr.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Dispatcher receives decoded events. *realtime.Broadcaster implements it.
type Dispatcher interface {
	Publish(ctx context.Context, evt realtime.DomainEvent) error
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher sends events to the relay channel.
type Publisher struct {
	client  redisPublisher
	channel string
}

// NewPublisher returns a Publisher writing to channel.
func NewPublisher(client redisPublisher, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish encodes evt and publishes it. It returns the number of subscribers
// that received the message.
func (p *Publisher) Publish(ctx context.Context, evt realtime.DomainEvent) (int64, error) {
	payload, err := realtime.EncodeEvent(evt)
	if err != nil {
		return 0, fmt.Errorf("encode event: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("client.Publish: %w", err)
	}
	return receivers, nil
}

// Subscriber feeds relay messages into a Dispatcher.
type Subscriber struct {
	client     *redis.Client
	channel    string
	dispatcher Dispatcher
	logger     zerolog.Logger

	// backoff paces receive retries while Redis is unreachable.
	backoff func() retry.Backoff
}

const (
	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// NewSubscriber returns a Subscriber for channel.
func NewSubscriber(client *redis.Client, channel string, dispatcher Dispatcher) *Subscriber {
	return &Subscriber{
		client:     client,
		channel:    channel,
		dispatcher: dispatcher,
		logger:     logx.Component("relay"),
		backoff: func() retry.Backoff {
			return retry.WithCappedDuration(retryMaxDelay, retry.NewExponential(retryBaseDelay))
		},
	}
}

// Run receives messages until ctx is cancelled and always returns nil then.
// Receive failures never end the loop: the subscriber waits with capped
// exponential backoff and resubscribes, so an unavailable Redis only pauses
// relayed events. A message that cannot be decoded or dispatched is logged
// and skipped.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	s.logger.Info().Str("channel", s.channel).Msg("Relay subscriber started.")

	backoff := s.backoff()
	failures := 0

	for {
		msg, err := pubsub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Msg("Relay subscriber stopped.")
				return nil
			}

			failures++
			delay, _ := backoff.Next()
			s.logger.Warn().
				Err(fmt.Errorf("%w: %w", ErrFailedToReceiveMessage, err)).
				Int("attempt", failures).
				Dur("retry_in", delay).
				Msg("Relay receive failed, retrying.")

			select {
			case <-ctx.Done():
				s.logger.Info().Msg("Relay subscriber stopped.")
				return nil
			case <-time.After(delay):
			}
			continue
		}

		if failures > 0 {
			s.logger.Info().Int("attempts", failures).Msg("Relay subscription recovered.")
			failures = 0
			backoff = s.backoff()
		}

		switch m := msg.(type) {
		case *redis.Message:
			if err := s.handle(ctx, m.Payload); err != nil {
				s.logger.Warn().Err(err).Str("channel", m.Channel).Msg("Dropped relay message.")
			}
		case *redis.Subscription:
			s.logger.Debug().Str("kind", m.Kind).Str("channel", m.Channel).Msg("Relay subscription update.")
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, payload string) error {
	evt, err := realtime.DecodeEvent([]byte(payload))
	if err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	if err := s.dispatcher.Publish(ctx, evt); err != nil {
		return fmt.Errorf("dispatch %s: %w", evt.Type(), err)
	}
	return nil
}
