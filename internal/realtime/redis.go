package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// RedisRelay publishes events through Redis pub/sub so displays connected
// to any instance receive them. Every instance runs Run to forward relayed
// events into its local hub.
type RedisRelay struct {
	client redis.UniversalClient
	prefix string
	local  *Hub
	logger *slog.Logger

	// subscribed is set while Run holds a live pattern subscription.
	subscribed atomic.Bool
	minBackoff time.Duration
	maxBackoff time.Duration
}

type relayEnvelope struct {
	UserID string `json:"user_id"`
	Event  Event  `json:"event"`
}

func NewRedisRelay(redisURL, prefix string, local *Hub, logger *slog.Logger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.MaxRetries = 2

	return newRedisRelay(redis.NewClient(opts), prefix, local, logger), nil
}

func newRedisRelay(client redis.UniversalClient, prefix string, local *Hub, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "adpanel:media"
	}
	return &RedisRelay{
		client:     client,
		prefix:     prefix,
		local:      local,
		logger:     logger,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

func (r *RedisRelay) channel(userID string) string {
	return r.prefix + ":" + userID
}

// Publish sends the event through Redis. While this instance has no live
// subscription, or if Redis is unreachable, the event is delivered to
// displays on this instance directly.
func (r *RedisRelay) Publish(ctx context.Context, userID string, event Event) error {
	payload, err := json.Marshal(relayEnvelope{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = r.client.Publish(ctx, r.channel(userID), payload).Err()
	if err != nil {
		_ = r.local.Publish(ctx, userID, event)
		return fmt.Errorf("failed to relay event: %w", err)
	}
	if !r.subscribed.Load() {
		_ = r.local.Publish(ctx, userID, event)
	}

	return nil
}

// Run forwards relayed events to the local hub until ctx is cancelled.
// A failed subscription is retried with exponential backoff.
func (r *RedisRelay) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.minBackoff
	b.MaxInterval = r.maxBackoff
	b.MaxElapsedTime = 0

	for {
		err := r.subscribe(ctx, b.Reset)
		if ctx.Err() != nil {
			return nil
		}

		wait := b.NextBackOff()
		r.logger.Warn("redis relay subscription lost, retrying", "error", err, "retry_in", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// subscribe holds one pattern subscription until it fails or ctx is done.
// onSubscribed runs once the subscription is confirmed.
func (r *RedisRelay) subscribe(ctx context.Context, onSubscribed func()) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+":*")
	defer func() {
		r.subscribed.Store(false)
		_ = pubsub.Close()
	}()

	_, err := pubsub.Receive(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	r.subscribed.Store(true)
	onSubscribed()
	r.logger.Info("redis relay subscribed", "pattern", r.prefix+":*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			r.dispatch(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) dispatch(ctx context.Context, payload string) {
	var env relayEnvelope
	err := json.Unmarshal([]byte(payload), &env)
	if err != nil || env.UserID == "" {
		r.logger.Warn("dropping malformed relay message", "error", err)
		return
	}
	_ = r.local.Publish(ctx, env.UserID, env.Event)
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
