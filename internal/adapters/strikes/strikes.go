// Package strikes counts intervention strikes in Redis and publishes
// attention updates on a Redis channel.
package strikes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/attend/internal/adapters/notify"
	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
	"github.com/okian/attend/pkg/metrics"
)

// DefaultKey holds the strike counter.
const DefaultKey = "attend:strikes"

// Client is the subset of the Redis client used by the Store.
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// Message is published on the updates channel.
type Message struct {
	Kind         string         `json:"kind"`
	State        string         `json:"state"`
	Strikes      int64          `json:"strikes,omitempty"`
	RecentStates []string       `json:"recent_states,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

// Store is a notify.Notifier backed by Redis. Interventions increment the
// strike counter; every notification is published when a channel is set.
type Store struct {
	client  Client
	key     string
	channel string
	logger  logger.Logger
}

var _ notify.Notifier = (*Store)(nil)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithKey sets the counter key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithChannel sets the pub/sub channel for updates. Empty disables publishing.
func WithChannel(channel string) Option {
	return func(s *Store) {
		s.channel = channel
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps an existing client.
func New(client Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    DefaultKey,
		logger: logger.Get().Named("strikes"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to Redis at addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: 3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

// Notify publishes the new state.
func (s *Store) Notify(ctx context.Context, state model.State, ev model.Event) error { //nolint:gocritic // hugeParam: events are value snapshots
	return s.publish(ctx, Message{
		Kind:     notify.KindStateChange,
		State:    state.String(),
		Metadata: ev.Metadata(),
	})
}

// Intervene records a strike and publishes it with the recent states.
func (s *Store) Intervene(ctx context.Context, recent []model.State, ev model.Event) error { //nolint:gocritic // hugeParam: events are value snapshots
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return fmt.Errorf("%w: increment %s: %w", notify.ErrDelivery, s.key, err)
	}
	metrics.UpdateStrikes(n)
	s.logger.Info(ctx, "strike recorded", logger.Int("strikes", int(n)), logger.String("event_id", ev.ID))

	names := make([]string, len(recent))
	for i, st := range recent {
		names[i] = st.String()
	}
	return s.publish(ctx, Message{
		Kind:         notify.KindIntervention,
		State:        ev.State.String(),
		Strikes:      n,
		RecentStates: names,
		Metadata:     ev.Metadata(),
	})
}

// Strikes returns the current strike count. A missing key counts as zero.
func (s *Store) Strikes(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, s.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.key, err)
	}
	return n, nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) publish(ctx context.Context, m Message) error { //nolint:gocritic // hugeParam: message is built per call
	if s.channel == "" {
		return nil
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %w", notify.ErrDelivery, err)
	}
	if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
		return fmt.Errorf("%w: publish on %s: %w", notify.ErrDelivery, s.channel, err)
	}
	return nil
}
