package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// farFuture is the index score of sessions without TTL (2100-01-01).
const farFuture = 4102444800

// Store implements ports.SessionStore using Redis.
// Optimistic saves run inside WATCH/MULTI transactions on the session key.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "switchboard:session:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client (shared with the Locker).
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(conversationID string) string {
	return s.prefix + conversationID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) score() float64 {
	if s.ttl == 0 {
		return farFuture
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Create persists a new session unless a non-terminal one already exists.
func (s *Store) Create(ctx context.Context, session *domain.Session) error {
	key := s.key(session.ConversationID)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *backend.Tx) error {
		current, err := s.read(ctx, tx.Get, key)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		if current != nil && !current.Status.Terminal() {
			return domain.ErrAlreadyRunning
		}
		return s.write(ctx, tx, session.ConversationID, data)
	}, key)
	if errors.Is(err, backend.TxFailedErr) {
		return domain.ErrAlreadyRunning
	}
	return err
}

// Load retrieves the session from Redis.
func (s *Store) Load(ctx context.Context, conversationID string) (*domain.Session, error) {
	return s.read(ctx, s.client.Get, s.key(conversationID))
}

// Save stores the session if its step counter directly follows the stored one.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	key := s.key(session.ConversationID)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *backend.Tx) error {
		current, err := s.read(ctx, tx.Get, key)
		if err != nil {
			return err
		}
		if session.Step == 0 || current.Step != session.Step-1 {
			return domain.ErrStaleWrite
		}
		return s.write(ctx, tx, session.ConversationID, data)
	}, key)
	if errors.Is(err, backend.TxFailedErr) {
		// Another writer touched the key between WATCH and EXEC.
		return domain.ErrStaleWrite
	}
	return err
}

func (s *Store) read(ctx context.Context, get func(context.Context, string) *backend.StringCmd, key string) (*domain.Session, error) {
	val, err := get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Store) write(ctx context.Context, tx *backend.Tx, conversationID string, data []byte) error {
	_, err := tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(conversationID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{
			Score:  s.score(),
			Member: conversationID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(conversationID))
	pipe.ZRem(ctx, s.indexKey(), conversationID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the conversations with a live session, lazily pruning
// expired entries from the index.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
