// Package redis provides a Redis-backed blackboard checkpoint store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "canopy:"

// Store implements ports.BlackboardStore on Redis.
//
// A checkpoint is a JSON string at <prefix>blackboard:<id>. The sorted set
// <prefix>agents holds every ID scored by its expiry in unix seconds
// (+inf without a TTL); List trims entries that have expired.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL expires checkpoints ttl after their last save. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithClock sets the time source used to score the agent index.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New dials Redis at address.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client. Close closes it.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) blackboardKey(agentID string) string { return s.prefix + "blackboard:" + agentID }
func (s *Store) agentsKey() string                   { return s.prefix + "agents" }

func (s *Store) expiry() float64 {
	if s.ttl <= 0 {
		return math.Inf(1)
	}
	return float64(s.now().Add(s.ttl).Unix())
}

func (s *Store) Save(ctx context.Context, agentID string, bb domain.Blackboard) error {
	data, err := json.Marshal(bb)
	if err != nil {
		return fmt.Errorf("encode blackboard %s: %w", agentID, err)
	}
	_, err = s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Set(ctx, s.blackboardKey(agentID), data, s.ttl)
		tx.ZAdd(ctx, s.agentsKey(), backend.Z{Score: s.expiry(), Member: agentID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", agentID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, agentID string) (domain.Blackboard, error) {
	data, err := s.client.Get(ctx, s.blackboardKey(agentID)).Bytes()
	switch {
	case errors.Is(err, backend.Nil):
		return domain.Blackboard{}, domain.ErrBlackboardNotFound
	case err != nil:
		return domain.Blackboard{}, fmt.Errorf("redis load %s: %w", agentID, err)
	}

	var bb domain.Blackboard
	if err := json.Unmarshal(data, &bb); err != nil {
		return domain.Blackboard{}, fmt.Errorf("decode blackboard %s: %w", agentID, err)
	}
	return bb, nil
}

func (s *Store) Delete(ctx context.Context, agentID string) error {
	_, err := s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Del(ctx, s.blackboardKey(agentID))
		tx.ZRem(ctx, s.agentsKey(), agentID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", agentID, err)
	}
	return nil
}

// List returns the IDs of live checkpoints in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.agentsKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("redis trim index: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.agentsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
