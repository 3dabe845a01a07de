// Package idempotency keeps a short-lived map from Idempotency-Key to the sale
// it produced. The sales table's unique external_ref stays the source of
// truth; this is only a fast path in front of it.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keySale = "idem:sale:%s"
	TTL     = 24 * time.Hour
)

type Store interface {
	// Lookup returns the sale recorded for key, if any. Backend failures are
	// treated as a miss.
	Lookup(ctx context.Context, key string) (uuid.UUID, bool)
	// Remember records key -> saleID. Failures are logged and dropped.
	Remember(ctx context.Context, key string, saleID uuid.UUID)
}

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb, ttl: TTL}
}

// NewRedisClient opens a client with short timeouts; Redis being slow must
// not hold up a checkout.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

func (s *redisStore) Lookup(ctx context.Context, key string) (uuid.UUID, bool) {
	val, err := s.rdb.Get(ctx, fmt.Sprintf(keySale, key)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false
	}
	if err != nil {
		zap.S().Warnw("idempotency lookup failed", "key", key, "error", err)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *redisStore) Remember(ctx context.Context, key string, saleID uuid.UUID) {
	if err := s.rdb.Set(ctx, fmt.Sprintf(keySale, key), saleID.String(), s.ttl).Err(); err != nil {
		zap.S().Warnw("idempotency remember failed", "key", key, "error", err)
	}
}

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Lookup(context.Context, string) (uuid.UUID, bool) { return uuid.Nil, false }
func (Noop) Remember(context.Context, string, uuid.UUID)      {}

// Memory is an in-process Store for tests and single-node setups.
type Memory struct {
	mu    sync.Mutex
	sales map[string]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{sales: make(map[string]uuid.UUID)}
}

func (m *Memory) Lookup(_ context.Context, key string) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sales[key]
	return id, ok
}

func (m *Memory) Remember(_ context.Context, key string, saleID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[key] = saleID
}
