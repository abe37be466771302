// internal/app/store/categorycache/categorycache.go
//
// Package categorycache keeps the product category list in Redis so that
// every session does not refetch it from the backend. It implements
// apiclient.CategoryCache. Redis failures are logged and treated as a miss.
package categorycache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dalemusser/loanadmin/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key is the Redis key holding the JSON-encoded category list.
const Key = "loanadmin:categories:v1"

// Store is a Redis-backed category cache.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// New returns a Store. ttl <= 0 defaults to five minutes.
func New(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{rdb: rdb, ttl: ttl, log: logger}
}

// Get returns the cached categories.
func (s *Store) Get(ctx context.Context) ([]models.Category, bool) {
	raw, err := s.rdb.Get(ctx, Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("category cache read failed", zap.Error(err))
		return nil, false
	}
	var cats []models.Category
	if err := json.Unmarshal(raw, &cats); err != nil {
		s.log.Warn("category cache holds bad data; dropping", zap.Error(err))
		s.rdb.Del(ctx, Key)
		return nil, false
	}
	return cats, true
}

// Put caches cats for the store's ttl.
func (s *Store) Put(ctx context.Context, cats []models.Category) {
	raw, err := json.Marshal(cats)
	if err != nil {
		s.log.Warn("category cache encode failed", zap.Error(err))
		return
	}
	if err := s.rdb.Set(ctx, Key, raw, s.ttl).Err(); err != nil {
		s.log.Warn("category cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached list.
func (s *Store) Invalidate(ctx context.Context) error {
	return s.rdb.Del(ctx, Key).Err()
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
