package categorycache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute, nil), mr
}

func TestGetMissThenHit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, ok := s.Get(ctx)
	assert.False(t, ok)

	s.Put(ctx, []models.Category{{ID: 1, Name: "Phones"}, {ID: 2, Name: "Laptops"}})
	cats, ok := s.Get(ctx)
	require.True(t, ok)
	require.Len(t, cats, 2)
	assert.Equal(t, "Laptops", cats[1].Name)
}

func TestEntriesExpire(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	s.Put(ctx, []models.Category{{ID: 1}})
	mr.FastForward(2 * time.Minute)

	_, ok := s.Get(ctx)
	assert.False(t, ok)
}

func TestBadDataIsDropped(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, mr.Set(Key, "not json"))

	_, ok := s.Get(context.Background())
	assert.False(t, ok)
	assert.False(t, mr.Exists(Key))
}

func TestInvalidateAndPing(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	s.Put(ctx, []models.Category{{ID: 1}})

	require.NoError(t, s.Invalidate(ctx))
	assert.False(t, mr.Exists(Key))
	require.NoError(t, s.Ping(ctx))
}

func TestRedisDownIsAMiss(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, ok := s.Get(ctx)
	assert.False(t, ok)
	s.Put(ctx, []models.Category{{ID: 1}})
}
