package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/sqlite"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/storetest"
)

func newCached(t *testing.T) (store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	base, err := sqlite.New(context.Background(), ":memory:", zerolog.Nop())
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return Wrap(base, rdb, time.Minute, zerolog.Nop()), mr
}

func TestCachedStore_Compliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newCached(t)
		return s
	})
}

func TestRelationships_WriteThrough(t *testing.T) {
	s, mr := newCached(t)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	_, err := s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: "u1", IntimacyLevel: 2, TrustLevel: 0.8, InteractionCount: 1})
	require.NoError(t, err)

	raw, err := mr.Get(keyPrefix + "u1")
	require.NoError(t, err)
	var cached model.RelationshipSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, int64(1), cached.InteractionCount)
	assert.Equal(t, 2.0, cached.IntimacyLevel)
	assert.True(t, mr.TTL(keyPrefix+"u1") > 0)
}

func TestRelationships_ReadThroughAndFallback(t *testing.T) {
	s, mr := newCached(t)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	// Seed the cache with a value the database does not have to prove reads hit Redis.
	b, _ := json.Marshal(model.RelationshipSnapshot{UserID: "u2", IntimacyLevel: 7, InteractionCount: 9})
	require.NoError(t, mr.Set(keyPrefix+"u2", string(b)))
	got, err := s.Relationships().Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.InteractionCount)

	// Garbage in the cache falls back to the database.
	require.NoError(t, mr.Set(keyPrefix+"u3", "not-json"))
	got, err = s.Relationships().Get(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.InteractionCount)

	// Redis down: still served from the database.
	mr.Close()
	got, err = s.Relationships().Get(ctx, "u4")
	require.NoError(t, err)
	assert.Equal(t, "u4", got.UserID)
}

func TestRelationships_StaleEvicts(t *testing.T) {
	s, mr := newCached(t)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	_, err := s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: "u5", InteractionCount: 5})
	require.NoError(t, err)
	_, err = s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: "u5", InteractionCount: 3})
	require.ErrorIs(t, err, model.ErrStaleUpdate)
	assert.False(t, mr.Exists(keyPrefix+"u5"))

	got, err := s.Relationships().Get(ctx, "u5")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.InteractionCount)
}
