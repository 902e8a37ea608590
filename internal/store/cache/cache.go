// Package cache adds a Redis read-through layer for relationship snapshots.
// The database stays the source of truth; Redis failures only cost a cache miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

const keyPrefix = "companion:relationship:"

// Wrap returns s with Relationships() served through rdb.
func Wrap(s store.Store, rdb redis.UniversalClient, ttl time.Duration, log zerolog.Logger) store.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &cachedStore{
		Store: s,
		rels:  &relationships{inner: s.Relationships(), rdb: rdb, ttl: ttl, log: log},
		rdb:   rdb,
	}
}

type cachedStore struct {
	store.Store
	rels *relationships
	rdb  redis.UniversalClient
}

func (s *cachedStore) Relationships() store.Relationships { return s.rels }

// Close closes the Redis client and then the wrapped store.
func (s *cachedStore) Close() error {
	rerr := s.rdb.Close()
	if err := s.Store.Close(); err != nil {
		return err
	}
	return rerr
}

type relationships struct {
	inner store.Relationships
	rdb   redis.UniversalClient
	ttl   time.Duration
	log   zerolog.Logger
}

func key(userID string) string { return keyPrefix + userID }

func (r *relationships) Get(ctx context.Context, userID string) (*model.RelationshipSnapshot, error) {
	raw, err := r.rdb.Get(ctx, key(userID)).Bytes()
	switch {
	case err == nil:
		var s model.RelationshipSnapshot
		if jerr := json.Unmarshal(raw, &s); jerr == nil {
			return &s, nil
		}
		r.log.Warn().Str("user_id", userID).Msg("discarding undecodable cached relationship")
	case !errors.Is(err, redis.Nil):
		r.log.Warn().Err(err).Str("user_id", userID).Msg("relationship cache read failed")
	}

	s, err := r.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.put(ctx, s)
	return s, nil
}

func (r *relationships) Upsert(ctx context.Context, s model.RelationshipSnapshot) (*model.RelationshipSnapshot, error) {
	out, err := r.inner.Upsert(ctx, s)
	if err != nil {
		// Another writer won; whatever is cached may predate it.
		if model.IsStaleUpdateError(err) {
			r.evict(ctx, s.UserID)
		}
		return nil, err
	}
	r.put(ctx, out)
	return out, nil
}

func (r *relationships) CompareAndSwap(ctx context.Context, s model.RelationshipSnapshot, expected int64) (*model.RelationshipSnapshot, error) {
	out, err := r.inner.CompareAndSwap(ctx, s, expected)
	if err != nil {
		// The cached copy is what the caller compared against; drop it so a retry reads the database.
		if model.IsStaleUpdateError(err) {
			r.evict(ctx, s.UserID)
		}
		return nil, err
	}
	r.put(ctx, out)
	return out, nil
}

func (r *relationships) put(ctx context.Context, s *model.RelationshipSnapshot) {
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key(s.UserID), b, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", s.UserID).Msg("relationship cache write failed")
	}
}

func (r *relationships) evict(ctx context.Context, userID string) {
	if err := r.rdb.Del(ctx, key(userID)).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("relationship cache evict failed")
	}
}
