package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/storetest"
)

func makeSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "companion.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	return s
}

func TestSQLiteStore_Compliance(t *testing.T) {
	storetest.Run(t, makeSQLiteStore)
}

func TestSQLiteStore_InMemoryCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(context.Background(), ":memory:", zerolog.Nop())
		if err != nil {
			t.Fatalf("sqlite open: %v", err)
		}
		return s
	})
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.db")

	s, err := New(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	turn, err := s.Turns().Record(ctx, &model.TurnRecord{Turn: model.ConversationTurn{
		UserID: "u1", UserText: "remember me", AIText: "always", UserEmotion: model.Love, AIEmotion: model.Love,
	}})
	require.NoError(t, err)
	_, err = s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: "u1", IntimacyLevel: 2, TrustLevel: 0.8, InteractionCount: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening re-runs migrations as a no-op and sees prior writes.
	s2, err := New(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	hist, err := s2.Turns().History(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, turn.ID, hist[0].ID)

	snap, err := s2.Relationships().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.InteractionCount)

	next, err := s2.Turns().Record(ctx, &model.TurnRecord{Turn: model.ConversationTurn{
		UserID: "u1", UserText: "again", AIText: "hi", UserEmotion: model.Neutral, AIEmotion: model.Neutral,
	}})
	require.NoError(t, err)
	assert.Greater(t, next.ID, turn.ID)
}

func TestSQLiteStore_ClosedIsUnavailable(t *testing.T) {
	s := makeSQLiteStore(t)
	require.NoError(t, s.Close())

	_, err := s.Turns().History(context.Background(), "u1", 1)
	require.Error(t, err)
	assert.True(t, model.IsStorageUnavailableError(err))
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.Error(t, s.HealthPing(context.Background()))
}

func TestMigrations_Ordered(t *testing.T) {
	ms, err := store.LoadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	for i := 1; i < len(ms); i++ {
		assert.Greater(t, ms[i].Version, ms[i-1].Version)
	}
	assert.Equal(t, "init", ms[0].Description)
}
