package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/sqlite"
)

func TestHealthChecker_TracksStore(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.New(ctx, ":memory:", zerolog.Nop())
	require.NoError(t, err)

	hc := store.NewHealthChecker(st, zerolog.Nop(), time.Second)
	assert.True(t, hc.IsHealthy(), "optimistic before the first probe")
	assert.True(t, hc.Check(ctx))

	require.NoError(t, st.Close())
	assert.False(t, hc.Check(ctx))
	assert.False(t, hc.IsHealthy())
}

func TestHealthChecker_StartStopsWithContext(t *testing.T) {
	st, err := sqlite.New(context.Background(), ":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.NewHealthChecker(st, zerolog.Nop(), time.Second).Start(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
