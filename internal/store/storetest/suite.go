package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

// Run exercises the compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	t.Cleanup(func() { _ = s.Close() })

	t.Run("TurnRoundTrip", func(t *testing.T) { testTurnRoundTrip(t, s) })
	t.Run("TurnIDsIncrease", func(t *testing.T) { testTurnIDsIncrease(t, s) })
	t.Run("HistoryUnknownUser", func(t *testing.T) { testHistoryUnknownUser(t, s) })
	t.Run("TurnWithEventAndFacts", func(t *testing.T) { testTurnWithEventAndFacts(t, s) })
	t.Run("Search", func(t *testing.T) { testSearch(t, s) })
	t.Run("Stats", func(t *testing.T) { testStats(t, s) })
	t.Run("EmotionsClampAndSummary", func(t *testing.T) { testEmotions(t, s) })
	t.Run("RelationshipUpsert", func(t *testing.T) { testRelationshipUpsert(t, s) })
	t.Run("RelationshipStale", func(t *testing.T) { testRelationshipStale(t, s) })
	t.Run("RelationshipCompareAndSwap", func(t *testing.T) { testRelationshipCompareAndSwap(t, s) })
	t.Run("ConcurrentRecord", func(t *testing.T) { testConcurrentRecord(t, s) })
	t.Run("HealthPing", func(t *testing.T) {
		require.NoError(t, s.HealthPing(context.Background()))
	})
}

func newUser() string { return "u-" + uuid.New().String() }

func record(t *testing.T, s store.Store, userID, userText, aiText string, emo model.EmotionLabel) *model.ConversationTurn {
	t.Helper()
	turn, err := s.Turns().Record(context.Background(), &model.TurnRecord{Turn: model.ConversationTurn{
		UserID:        userID,
		UserText:      userText,
		AIText:        aiText,
		UserEmotion:   emo,
		UserIntensity: 0.6,
		AIEmotion:     model.Calmness,
	}})
	require.NoError(t, err, "Record")
	return turn
}

func testTurnRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	stored := record(t, s, userID, "I watched two movies today", "Which one did you like more?", model.Happiness)
	assert.Greater(t, stored.ID, int64(0))

	hist, err := s.Turns().History(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	got := hist[0]
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "I watched two movies today", got.UserText)
	assert.Equal(t, "Which one did you like more?", got.AIText)
	assert.Equal(t, model.Happiness, got.UserEmotion)
	assert.Equal(t, model.Calmness, got.AIEmotion)
	assert.InDelta(t, 0.6, got.UserIntensity, 1e-9)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func testTurnIDsIncrease(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	var last int64
	for i := 0; i < 5; i++ {
		turn := record(t, s, userID, "hello", "hi", model.Neutral)
		assert.Greater(t, turn.ID, last, "turn ids must strictly increase")
		last = turn.ID
	}

	hist, err := s.Turns().History(ctx, userID, 3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, last, hist[0].ID, "history is newest first")
	assert.Greater(t, hist[0].ID, hist[1].ID)
	assert.Greater(t, hist[1].ID, hist[2].ID)
}

func testHistoryUnknownUser(t *testing.T, s store.Store) {
	hist, err := s.Turns().History(context.Background(), newUser(), 10)
	require.NoError(t, err)
	assert.Empty(t, hist)

	facts, err := s.Facts().List(context.Background(), newUser())
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func testTurnWithEventAndFacts(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	rec := &model.TurnRecord{
		Turn: model.ConversationTurn{
			UserID: userID, UserText: "My name is Mia and I like jazz", AIText: "Nice to meet you, Mia",
			UserEmotion: model.Happiness, UserIntensity: 1.7, AIEmotion: model.Happiness,
		},
		Event: &model.EmotionalEvent{
			Emotion: model.Happiness, Intensity: 1.4, Trigger: "introduction",
			Reaction: model.Happiness, ReactionStrength: -2,
		},
		Facts: []model.PersonalFact{
			{Category: "name", FactText: "name: Mia"},
			{Category: "likes", FactText: "likes: jazz"},
		},
	}
	turn, err := s.Turns().Record(ctx, rec)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, turn.UserIntensity, 1e-9, "turn intensity clamped")

	require.NotNil(t, rec.Event)
	assert.Equal(t, turn.ID, rec.Event.TurnID)
	assert.NotEmpty(t, rec.Event.EventID)

	events, err := s.Emotions().Recent(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, turn.ID, events[0].TurnID)
	assert.InDelta(t, 1.0, events[0].Intensity, 1e-9)
	assert.InDelta(t, 0.0, events[0].ReactionStrength, 1e-9)

	facts, err := s.Facts().List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "name: Mia", facts[0].FactText)
	assert.Equal(t, "name", facts[0].Category)
	assert.Equal(t, turn.ID, facts[1].SourceTurnID)
	assert.NotEmpty(t, facts[1].FactID)
}

func testSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	movie := record(t, s, userID, "I love watching Movies on weekends", "Me too!", model.Love)
	record(t, s, userID, "work was tiring", "Rest well", model.Sadness)
	record(t, s, userID, "100% done_with it", "Great", model.Happiness)
	record(t, s, newUser(), "movies everywhere", "ok", model.Neutral)

	got, err := s.Turns().Search(ctx, userID, []string{"movies"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, movie.ID, got[0].ID)

	got, err = s.Turns().Search(ctx, userID, []string{"me too"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "ai text is searchable")

	// LIKE metacharacters are matched literally.
	got, err = s.Turns().Search(ctx, userID, []string{"0%"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = s.Turns().Search(ctx, userID, []string{"e_w"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = s.Turns().Search(ctx, userID, []string{"%"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = s.Turns().Record(ctx, &model.TurnRecord{
		Turn:  model.ConversationTurn{UserID: userID, UserText: "我喜欢看电影", AIText: "好呀", UserEmotion: model.Love, AIEmotion: model.Love},
		Facts: []model.PersonalFact{{Category: "likes", FactText: "likes: 看电影"}},
	})
	require.NoError(t, err)

	facts, err := s.Facts().Search(ctx, userID, []string{"电影"}, 10)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "likes: 看电影", facts[0].FactText)

	none, err := s.Turns().Search(ctx, userID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	record(t, s, userID, "a", "b", model.Happiness)
	record(t, s, userID, "c", "d", model.Happiness)
	record(t, s, userID, "e", "f", model.Sadness)

	st, err := s.Turns().Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Turns)
	assert.Equal(t, 2, st.UserEmotions[model.Happiness])
	assert.Equal(t, 1, st.UserEmotions[model.Sadness])
	assert.Equal(t, 3, st.AIEmotions[model.Calmness])
	assert.InDelta(t, 0.6, st.AverageIntensity, 1e-9)

	empty, err := s.Turns().Stats(ctx, newUser())
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Turns)
}

func testEmotions(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	e, err := s.Emotions().Append(ctx, &model.EmotionalEvent{
		UserID: userID, Emotion: model.Anger, Intensity: 3, Trigger: "traffic",
		Reaction: model.Calmness, ReactionStrength: -0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Intensity)
	assert.Equal(t, 0.0, e.ReactionStrength)
	assert.NotEmpty(t, e.EventID)

	for _, emo := range []model.EmotionLabel{model.Happiness, model.Happiness} {
		_, err := s.Emotions().Append(ctx, &model.EmotionalEvent{UserID: userID, Emotion: emo, Intensity: 0.5, Reaction: model.Happiness, ReactionStrength: 0.5})
		require.NoError(t, err)
	}

	sum, err := s.Emotions().Summary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Counts[model.Happiness])
	assert.Equal(t, 1, sum.Counts[model.Anger])
	assert.InDelta(t, 2.0/3.0, sum.AverageIntensity, 1e-9)

	recent, err := s.Emotions().Recent(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, model.Happiness, recent[0].Emotion)
}

func testRelationshipUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	zero, err := s.Relationships().Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, zero.UserID)
	assert.Equal(t, int64(0), zero.InteractionCount)
	assert.Equal(t, 0.0, zero.IntimacyLevel)

	got, err := s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: -4, TrustLevel: 1.8, InteractionCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.IntimacyLevel)
	assert.Equal(t, 1.0, got.TrustLevel)

	_, err = s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: 2, TrustLevel: 0.8, InteractionCount: 1})
	require.NoError(t, err, "an equal count is not a regression")

	read, err := s.Relationships().Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, read.IntimacyLevel)
	assert.Equal(t, 0.8, read.TrustLevel)
	assert.Equal(t, int64(1), read.InteractionCount)
	assert.False(t, read.LastUpdated.IsZero())
}

func testRelationshipStale(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()

	_, err := s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: 3, TrustLevel: 0.5, InteractionCount: 5})
	require.NoError(t, err)

	_, err = s.Relationships().Upsert(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: 9, TrustLevel: 0.9, InteractionCount: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStaleUpdate)
	var stale model.StaleUpdateError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, int64(5), stale.Stored)
	assert.Equal(t, int64(3), stale.Attempted)

	read, err := s.Relationships().Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), read.InteractionCount)
	assert.Equal(t, 3.0, read.IntimacyLevel, "no partial write")
}

func testRelationshipCompareAndSwap(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser()
	rels := s.Relationships()

	first, err := rels.CompareAndSwap(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: 1, TrustLevel: 0.1, InteractionCount: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.InteractionCount)

	// A second writer that also read count 0 must lose, even though its count is not lower.
	_, err = rels.CompareAndSwap(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: 7, TrustLevel: 0.7, InteractionCount: 1}, 0)
	require.Error(t, err)
	var stale model.StaleUpdateError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, int64(1), stale.Stored)

	_, err = rels.CompareAndSwap(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: 2, TrustLevel: 0.2, InteractionCount: 2}, 1)
	require.NoError(t, err)
	_, err = rels.CompareAndSwap(ctx, model.RelationshipSnapshot{UserID: userID, IntimacyLevel: 9, TrustLevel: 0.9, InteractionCount: 2}, 1)
	assert.ErrorIs(t, err, model.ErrStaleUpdate)

	read, err := rels.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), read.InteractionCount)
	assert.Equal(t, 2.0, read.IntimacyLevel, "losing writes leave no trace")

	// Expecting a count on a user that was never written is stale too.
	_, err = rels.CompareAndSwap(ctx, model.RelationshipSnapshot{UserID: newUser(), InteractionCount: 4}, 3)
	assert.ErrorIs(t, err, model.ErrStaleUpdate)
}

func testConcurrentRecord(t *testing.T, s store.Store) {
	ctx := context.Background()
	const writers = 8
	users := make([]string, writers)
	for i := range users {
		users[i] = newUser()
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[int64]bool{}
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				turn, err := s.Turns().Record(ctx, &model.TurnRecord{Turn: model.ConversationTurn{
					UserID: userID, UserText: "ping", AIText: "pong", UserEmotion: model.Neutral, AIEmotion: model.Neutral,
				}})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[turn.ID] = true
				mu.Unlock()
			}
		}(users[i])
	}
	wg.Wait()
	assert.Len(t, ids, writers*5, "every turn id is unique")

	for _, u := range users {
		hist, err := s.Turns().History(ctx, u, 100)
		require.NoError(t, err)
		assert.Len(t, hist, 5)
	}
}
