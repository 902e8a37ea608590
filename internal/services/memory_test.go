package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/facts"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/sqlite"
)

func newService(t *testing.T, opts ...Option) *MemoryService {
	t.Helper()
	st, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "memory.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewMemoryService(st, opts...)
}

func happy(intensity float64) model.EmotionClassification {
	return model.EmotionClassification{Primary: model.Happiness, Intensity: intensity}
}

func TestStoreConversation_HistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	id1, err := svc.StoreConversation(ctx, "u1", "hello there", "hi!", happy(0.4), model.Happiness)
	require.NoError(t, err)
	id2, err := svc.StoreConversation(ctx, "u1", "how are you", "great", happy(0.2), model.Happiness)
	require.NoError(t, err)
	assert.Greater(t, id1, int64(0))
	assert.Greater(t, id2, id1)

	hist, err := svc.GetConversationHistory(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, id2, hist[0].ID)
	assert.Equal(t, "how are you", hist[0].UserText)
	assert.Equal(t, "great", hist[0].AIText)
	assert.Equal(t, model.Happiness, hist[0].UserEmotion)
}

func TestGetConversationHistory_DefaultLimitAndUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, WithHistoryLimit(3))
	for i := 0; i < 5; i++ {
		_, err := svc.StoreConversation(ctx, "u1", "msg", "reply", happy(0.1), model.Neutral)
		require.NoError(t, err)
	}

	hist, err := svc.GetConversationHistory(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, hist, 3)

	empty, err := svc.GetConversationHistory(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.GetConversationHistory(ctx, "", 10)
	assert.True(t, model.IsInvalidInputError(err))
}

func TestStoreConversation_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.StoreConversation(ctx, "u1", "  ", "x", happy(0.1), model.Neutral)
	assert.True(t, model.IsInvalidInputError(err))
	_, err = svc.StoreConversation(ctx, "u1", "hi", "x", model.EmotionClassification{Primary: "smug"}, model.Neutral)
	assert.True(t, model.IsInvalidInputError(err))

	hist, err := svc.GetConversationHistory(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, hist, "rejected input must not be stored")
}

func TestStoreConversation_ExtractsFacts(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	turnID, err := svc.StoreConversation(ctx, "u1", "我叫測試用戶，我喜歡看電影", "很高興認識你", happy(0.6), model.Happiness)
	require.NoError(t, err)

	fs, err := svc.GetPersonalFacts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "name: 測試用戶", fs[0].FactText)
	assert.Equal(t, facts.CategoryLikes, fs[1].Category)
	assert.Equal(t, turnID, fs[1].SourceTurnID)

	results, err := svc.SearchMemories(ctx, "u1", "電影", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	none, err := svc.GetPersonalFacts(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetPersonalFacts_KeepsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for i := 0; i < 2; i++ {
		_, err := svc.StoreConversation(ctx, "u1", "I like tea", "nice", happy(0.3), model.Happiness)
		require.NoError(t, err)
	}
	fs, err := svc.GetPersonalFacts(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, fs, 2)

	distinct := make([]model.PersonalFact, 0, len(fs))
	for _, f := range fs {
		distinct = append(distinct, *f)
	}
	assert.Len(t, facts.Dedupe(distinct), 1)
}

func TestSearchMemories(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.SearchMemories(ctx, "u1", "", 10)
	assert.True(t, model.IsInvalidInputError(err))
	_, err = svc.SearchMemories(ctx, "u1", "   ", 10)
	assert.True(t, model.IsInvalidInputError(err))

	movies, err := svc.StoreConversation(ctx, "u1", "we watched movies all night", "sounds fun", happy(0.5), model.Happiness)
	require.NoError(t, err)
	both, err := svc.StoreConversation(ctx, "u1", "pizza and movies again", "yum", happy(0.5), model.Happiness)
	require.NoError(t, err)
	_, err = svc.StoreConversation(ctx, "u1", "unrelated", "ok", happy(0.1), model.Neutral)
	require.NoError(t, err)

	results, err := svc.SearchMemories(ctx, "u1", "movies", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, both, results[0].Turn.ID, "newer hit first on equal matches")
	assert.Equal(t, movies, results[1].Turn.ID)

	results, err = svc.SearchMemories(ctx, "u1", "MOVIES pizza", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, both, results[0].Turn.ID, "more matched keywords rank first")
	assert.Equal(t, 2, results[0].Matches)
}

func TestSearchMemories_SurfacesFacts(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.StoreConversation(ctx, "u1", "I'm from Lisbon", "lovely city", happy(0.3), model.Happiness)
	require.NoError(t, err)

	results, err := svc.SearchMemories(ctx, "u1", "lisbon", 10)
	require.NoError(t, err)
	var kinds []string
	for _, r := range results {
		kinds = append(kinds, r.Kind)
	}
	assert.ElementsMatch(t, []string{model.ResultTurn, model.ResultFact}, kinds)
}

func TestUpdateRelationshipStatus_StaleCounter(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.UpdateRelationshipStatus(ctx, "u1", 2, 0.3, 5)
	require.NoError(t, err)

	_, err = svc.UpdateRelationshipStatus(ctx, "u1", 9, 0.9, 3)
	require.Error(t, err)
	assert.True(t, model.IsStaleUpdateError(err))

	s, err := svc.GetRelationshipStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.InteractionCount)
	assert.Equal(t, 2.0, s.IntimacyLevel)
}

func TestUpdateRelationshipStatus_Clamps(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	s, err := svc.UpdateRelationshipStatus(ctx, "u1", -4, 1.7, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.IntimacyLevel)
	assert.Equal(t, 1.0, s.TrustLevel)

	_, err = svc.UpdateRelationshipStatus(ctx, "u1", 1, 0.5, -1)
	assert.True(t, model.IsInvalidInputError(err))
}

func TestGetRelationshipStatus_UnknownUser(t *testing.T) {
	s, err := newService(t).GetRelationshipStatus(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, "new-user", s.UserID)
	assert.Zero(t, s.IntimacyLevel)
	assert.Zero(t, s.TrustLevel)
	assert.Zero(t, s.InteractionCount)
}

func TestStoreEmotionalMemory_Clamps(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	e, err := svc.StoreEmotionalMemory(ctx, "u1", model.Fear, 3, "thunder", model.Calmness, -1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Intensity)
	assert.Equal(t, 0.0, e.ReactionStrength)
	assert.NotEmpty(t, e.EventID)

	_, err = svc.StoreEmotionalMemory(ctx, "u1", "bored", 0.5, "", model.Calmness, 0.5)
	assert.True(t, model.IsInvalidInputError(err))
}

func TestGetEmotionalPatterns(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, WithTrendWindow(10))

	p, err := svc.GetEmotionalPatterns(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, model.TrendInsufficientData, p.Trend)
	assert.Equal(t, model.Neutral, p.Dominant)

	for i := 0; i < 5; i++ {
		_, err := svc.StoreEmotionalMemory(ctx, "u1", model.Sadness, 0.8, "work", model.Love, 0.7)
		require.NoError(t, err)
	}
	for i := 0; i < 6; i++ {
		_, err := svc.StoreEmotionalMemory(ctx, "u1", model.Happiness, 0.6, "weekend", model.Happiness, 0.6)
		require.NoError(t, err)
	}

	p, err = svc.GetEmotionalPatterns(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 11, p.Total)
	assert.Equal(t, 5, p.Counts[model.Sadness])
	assert.Equal(t, 6, p.Counts[model.Happiness])
	assert.Equal(t, model.Happiness, p.Dominant)
	assert.Equal(t, model.TrendImproving, p.Trend)
	assert.Equal(t, 10, p.Window)
}

func TestTrend(t *testing.T) {
	ev := func(l model.EmotionLabel) *model.EmotionalEvent {
		return &model.EmotionalEvent{Emotion: l, Intensity: 0.5}
	}
	// Newest first.
	declining := []*model.EmotionalEvent{ev(model.Anger), ev(model.Sadness), ev(model.Happiness), ev(model.Love)}
	stable := []*model.EmotionalEvent{ev(model.Calmness), ev(model.Calmness), ev(model.Calmness), ev(model.Calmness)}

	assert.Equal(t, model.TrendDeclining, trend(declining))
	assert.Equal(t, model.TrendStable, trend(stable))
	assert.Equal(t, model.TrendInsufficientData, trend(declining[:3]))
}

func TestGetEmotionalInsights(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sad := model.EmotionClassification{Primary: model.Sadness, Intensity: 0.8}
	_, err := svc.StoreConversation(ctx, "u1", "rough day", "I'm here", sad, model.Love)
	require.NoError(t, err)
	_, err = svc.StoreConversation(ctx, "u1", "still sad", "come here", sad, model.Love)
	require.NoError(t, err)
	_, err = svc.StoreConversation(ctx, "u1", "better now", "yay", happy(0.4), model.Happiness)
	require.NoError(t, err)
	_, err = svc.UpdateRelationshipStatus(ctx, "u1", 4, 0.2, 3)
	require.NoError(t, err)

	in, err := svc.GetEmotionalInsights(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.Sadness, in.MostCommonUserEmotion)
	assert.Equal(t, model.Love, in.MostCommonAIEmotion)
	assert.Equal(t, 3, in.TotalTurns)
	assert.InDelta(t, (0.8+0.8+0.4)/3, in.AverageUserIntensity, 1e-9)
	assert.Equal(t, int64(3), in.Relationship.InteractionCount)
	assert.Equal(t, "friend", in.Stage)
}
