// Package services exposes the companion's memory use cases over a store.Store.
package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/facts"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/relationship"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
	DefaultTrendWindow  = 10
	DefaultSearchLimit  = 20

	// trendDelta is the valence shift between window halves that counts as a trend.
	trendDelta = 0.15
	// minTrendEvents is the smallest window a trend is computed over.
	minTrendEvents = 4
)

// MemoryService orchestrates memory-related use cases.
type MemoryService struct {
	store        store.Store
	historyLimit int
	trendWindow  int
	log          zerolog.Logger
}

// Option configures a MemoryService.
type Option func(*MemoryService)

// WithHistoryLimit sets the page size used when callers pass limit <= 0.
func WithHistoryLimit(n int) Option {
	return func(s *MemoryService) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithTrendWindow sets how many recent events GetEmotionalPatterns inspects.
func WithTrendWindow(n int) Option {
	return func(s *MemoryService) {
		if n > 1 {
			s.trendWindow = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *MemoryService) { s.log = l.With().Str("component", "memory").Logger() }
}

func NewMemoryService(s store.Store, opts ...Option) *MemoryService {
	svc := &MemoryService{
		store:        s,
		historyLimit: DefaultHistoryLimit,
		trendWindow:  DefaultTrendWindow,
		log:          zerolog.Nop(),
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return model.NewInvalidInputError("user_id", "must not be empty")
	}
	return nil
}

// StoreConversation appends a turn together with the facts disclosed in
// userText and returns the new turn ID.
func (s *MemoryService) StoreConversation(ctx context.Context, userID, userText, aiText string, cls model.EmotionClassification, aiEmotion model.EmotionLabel) (int64, error) {
	t, err := s.RecordTurn(ctx, &model.TurnRecord{Turn: model.ConversationTurn{
		UserID:        userID,
		UserText:      userText,
		AIText:        aiText,
		UserEmotion:   cls.Primary,
		UserIntensity: cls.Intensity,
		AIEmotion:     aiEmotion,
	}})
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

// RecordTurn persists a turn, its optional emotional event and its facts in
// one transaction. Facts are extracted from the user text when rec has none.
func (s *MemoryService) RecordTurn(ctx context.Context, rec *model.TurnRecord) (*model.ConversationTurn, error) {
	if err := requireUser(rec.Turn.UserID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.Turn.UserText) == "" {
		return nil, model.NewInvalidInputError("user_text", "must not be empty")
	}
	if !rec.Turn.UserEmotion.Valid() {
		return nil, model.NewInvalidInputError("user_emotion", "unknown emotion "+string(rec.Turn.UserEmotion))
	}
	if !rec.Turn.AIEmotion.Valid() {
		return nil, model.NewInvalidInputError("ai_emotion", "unknown emotion "+string(rec.Turn.AIEmotion))
	}
	if rec.Facts == nil {
		rec.Facts = facts.Extract(rec.Turn.UserText)
	}

	t, err := s.store.Turns().Record(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("user_id", t.UserID).Int64("turn_id", t.ID).Int("facts", len(rec.Facts)).Bool("event", rec.Event != nil).Msg("Turn stored")
	return t, nil
}

// GetConversationHistory returns the newest turns first. limit <= 0 selects
// the default page size; larger requests are capped.
func (s *MemoryService) GetConversationHistory(ctx context.Context, userID string, limit int) ([]*model.ConversationTurn, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.store.Turns().History(ctx, userID, limit)
}

// GetPersonalFacts returns every fact recorded for the user, oldest first,
// duplicates included. Use facts.Dedupe for a distinct view.
func (s *MemoryService) GetPersonalFacts(ctx context.Context, userID string) ([]*model.PersonalFact, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.Facts().List(ctx, userID)
}

// SearchMemories finds turns and facts containing any word of query. Hits
// matching more words rank first, then newer hits.
func (s *MemoryService) SearchMemories(ctx context.Context, userID, query string, limit int) ([]model.SearchResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	keywords := store.Keywords(query)
	if len(keywords) == 0 {
		return nil, model.NewInvalidInputError("query", "must not be empty")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	turns, err := s.store.Turns().Search(ctx, userID, keywords, limit)
	if err != nil {
		return nil, err
	}
	fs, err := s.store.Facts().Search(ctx, userID, keywords, limit)
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(turns)+len(fs))
	for _, t := range turns {
		results = append(results, model.SearchResult{Kind: model.ResultTurn, Turn: t, Matches: store.CountMatches(keywords, t.UserText, t.AIText)})
	}
	for _, f := range fs {
		results = append(results, model.SearchResult{Kind: model.ResultFact, Fact: f, Matches: store.CountMatches(keywords, f.FactText)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Matches != b.Matches {
			return a.Matches > b.Matches
		}
		if ta, tb := resultTime(a), resultTime(b); !ta.Equal(tb) {
			return ta.After(tb)
		}
		if a.Turn != nil && b.Turn != nil {
			return a.Turn.ID > b.Turn.ID
		}
		return false
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// StoreEmotionalMemory appends a standalone emotional event. Both strengths
// are clamped to [0,1].
func (s *MemoryService) StoreEmotionalMemory(ctx context.Context, userID string, emotion model.EmotionLabel, intensity float64, trigger string, reaction model.EmotionLabel, reactionStrength float64) (*model.EmotionalEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !emotion.Valid() {
		return nil, model.NewInvalidInputError("emotion", "unknown emotion "+string(emotion))
	}
	if !reaction.Valid() {
		return nil, model.NewInvalidInputError("reaction", "unknown emotion "+string(reaction))
	}
	return s.store.Emotions().Append(ctx, &model.EmotionalEvent{
		UserID:           userID,
		Emotion:          emotion,
		Intensity:        intensity,
		Trigger:          trigger,
		Reaction:         reaction,
		ReactionStrength: reactionStrength,
	})
}

// GetEmotionalPatterns summarises the user's emotional-event log and the
// direction their mood has taken over the most recent events.
func (s *MemoryService) GetEmotionalPatterns(ctx context.Context, userID string) (*model.EmotionalPatterns, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sum, err := s.store.Emotions().Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.Emotions().Recent(ctx, userID, s.trendWindow)
	if err != nil {
		return nil, err
	}

	return &model.EmotionalPatterns{
		UserID:           userID,
		Counts:           sum.Counts,
		Total:            sum.Total,
		Dominant:         dominant(sum.Counts),
		AverageIntensity: sum.AverageIntensity,
		Trend:            trend(recent),
		Window:           s.trendWindow,
	}, nil
}

// GetEmotionalInsights summarises the conversation log and relationship.
func (s *MemoryService) GetEmotionalInsights(ctx context.Context, userID string) (*model.EmotionalInsights, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	st, err := s.store.Turns().Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	rel, err := s.store.Relationships().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.EmotionalInsights{
		UserID:                userID,
		MostCommonUserEmotion: dominant(st.UserEmotions),
		MostCommonAIEmotion:   dominant(st.AIEmotions),
		TotalTurns:            st.Turns,
		AverageUserIntensity:  st.AverageIntensity,
		Relationship:          *rel,
		Stage:                 relationship.Stage(rel.IntimacyLevel),
	}, nil
}

// UpdateRelationshipStatus overwrites the snapshot. Intimacy below zero is
// raised to zero and trust is clamped to [0,1]; a count below the stored one
// fails with model.StaleUpdateError and writes nothing.
func (s *MemoryService) UpdateRelationshipStatus(ctx context.Context, userID string, intimacy, trust float64, count int64) (*model.RelationshipSnapshot, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, model.NewInvalidInputError("interaction_count", "must not be negative")
	}
	if math.IsNaN(intimacy) || math.IsInf(intimacy, 0) || math.IsNaN(trust) {
		return nil, model.NewInvalidInputError("relationship", "levels must be finite")
	}
	return s.store.Relationships().Upsert(ctx, model.RelationshipSnapshot{
		UserID:           userID,
		IntimacyLevel:    intimacy,
		TrustLevel:       trust,
		InteractionCount: count,
	})
}

// GetRelationshipStatus returns the snapshot, the zero snapshot for unknown users.
func (s *MemoryService) GetRelationshipStatus(ctx context.Context, userID string) (*model.RelationshipSnapshot, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.Relationships().Get(ctx, userID)
}

// dominant returns the most frequent label, ties going to the higher-priority
// label; neutral when counts is empty.
func dominant(counts map[model.EmotionLabel]int) model.EmotionLabel {
	best, bestN := model.Neutral, 0
	for _, l := range model.AllEmotions() {
		if n := counts[l]; n > bestN {
			best, bestN = l, n
		}
	}
	return best
}

// trend compares the mean valence of the newer half of recent (newest first)
// against the older half.
func trend(recent []*model.EmotionalEvent) string {
	if len(recent) < minTrendEvents {
		return model.TrendInsufficientData
	}
	half := len(recent) / 2
	newer := meanValence(recent[:half])
	older := meanValence(recent[len(recent)-half:])
	switch d := newer - older; {
	case d > trendDelta:
		return model.TrendImproving
	case d < -trendDelta:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func meanValence(events []*model.EmotionalEvent) float64 {
	var sum float64
	for _, e := range events {
		sum += e.Emotion.Valence() * (0.5 + e.Intensity/2)
	}
	return sum / float64(len(events))
}

func resultTime(r model.SearchResult) time.Time {
	if r.Turn != nil {
		return r.Turn.CreatedAt
	}
	return r.Fact.ExtractedAt
}
