// Package orchestrator sequences one conversational turn: classify, respond,
// remember, update the relationship, then hand the reply to the speech and
// render surfaces.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/metrics"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/relationship"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/response"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/userlock"
)

// DefaultEventThreshold is the intensity from which a turn is also logged as an emotional event.
const DefaultEventThreshold = 0.3

const maxTriggerRunes = 200

// Classifier is satisfied by *emotion.Classifier.
type Classifier interface {
	Classify(text string, prior *model.EmotionClassification) (model.EmotionClassification, error)
}

// Generator is satisfied by *response.Generator.
type Generator interface {
	Generate(cls model.EmotionClassification, userText string, snapshot model.RelationshipSnapshot) (model.ResponseDirective, error)
}

// Memory is satisfied by *services.MemoryService.
type Memory interface {
	RecordTurn(ctx context.Context, rec *model.TurnRecord) (*model.ConversationTurn, error)
	GetConversationHistory(ctx context.Context, userID string, limit int) ([]*model.ConversationTurn, error)
	GetRelationshipStatus(ctx context.Context, userID string) (*model.RelationshipSnapshot, error)
	GetEmotionalPatterns(ctx context.Context, userID string) (*model.EmotionalPatterns, error)
	GetEmotionalInsights(ctx context.Context, userID string) (*model.EmotionalInsights, error)
}

// StateMachine is satisfied by *relationship.Machine.
type StateMachine interface {
	ApplyInteraction(ctx context.Context, userID string, kind model.InteractionKind, cls model.EmotionClassification, dir model.ResponseDirective) (*model.RelationshipSnapshot, error)
}

// Dispatcher is satisfied by *dispatch.Dispatcher. Dispatch must not wait for
// the collaborators themselves.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, turnID int64, dir model.ResponseDirective) error
}

// HealthReporter is satisfied by *store.HealthChecker.
type HealthReporter interface {
	IsHealthy() bool
}

// Deps are the collaborators of an Orchestrator. Dispatcher and Health are optional.
type Deps struct {
	Classifier   Classifier
	Generator    Generator
	Memory       Memory
	Relationship StateMachine
	Dispatcher   Dispatcher
	Health       HealthReporter
	Logger       zerolog.Logger
	// EventThreshold defaults to DefaultEventThreshold when zero.
	EventThreshold float64
}

// TurnResult is what a caller gets back from HandleTurn.
type TurnResult struct {
	// TurnID is 0 when the turn could not be persisted.
	TurnID         int64                      `json:"turnId,omitempty"`
	Directive      model.ResponseDirective    `json:"directive"`
	Classification model.EmotionClassification `json:"classification"`
	Relationship   model.RelationshipSnapshot `json:"relationship"`
	Persisted      bool                       `json:"persisted"`
	Degraded       bool                       `json:"degraded"`
}

// Orchestrator runs turns. Turns of one user are serialized; different users
// proceed in parallel.
type Orchestrator struct {
	deps  Deps
	locks *userlock.Locker
	log   zerolog.Logger
}

// New validates deps and returns an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Classifier == nil || deps.Generator == nil || deps.Memory == nil || deps.Relationship == nil {
		return nil, fmt.Errorf("orchestrator: classifier, generator, memory and relationship are required")
	}
	if deps.EventThreshold <= 0 {
		deps.EventThreshold = DefaultEventThreshold
	}
	return &Orchestrator{
		deps:  deps,
		locks: userlock.New(),
		log:   deps.Logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// HandleTurn processes one utterance. Only invalid input is returned as an
// error; every downstream failure degrades the result instead.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, text string) (*TurnResult, error) {
	if strings.TrimSpace(userID) == "" {
		metrics.TurnsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, model.NewInvalidInputError("user_id", "must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		metrics.TurnsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, model.NewInvalidInputError("text", "must not be empty")
	}

	unlock, err := o.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	log := o.log.With().Str("user_id", userID).Str("turn_ref", uuid.NewString()).Logger()
	storeUp := o.deps.Health == nil || o.deps.Health.IsHealthy()
	res := &TurnResult{}

	res.Classification = o.classify(ctx, log, userID, text, storeUp)
	metrics.ClassificationsTotal.WithLabelValues(res.Classification.Primary.String()).Inc()

	snapshot := model.ZeroSnapshot(userID)
	if storeUp {
		if s, err := o.deps.Memory.GetRelationshipStatus(ctx, userID); err != nil {
			log.Warn().Err(err).Msg("Relationship read failed, replying as to a stranger")
		} else {
			snapshot = *s
		}
	}
	res.Relationship = snapshot
	res.Directive = o.generate(log, res.Classification, text, snapshot)

	if storeUp {
		res.TurnID, res.Persisted = o.persist(ctx, log, userID, text, res.Classification, res.Directive)
	} else {
		metrics.FallbacksTotal.WithLabelValues(metrics.StagePersist).Inc()
		log.Warn().Msg("Store unhealthy, turn not persisted")
	}

	if storeUp {
		kind := relationship.KindFor(res.Classification)
		if s, err := o.deps.Relationship.ApplyInteraction(ctx, userID, kind, res.Classification, res.Directive); err != nil {
			metrics.FallbacksTotal.WithLabelValues(metrics.StageRelationship).Inc()
			log.Error().Stack().Err(err).Str("kind", string(kind)).Msg("Relationship update failed")
		} else {
			res.Relationship = *s
		}
	}

	res.Degraded = !res.Persisted
	outcome := metrics.OutcomeOK
	if res.Degraded {
		outcome = metrics.OutcomeDegraded
	}
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	log.Info().
		Int64("turn_id", res.TurnID).
		Str("user_emotion", res.Classification.Primary.String()).
		Float64("intensity", res.Classification.Intensity).
		Str("ai_emotion", res.Directive.AIEmotion.String()).
		Bool("degraded", res.Degraded).
		Msg("Turn handled")

	// Submitted under the user lock so collaborator playback follows turn order.
	if o.deps.Dispatcher != nil {
		if err := o.deps.Dispatcher.Dispatch(ctx, userID, res.TurnID, res.Directive); err != nil {
			log.Warn().Err(err).Msg("Directive dispatch failed")
		}
	}
	return res, nil
}

// classify never fails: errors and panics map to the neutral classification.
func (o *Orchestrator) classify(ctx context.Context, log zerolog.Logger, userID, text string, storeUp bool) (cls model.EmotionClassification) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FallbacksTotal.WithLabelValues(metrics.StageClassify).Inc()
			log.Error().Interface("panic", r).Msg("Classifier panicked, using neutral")
			cls = model.NeutralClassification()
		}
	}()

	var prior *model.EmotionClassification
	if storeUp {
		if last, err := o.deps.Memory.GetConversationHistory(ctx, userID, 1); err == nil && len(last) == 1 {
			prior = &model.EmotionClassification{Primary: last[0].UserEmotion, Intensity: last[0].UserIntensity}
		}
	}

	out, err := o.deps.Classifier.Classify(text, prior)
	if err != nil || !out.Primary.Valid() {
		metrics.FallbacksTotal.WithLabelValues(metrics.StageClassify).Inc()
		log.Warn().Err(err).Msg("Classification failed, using neutral")
		return model.NeutralClassification()
	}
	out.Intensity = model.Clamp01(out.Intensity)
	return out
}

// generate never fails: errors and panics map to the fallback directive.
func (o *Orchestrator) generate(log zerolog.Logger, cls model.EmotionClassification, text string, snapshot model.RelationshipSnapshot) (dir model.ResponseDirective) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FallbacksTotal.WithLabelValues(metrics.StageGenerate).Inc()
			log.Error().Interface("panic", r).Msg("Generator panicked, using fallback reply")
			dir = response.Fallback()
		}
	}()
	out, err := o.deps.Generator.Generate(cls, text, snapshot)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues(metrics.StageGenerate).Inc()
		log.Warn().Err(err).Msg("Generation failed, using fallback reply")
		return response.Fallback()
	}
	return out
}

func (o *Orchestrator) persist(ctx context.Context, log zerolog.Logger, userID, text string, cls model.EmotionClassification, dir model.ResponseDirective) (int64, bool) {
	rec := &model.TurnRecord{Turn: model.ConversationTurn{
		UserID:        userID,
		UserText:      text,
		AIText:        dir.ResponseText,
		UserEmotion:   cls.Primary,
		UserIntensity: cls.Intensity,
		AIEmotion:     dir.AIEmotion,
	}}
	if cls.Intensity >= o.deps.EventThreshold {
		rec.Event = &model.EmotionalEvent{
			Emotion:          cls.Primary,
			Intensity:        cls.Intensity,
			Trigger:          trigger(text),
			Reaction:         dir.AIEmotion,
			ReactionStrength: cls.Intensity,
		}
	}

	t, err := o.deps.Memory.RecordTurn(ctx, rec)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues(metrics.StagePersist).Inc()
		if model.IsStorageUnavailableError(err) {
			log.Error().Stack().Err(err).Msg("Store unavailable, turn lost")
		} else {
			log.Error().Err(err).Msg("Turn not persisted")
		}
		return 0, false
	}
	return t.ID, true
}

func trigger(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) > maxTriggerRunes {
		r = r[:maxTriggerRunes]
	}
	return string(r)
}

// RelationshipStatus returns the user's current snapshot.
func (o *Orchestrator) RelationshipStatus(ctx context.Context, userID string) (*model.RelationshipSnapshot, error) {
	return o.deps.Memory.GetRelationshipStatus(ctx, userID)
}

// EmotionalPatterns returns statistics over the user's emotional events.
func (o *Orchestrator) EmotionalPatterns(ctx context.Context, userID string) (*model.EmotionalPatterns, error) {
	return o.deps.Memory.GetEmotionalPatterns(ctx, userID)
}

// EmotionalInsights returns statistics over the user's conversation log.
func (o *Orchestrator) EmotionalInsights(ctx context.Context, userID string) (*model.EmotionalInsights, error) {
	return o.deps.Memory.GetEmotionalInsights(ctx, userID)
}
