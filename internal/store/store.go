package store

import (
	"context"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

// Store is a persistence facade exposing per-aggregate repositories.
type Store interface {
	Turns() Turns
	Facts() Facts
	Emotions() Emotions
	Relationships() Relationships

	HealthPing(ctx context.Context) error
	Close() error
}

// Turns is the append-only conversation log.
type Turns interface {
	// Record writes the turn, its optional emotional event and its facts in one
	// transaction. The returned turn carries the store-assigned ID.
	Record(ctx context.Context, rec *model.TurnRecord) (*model.ConversationTurn, error)
	// History returns at most limit turns, newest first.
	History(ctx context.Context, userID string, limit int) ([]*model.ConversationTurn, error)
	// Search returns turns whose user or AI text contains any keyword, newest first.
	Search(ctx context.Context, userID string, keywords []string, limit int) ([]*model.ConversationTurn, error)
	Stats(ctx context.Context, userID string) (*model.EmotionStats, error)
}

// Facts is the append-only personal fact log.
type Facts interface {
	List(ctx context.Context, userID string) ([]*model.PersonalFact, error)
	Search(ctx context.Context, userID string, keywords []string, limit int) ([]*model.PersonalFact, error)
}

// Emotions is the append-only emotional event log.
type Emotions interface {
	Append(ctx context.Context, e *model.EmotionalEvent) (*model.EmotionalEvent, error)
	// Recent returns at most limit events, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]*model.EmotionalEvent, error)
	Summary(ctx context.Context, userID string) (*model.EventSummary, error)
}

// Relationships holds one snapshot row per user.
type Relationships interface {
	// Get returns the zero snapshot for unknown users.
	Get(ctx context.Context, userID string) (*model.RelationshipSnapshot, error)
	// Upsert fails with model.StaleUpdateError when s.InteractionCount is lower
	// than the stored count; nothing is written in that case.
	Upsert(ctx context.Context, s model.RelationshipSnapshot) (*model.RelationshipSnapshot, error)
	// CompareAndSwap writes s only if the stored count still equals expected
	// (an absent row counts as 0). Otherwise it fails with model.StaleUpdateError
	// and writes nothing.
	CompareAndSwap(ctx context.Context, s model.RelationshipSnapshot, expected int64) (*model.RelationshipSnapshot, error)
}
