package relationship

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/metrics"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/userlock"
)

// Repository is the snapshot persistence the machine reads and writes.
// store.Relationships satisfies it.
type Repository interface {
	Get(ctx context.Context, userID string) (*model.RelationshipSnapshot, error)
	// CompareAndSwap writes s only while the stored count still equals expected.
	CompareAndSwap(ctx context.Context, s model.RelationshipSnapshot, expected int64) (*model.RelationshipSnapshot, error)
}

const (
	defaultMaxRetries  = 4
	defaultBaseBackoff = 10 * time.Millisecond
)

// Machine applies interactions to a user's snapshot. In-process callers are
// serialized per user. Writes are conditional on the count that was read, so
// a writer in another process that lands in between turns ours into a stale
// update and the whole read-modify-write is retried.
type Machine struct {
	repo        Repository
	policy      Policy
	locks       *userlock.Locker
	log         zerolog.Logger
	maxRetries  uint64
	baseBackoff time.Duration
}

// Option configures a Machine.
type Option func(*Machine)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option { return func(m *Machine) { m.policy = p } }

// WithRetry bounds the stale-update retries.
func WithRetry(maxRetries uint64, base time.Duration) Option {
	return func(m *Machine) {
		m.maxRetries = maxRetries
		m.baseBackoff = base
	}
}

// New returns a Machine over repo.
func New(repo Repository, log zerolog.Logger, opts ...Option) *Machine {
	m := &Machine{
		repo:        repo,
		policy:      DefaultPolicy(),
		locks:       userlock.New(),
		log:         log.With().Str("component", "relationship").Logger(),
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Policy returns the transition constants in use.
func (m *Machine) Policy() Policy { return m.policy }

// ApplyInteraction records one interaction and returns the updated snapshot.
// The interaction count grows by exactly one per successful call. The
// directive is only used for logging; the machine never alters it.
func (m *Machine) ApplyInteraction(ctx context.Context, userID string, kind model.InteractionKind, cls model.EmotionClassification, dir model.ResponseDirective) (*model.RelationshipSnapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewInvalidInputError("user_id", "must not be empty")
	}
	if !kind.Valid() {
		return nil, model.NewInvalidInputError("interaction_kind", "unknown kind "+string(kind))
	}

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = m.baseBackoff
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, m.maxRetries), ctx)

	var out *model.RelationshipSnapshot
	op := func() error {
		cur, err := m.repo.Get(ctx, userID)
		if err != nil {
			return backoff.Permanent(err)
		}
		next := m.policy.Apply(*cur, kind, cls)
		next.UserID = userID
		saved, err := m.repo.CompareAndSwap(ctx, next, cur.InteractionCount)
		if err != nil {
			if model.IsStaleUpdateError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = saved
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metrics.RelationshipRetriesTotal.Inc()
		m.log.Debug().Err(err).Str("user_id", userID).Dur("wait", wait).Msg("Relationship update raced, retrying")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}

	metrics.RelationshipUpdatesTotal.WithLabelValues(string(kind)).Inc()
	m.log.Debug().
		Str("user_id", userID).
		Str("kind", string(kind)).
		Str("user_emotion", cls.Primary.String()).
		Str("ai_emotion", dir.AIEmotion.String()).
		Float64("intimacy", out.IntimacyLevel).
		Float64("trust", out.TrustLevel).
		Int64("interactions", out.InteractionCount).
		Msg("Relationship updated")
	return out, nil
}

// Status returns the current snapshot, the zero snapshot for unknown users.
func (m *Machine) Status(ctx context.Context, userID string) (*model.RelationshipSnapshot, error) {
	return m.repo.Get(ctx, userID)
}
