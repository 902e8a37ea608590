package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

type relationships struct {
	db  *sql.DB
	now func() time.Time
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSnapshot(ctx context.Context, q queryRower, userID string) (*model.RelationshipSnapshot, error) {
	s := model.ZeroSnapshot(userID)
	err := q.QueryRowContext(ctx, `
		SELECT intimacy_level, trust_level, interaction_count, last_updated
		FROM relationships WHERE user_id = $1`, userID).
		Scan(&s.IntimacyLevel, &s.TrustLevel, &s.InteractionCount, &s.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return &s, nil
	}
	if err != nil {
		return nil, err
	}
	s.LastUpdated = s.LastUpdated.UTC()
	return &s, nil
}

func (r *relationships) Get(ctx context.Context, userID string) (*model.RelationshipSnapshot, error) {
	s, err := getSnapshot(ctx, r.db, userID)
	if err != nil {
		return nil, store.Unavailable("postgres.Relationships.Get", err)
	}
	return s, nil
}

func (r *relationships) Upsert(ctx context.Context, s model.RelationshipSnapshot) (*model.RelationshipSnapshot, error) {
	store.NormalizeSnapshot(&s, r.now())
	// The WHERE clause turns a regressing counter into a no-op instead of an overwrite.
	return r.write(ctx, "postgres.Relationships.Upsert", s, `
		INSERT INTO relationships (user_id, intimacy_level, trust_level, interaction_count, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			intimacy_level    = EXCLUDED.intimacy_level,
			trust_level       = EXCLUDED.trust_level,
			interaction_count = EXCLUDED.interaction_count,
			last_updated      = EXCLUDED.last_updated
		WHERE EXCLUDED.interaction_count >= relationships.interaction_count`,
		s.UserID, s.IntimacyLevel, s.TrustLevel, s.InteractionCount, s.LastUpdated)
}

func (r *relationships) CompareAndSwap(ctx context.Context, s model.RelationshipSnapshot, expected int64) (*model.RelationshipSnapshot, error) {
	const op = "postgres.Relationships.CompareAndSwap"
	store.NormalizeSnapshot(&s, r.now())
	if expected == 0 {
		return r.write(ctx, op, s, `
			INSERT INTO relationships (user_id, intimacy_level, trust_level, interaction_count, last_updated)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				intimacy_level    = EXCLUDED.intimacy_level,
				trust_level       = EXCLUDED.trust_level,
				interaction_count = EXCLUDED.interaction_count,
				last_updated      = EXCLUDED.last_updated
			WHERE relationships.interaction_count = 0`,
			s.UserID, s.IntimacyLevel, s.TrustLevel, s.InteractionCount, s.LastUpdated)
	}
	return r.write(ctx, op, s, `
		UPDATE relationships
		SET intimacy_level = $1, trust_level = $2, interaction_count = $3, last_updated = $4
		WHERE user_id = $5 AND interaction_count = $6`,
		s.IntimacyLevel, s.TrustLevel, s.InteractionCount, s.LastUpdated, s.UserID, expected)
}

// write runs one conditional statement and reports a stale update when it
// changed no row.
func (r *relationships) write(ctx context.Context, op string, s model.RelationshipSnapshot, query string, args ...any) (*model.RelationshipSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, store.Unavailable(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, store.Unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, store.Unavailable(op, err)
	}
	if n == 0 {
		stored, err := getSnapshot(ctx, tx, s.UserID)
		if err != nil {
			return nil, store.Unavailable(op, err)
		}
		return nil, model.StaleUpdateError{UserID: s.UserID, Stored: stored.InteractionCount, Attempted: s.InteractionCount}
	}
	if err := tx.Commit(); err != nil {
		return nil, store.Unavailable(op, err)
	}
	return &s, nil
}
