package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

type facts struct{ db *sql.DB }

const factColumns = `fact_id::text, user_id, category, fact_text, source_turn_id, extracted_at`

func (r *facts) List(ctx context.Context, userID string) ([]*model.PersonalFact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+factColumns+` FROM personal_facts
		WHERE user_id = $1 ORDER BY source_turn_id, seq`, userID)
	if err != nil {
		return nil, store.Unavailable("postgres.Facts.List", err)
	}
	return scanFacts(rows)
}

func (r *facts) Search(ctx context.Context, userID string, keywords []string, limit int) ([]*model.PersonalFact, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	clause, kwArgs := keywordClause([]string{"fact_text"}, keywords, 2)
	args := append([]any{userID}, kwArgs...)
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT `+factColumns+` FROM personal_facts
		WHERE user_id = $1 AND (%s)
		ORDER BY source_turn_id DESC, seq DESC LIMIT $%d`, clause, len(args)), args...)
	if err != nil {
		return nil, store.Unavailable("postgres.Facts.Search", err)
	}
	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]*model.PersonalFact, error) {
	defer func() { _ = rows.Close() }()
	out := []*model.PersonalFact{}
	for rows.Next() {
		var f model.PersonalFact
		if err := rows.Scan(&f.FactID, &f.UserID, &f.Category, &f.FactText, &f.SourceTurnID, &f.ExtractedAt); err != nil {
			return nil, store.Unavailable("postgres.scanFacts", err)
		}
		f.ExtractedAt = f.ExtractedAt.UTC()
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("postgres.scanFacts", err)
	}
	return out, nil
}
