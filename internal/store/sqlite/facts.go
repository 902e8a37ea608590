package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

type facts struct{ db *sql.DB }

const factColumns = `fact_id, user_id, category, fact_text, source_turn_id, extracted_at`

func (r *facts) List(ctx context.Context, userID string) ([]*model.PersonalFact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+factColumns+` FROM personal_facts
		WHERE user_id = ? ORDER BY source_turn_id, rowid`, userID)
	if err != nil {
		return nil, store.Unavailable("sqlite.Facts.List", err)
	}
	return scanFacts(rows)
}

func (r *facts) Search(ctx context.Context, userID string, keywords []string, limit int) ([]*model.PersonalFact, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(keywords))
	args := []any{userID}
	for _, kw := range keywords {
		clauses = append(clauses, `lower(fact_text) LIKE ? ESCAPE '\'`)
		args = append(args, store.LikePattern(kw))
	}
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+factColumns+` FROM personal_facts
		WHERE user_id = ? AND (`+strings.Join(clauses, " OR ")+`)
		ORDER BY source_turn_id DESC, rowid DESC LIMIT ?`, args...)
	if err != nil {
		return nil, store.Unavailable("sqlite.Facts.Search", err)
	}
	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]*model.PersonalFact, error) {
	defer func() { _ = rows.Close() }()
	out := []*model.PersonalFact{}
	for rows.Next() {
		var (
			f model.PersonalFact
			c string
		)
		if err := rows.Scan(&f.FactID, &f.UserID, &f.Category, &f.FactText, &f.SourceTurnID, &c); err != nil {
			return nil, store.Unavailable("sqlite.scanFacts", err)
		}
		f.ExtractedAt = parseTime(c)
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("sqlite.scanFacts", err)
	}
	return out, nil
}
