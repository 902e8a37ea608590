package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

type turns struct {
	db  *sql.DB
	now func() time.Time
}

const turnColumns = `id, user_id, user_text, ai_text, user_emotion, user_intensity, ai_emotion, created_at`

func (r *turns) Record(ctx context.Context, rec *model.TurnRecord) (*model.ConversationTurn, error) {
	const op = "postgres.Turns.Record"
	now := r.now()
	t := rec.Turn
	store.NormalizeTurn(&t, now)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, store.Unavailable(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO conversation_turns (user_id, user_text, ai_text, user_emotion, user_intensity, ai_emotion, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		t.UserID, t.UserText, t.AIText, string(t.UserEmotion), t.UserIntensity, string(t.AIEmotion), t.CreatedAt,
	).Scan(&t.ID); err != nil {
		return nil, store.Unavailable(op, err)
	}

	if rec.Event != nil {
		e := *rec.Event
		e.UserID = t.UserID
		e.TurnID = t.ID
		store.NormalizeEvent(&e, now)
		if err := insertEvent(ctx, tx, &e); err != nil {
			return nil, store.Unavailable(op, err)
		}
		rec.Event = &e
	}

	for i := range rec.Facts {
		f := &rec.Facts[i]
		f.UserID = t.UserID
		f.SourceTurnID = t.ID
		store.NormalizeFact(f, now)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO personal_facts (fact_id, user_id, category, fact_text, source_turn_id, extracted_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			f.FactID, f.UserID, f.Category, f.FactText, f.SourceTurnID, f.ExtractedAt); err != nil {
			return nil, store.Unavailable(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, store.Unavailable(op, err)
	}
	rec.Turn = t
	return &t, nil
}

func (r *turns) History(ctx context.Context, userID string, limit int) ([]*model.ConversationTurn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+turnColumns+` FROM conversation_turns
		WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, store.Unavailable("postgres.Turns.History", err)
	}
	return scanTurns(rows)
}

// keywordClause renders (expr LIKE $n ...) OR-joined over keywords, numbering from next.
func keywordClause(columns []string, keywords []string, next int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, kw := range keywords {
		p := store.LikePattern(kw)
		var cols []string
		for _, c := range columns {
			cols = append(cols, fmt.Sprintf(`lower(%s) LIKE $%d ESCAPE '\'`, c, next))
			args = append(args, p)
			next++
		}
		clauses = append(clauses, "("+strings.Join(cols, " OR ")+")")
	}
	return strings.Join(clauses, " OR "), args
}

func (r *turns) Search(ctx context.Context, userID string, keywords []string, limit int) ([]*model.ConversationTurn, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	clause, kwArgs := keywordClause([]string{"user_text", "ai_text"}, keywords, 2)
	args := append([]any{userID}, kwArgs...)
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT `+turnColumns+` FROM conversation_turns
		WHERE user_id = $1 AND (%s)
		ORDER BY id DESC LIMIT $%d`, clause, len(args)), args...)
	if err != nil {
		return nil, store.Unavailable("postgres.Turns.Search", err)
	}
	return scanTurns(rows)
}

func (r *turns) Stats(ctx context.Context, userID string) (*model.EmotionStats, error) {
	const op = "postgres.Turns.Stats"
	out := &model.EmotionStats{
		UserEmotions: map[model.EmotionLabel]int{},
		AIEmotions:   map[model.EmotionLabel]int{},
	}
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(user_intensity), 0) FROM conversation_turns WHERE user_id = $1`,
		userID).Scan(&out.Turns, &out.AverageIntensity); err != nil {
		return nil, store.Unavailable(op, err)
	}
	if err := countBy(ctx, r.db, `SELECT user_emotion, COUNT(*) FROM conversation_turns WHERE user_id = $1 GROUP BY user_emotion`, userID, out.UserEmotions); err != nil {
		return nil, store.Unavailable(op, err)
	}
	if err := countBy(ctx, r.db, `SELECT ai_emotion, COUNT(*) FROM conversation_turns WHERE user_id = $1 GROUP BY ai_emotion`, userID, out.AIEmotions); err != nil {
		return nil, store.Unavailable(op, err)
	}
	return out, nil
}

func countBy(ctx context.Context, db *sql.DB, query, userID string, into map[model.EmotionLabel]int) error {
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return err
		}
		into[model.EmotionLabel(label)] = n
	}
	return rows.Err()
}

func scanTurns(rows *sql.Rows) ([]*model.ConversationTurn, error) {
	defer func() { _ = rows.Close() }()
	out := []*model.ConversationTurn{}
	for rows.Next() {
		var (
			t                  model.ConversationTurn
			userEmotion, aiEmo string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserText, &t.AIText, &userEmotion, &t.UserIntensity, &aiEmo, &t.CreatedAt); err != nil {
			return nil, store.Unavailable("postgres.scanTurns", err)
		}
		t.UserEmotion = model.EmotionLabel(userEmotion)
		t.AIEmotion = model.EmotionLabel(aiEmo)
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("postgres.scanTurns", err)
	}
	return out, nil
}
