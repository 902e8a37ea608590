package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

type emotions struct {
	db  *sql.DB
	now func() time.Time
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, x execer, e *model.EmotionalEvent) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO emotional_events (event_id, user_id, emotion, intensity, trigger_text, reaction, reaction_strength, turn_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.UserID, string(e.Emotion), e.Intensity, e.Trigger, string(e.Reaction), e.ReactionStrength, e.TurnID, formatTime(e.CreatedAt))
	return err
}

func (r *emotions) Append(ctx context.Context, e *model.EmotionalEvent) (*model.EmotionalEvent, error) {
	out := *e
	store.NormalizeEvent(&out, r.now())
	if err := insertEvent(ctx, r.db, &out); err != nil {
		return nil, store.Unavailable("sqlite.Emotions.Append", err)
	}
	return &out, nil
}

func (r *emotions) Recent(ctx context.Context, userID string, limit int) ([]*model.EmotionalEvent, error) {
	const op = "sqlite.Emotions.Recent"
	// rowid breaks ties between events written within the same instant.
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, user_id, emotion, intensity, trigger_text, reaction, reaction_strength, turn_id, created_at
		FROM emotional_events WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, store.Unavailable(op, err)
	}
	defer func() { _ = rows.Close() }()

	out := []*model.EmotionalEvent{}
	for rows.Next() {
		var (
			e                    model.EmotionalEvent
			emotion, reaction, c string
		)
		if err := rows.Scan(&e.EventID, &e.UserID, &emotion, &e.Intensity, &e.Trigger, &reaction, &e.ReactionStrength, &e.TurnID, &c); err != nil {
			return nil, store.Unavailable(op, err)
		}
		e.Emotion = model.EmotionLabel(emotion)
		e.Reaction = model.EmotionLabel(reaction)
		e.CreatedAt = parseTime(c)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(op, err)
	}
	return out, nil
}

func (r *emotions) Summary(ctx context.Context, userID string) (*model.EventSummary, error) {
	const op = "sqlite.Emotions.Summary"
	out := &model.EventSummary{Counts: map[model.EmotionLabel]int{}}
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(intensity), 0) FROM emotional_events WHERE user_id = ?`,
		userID).Scan(&out.Total, &out.AverageIntensity); err != nil {
		return nil, store.Unavailable(op, err)
	}
	if err := countBy(ctx, r.db, `SELECT emotion, COUNT(*) FROM emotional_events WHERE user_id = ? GROUP BY emotion`, userID, out.Counts); err != nil {
		return nil, store.Unavailable(op, err)
	}
	return out, nil
}
