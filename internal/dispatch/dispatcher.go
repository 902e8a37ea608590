package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/collaborator"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

// Dispatcher hands finished directives to the speech and render surfaces.
type Dispatcher struct {
	exec    *Executor
	speech  collaborator.Speech
	render  collaborator.Renderer
	timeout time.Duration
	log     zerolog.Logger
}

// NewDispatcher queues collaborator calls on exec. timeout bounds each call.
func NewDispatcher(exec *Executor, speech collaborator.Speech, render collaborator.Renderer, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		exec:    exec,
		speech:  speech,
		render:  render,
		timeout: timeout,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch enqueues speech then render for the directive and returns without
// waiting for either. Both jobs share the user's shard so playback order
// matches turn order. The jobs outlive ctx's cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, turnID int64, dir model.ResponseDirective) error {
	jobCtx := context.WithoutCancel(ctx)
	l := d.log.With().Str("user_id", userID).Int64("turn_id", turnID).Logger()

	speak := JobFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		audio, err := d.speech.Synthesize(ctx, dir.ResponseText, dir.AIEmotion)
		if err != nil {
			return fmt.Errorf("synthesize: %w", err)
		}
		l.Debug().Int64("audio_ms", audio.DurationMS).Str("format", audio.Format).Msg("Speech synthesized")
		return nil
	})
	play := JobFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		ack, err := d.render.Play(ctx, dir.AnimationHint)
		if err != nil {
			return fmt.Errorf("play %s: %w", dir.AnimationHint, err)
		}
		l.Debug().Int("frames", ack.Frames).Int64("duration_ms", ack.DurationMS).Msg("Animation played")
		return nil
	})

	if err := d.exec.Submit(jobCtx, userID, speak); err != nil {
		return err
	}
	return d.exec.Submit(jobCtx, userID, play)
}

// Flush waits until everything already dispatched for userID has run.
func (d *Dispatcher) Flush(ctx context.Context, userID string) error {
	return d.exec.Barrier(ctx, userID)
}

// Close stops the underlying executor after draining it.
func (d *Dispatcher) Close() error {
	return d.exec.Close()
}
