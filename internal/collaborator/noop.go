package collaborator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

// LogSpeech is a Speech that only logs what it would have said.
type LogSpeech struct {
	Log zerolog.Logger
}

func (s LogSpeech) Synthesize(_ context.Context, text string, emotion model.EmotionLabel) (Audio, error) {
	s.Log.Debug().Str("emotion", emotion.String()).Str("text", text).Msg("speech skipped: no service configured")
	return Audio{}, nil
}

// LogRenderer is a Renderer that only logs the requested animation.
type LogRenderer struct {
	Log zerolog.Logger
}

func (r LogRenderer) Play(_ context.Context, hint string) (Ack, error) {
	r.Log.Debug().Str("animation", hint).Msg("render skipped: no service configured")
	return Ack{}, nil
}
