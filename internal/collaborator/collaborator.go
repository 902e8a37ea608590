// Package collaborator defines the passive speech and render surfaces that
// consume a response directive, with HTTP and log-only implementations.
package collaborator

import (
	"context"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

// Audio is synthesized speech. The payload is opaque to the core.
type Audio struct {
	Data       []byte `json:"audio"`
	Format     string `json:"format"`
	DurationMS int64  `json:"durationMs"`
}

// Ack is the renderer's receipt for a played animation.
type Ack struct {
	Frames     int   `json:"frames"`
	DurationMS int64 `json:"durationMs"`
}

// Speech turns response text into audio voiced with the given emotion.
type Speech interface {
	Synthesize(ctx context.Context, text string, emotion model.EmotionLabel) (Audio, error)
}

// Renderer plays an animation hint on the avatar.
type Renderer interface {
	Play(ctx context.Context, hint string) (Ack, error)
}
