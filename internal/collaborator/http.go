package collaborator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/model"
)

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
}

// statusError classifies a non-2xx reply. Client errors will not succeed on
// retry and are marked permanent for the dispatcher.
func statusError(op string, resp *resty.Response) error {
	err := fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), resp.String())
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 && resp.StatusCode() != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

// HTTPSpeech calls a speech synthesis service.
type HTTPSpeech struct {
	client *resty.Client
}

// NewHTTPSpeech creates a speech client for the service at baseURL.
func NewHTTPSpeech(baseURL string, timeout time.Duration) *HTTPSpeech {
	return &HTTPSpeech{client: newRestyClient(baseURL, timeout)}
}

type synthesizeRequest struct {
	Text    string             `json:"text"`
	Emotion model.EmotionLabel `json:"emotion"`
}

// Synthesize posts the text and returns the decoded audio.
func (s *HTTPSpeech) Synthesize(ctx context.Context, text string, emotion model.EmotionLabel) (Audio, error) {
	var out Audio
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&synthesizeRequest{Text: text, Emotion: emotion}).
		SetResult(&out).
		Post("/v1/synthesize")
	if err != nil {
		return Audio{}, fmt.Errorf("speech request: %w", err)
	}
	if resp.IsError() {
		return Audio{}, statusError("speech", resp)
	}
	return out, nil
}

// HTTPRenderer calls an avatar render service.
type HTTPRenderer struct {
	client *resty.Client
}

// NewHTTPRenderer creates a render client for the service at baseURL.
func NewHTTPRenderer(baseURL string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{client: newRestyClient(baseURL, timeout)}
}

type playRequest struct {
	Hint string `json:"animation"`
}

// Play asks the renderer to play hint and returns its acknowledgement.
func (r *HTTPRenderer) Play(ctx context.Context, hint string) (Ack, error) {
	var out Ack
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(&playRequest{Hint: hint}).
		SetResult(&out).
		Post("/v1/play")
	if err != nil {
		return Ack{}, fmt.Errorf("render request: %w", err)
	}
	if resp.IsError() {
		return Ack{}, statusError("render", resp)
	}
	return out, nil
}
