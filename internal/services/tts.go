package services

import (
	"context"

	"github.com/minhister1020/story-voice-generator/internal/models"
)

// ---------------------------------------------------------------------------
// TTSService: the two provider calls the proxy endpoints depend on.
// The credential is passed per call so the provider client holds no secret
// of its own; the handlers own it.
// ---------------------------------------------------------------------------

type TTSService interface {
	// ListVoices returns the provider's voice catalog in provider order.
	ListVoices(ctx context.Context, apiKey string) ([]models.Voice, error)

	// Synthesize converts text to MP3 audio with a fixed narration profile.
	// The returned bytes are exactly what the provider sent.
	Synthesize(ctx context.Context, apiKey, text, voiceID string) ([]byte, error)
}
