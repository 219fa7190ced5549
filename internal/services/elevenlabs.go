package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/minhister1020/story-voice-generator/internal/models"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Wraps the voice catalog (GET /v1/voices) and synthesis
// (POST /v1/text-to-speech/{voice_id}) endpoints.
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
	elevenLabsOutputFormat = "mp3_44100_128"

	// Narration profile applied to every request.
	narrationStability       = 0.5
	narrationSimilarityBoost = 0.75

	// Cap on error bodies kept for logging.
	maxErrorBodyBytes = 64 * 1024
)

// ElevenLabsService talks to the ElevenLabs REST API.
type ElevenLabsService struct {
	baseURL string
	modelID string
	client  *http.Client
}

// Ensure ElevenLabsService implements TTSService at compile time.
var _ TTSService = (*ElevenLabsService)(nil)

// ElevenLabsOptions overrides service defaults. Zero values keep the default.
type ElevenLabsOptions struct {
	BaseURL string
	ModelID string
	Timeout time.Duration
}

// NewElevenLabsService creates a new ElevenLabs service.
func NewElevenLabsService(opts ElevenLabsOptions) *ElevenLabsService {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	modelID := opts.ModelID
	if modelID == "" {
		modelID = elevenLabsDefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &ElevenLabsService{
		baseURL: baseURL,
		modelID: modelID,
		client:  &http.Client{Timeout: timeout},
	}
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type elevenLabsVoice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type elevenLabsVoicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ListVoices fetches the voice catalog and reduces each record to models.Voice.
func (s *ElevenLabsService) ListVoices(ctx context.Context, apiKey string) ([]models.Voice, error) {
	endpoint := s.baseURL + "/v1/voices"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Kind: models.ErrorKindUnexpected, Message: "failed to create ElevenLabs voices request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("xi-api-key", apiKey)

	log.Debug().Str("endpoint", endpoint).Msg("Fetching ElevenLabs voices")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: models.ErrorKindNetwork, Message: "ElevenLabs voices request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp, "ElevenLabs voices API error")
	}

	var payload elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{
			Kind:       models.ErrorKindUpstreamOther,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode ElevenLabs voices response",
			Err:        err,
		}
	}

	voices := make([]models.Voice, 0, len(payload.Voices))
	for _, v := range payload.Voices {
		voices = append(voices, models.Voice{
			VoiceID:     v.VoiceID,
			Name:        v.Name,
			Description: v.Description,
			Category:    v.Category,
		})
	}

	log.Debug().Int("voice_count", len(voices)).Msg("ElevenLabs voices retrieved")

	return voices, nil
}

// Synthesize converts text to speech. Inputs are checked before any request
// is made; failures there carry ErrorKindValidation and no status.
func (s *ElevenLabsService) Synthesize(ctx context.Context, apiKey, text, voiceID string) ([]byte, error) {
	if apiKey == "" {
		return nil, validationError("API key is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, validationError("Text cannot be empty")
	}
	if voiceID == "" {
		return nil, validationError("Voice ID is required")
	}

	jsonData, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       narrationStability,
			SimilarityBoost: narrationSimilarityBoost,
		},
	})
	if err != nil {
		return nil, &ProviderError{Kind: models.ErrorKindUnexpected, Message: "failed to marshal ElevenLabs request", Err: err}
	}

	// POST /v1/text-to-speech/{voice_id}?output_format=mp3_44100_128
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		s.baseURL, url.PathEscape(voiceID), elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &ProviderError{Kind: models.ErrorKindUnexpected, Message: "failed to create ElevenLabs request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", models.AudioMIMEType)
	req.Header.Set("xi-api-key", apiKey)

	log.Debug().
		Str("voice_id", voiceID).
		Str("model", s.modelID).
		Int("text_len", utf8.RuneCountInString(text)).
		Msg("Generating ElevenLabs speech")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: models.ErrorKindNetwork, Message: "ElevenLabs request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp, "ElevenLabs text-to-speech API error")
	}

	// The response body IS the audio file
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Kind: models.ErrorKindNetwork, Message: "failed to read ElevenLabs audio response", Err: err}
	}

	log.Debug().Int("bytes", len(audioData)).Msg("ElevenLabs speech generated")

	return audioData, nil
}

func upstreamError(resp *http.Response, message string) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &ProviderError{
		Kind:       classifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    message,
		Body:       string(body),
	}
}
