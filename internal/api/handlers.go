package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/minhister1020/story-voice-generator/internal/config"
	"github.com/minhister1020/story-voice-generator/internal/models"
	"github.com/minhister1020/story-voice-generator/internal/services"
)

const (
	maxRequestBodyBytes = 1 << 20
	audioFilename       = "story-voice.mp3"
	audioCacheControl   = "private, max-age=3600"
)

const (
	msgInvalidJSON    = "Invalid JSON in request body"
	msgTextRequired   = "Text is required and must be a string"
	msgTextEmpty      = "Text cannot be empty"
	msgVoiceRequired  = "Voice ID is required and must be a string"
	msgConfiguration  = "Server configuration error"
	msgAuthFailed     = "Authentication failed with speech service"
	msgInvalidInput   = "Invalid request: please check your text and try again"
	msgRateLimited    = "Rate limit exceeded, please try again later"
	msgVoicesFailed   = "Failed to fetch voices"
	msgGenerateFailed = "Failed to generate speech"
	msgUnexpected     = "An unexpected error occurred"
)

type Handler struct {
	tts           services.TTSService
	apiKey        string
	credentialErr error
	maxTextLength int
}

// NewHandler validates the credential once; a bad credential is reported on
// every proxy request instead of failing startup.
func NewHandler(tts services.TTSService, cfg *config.Config) *Handler {
	apiKey, err := cfg.Credential()
	maxLen := cfg.MaxTextLength
	if maxLen <= 0 {
		maxLen = config.DefaultMaxTextLength
	}
	return &Handler{
		tts:           tts,
		apiKey:        apiKey,
		credentialErr: err,
		maxTextLength: maxLen,
	}
}

// ListVoices handles GET /api/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	if h.credentialErr != nil {
		logCredentialError(h.credentialErr, "Voices request rejected: provider credential not configured")
		respondError(w, http.StatusInternalServerError, msgConfiguration)
		return
	}

	voices, err := h.tts.ListVoices(r.Context(), h.apiKey)
	if err != nil {
		logProviderError(r, err, "Failed to fetch voices")

		switch services.KindOf(err) {
		case models.ErrorKindUpstreamAuth:
			respondError(w, http.StatusUnauthorized, msgAuthFailed)
		case models.ErrorKindUpstreamRateLimit:
			respondError(w, http.StatusTooManyRequests, msgRateLimited)
		default:
			respondError(w, http.StatusInternalServerError, msgVoicesFailed)
		}
		return
	}

	if voices == nil {
		voices = []models.Voice{}
	}

	respondJSON(w, http.StatusOK, models.VoicesResponse{
		Success: true,
		Voices:  voices,
	})
}

// generateVoiceBody keeps fields raw so a wrong JSON type is reported as a
// field error rather than a decode error.
type generateVoiceBody struct {
	Text    json.RawMessage `json:"text"`
	VoiceID json.RawMessage `json:"voice_id"`
}

// GenerateVoice handles POST /api/generate-voice
func (h *Handler) GenerateVoice(w http.ResponseWriter, r *http.Request) {
	req, status, msg := h.decodeGenerateRequest(w, r)
	if status != 0 {
		respondError(w, status, msg)
		return
	}

	if h.credentialErr != nil {
		logCredentialError(h.credentialErr, "Generate request rejected: provider credential not configured")
		respondError(w, http.StatusInternalServerError, msgConfiguration)
		return
	}

	audio, err := h.tts.Synthesize(r.Context(), h.apiKey, req.Text, req.VoiceID)
	if err != nil {
		logProviderError(r, err, "Failed to generate speech")
		status, msg := generateErrorResponse(err)
		respondError(w, status, msg)
		return
	}

	log.Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("voice_id", req.VoiceID).
		Int("text_len", utf8.RuneCountInString(req.Text)).
		Int("bytes", len(audio)).
		Msg("Speech generated")

	w.Header().Set("Content-Type", models.AudioMIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.Header().Set("Cache-Control", audioCacheControl)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", audioFilename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		log.Warn().Err(err).Msg("Failed to write audio response")
	}
}

// decodeGenerateRequest applies the validation steps in order and returns a
// non-zero status on the first failure.
func (h *Handler) decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (models.GenerateVoiceRequest, int, string) {
	var req models.GenerateVoiceRequest

	var body generateVoiceBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return req, http.StatusBadRequest, msgInvalidJSON
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, http.StatusBadRequest, msgInvalidJSON
	}

	text, ok := stringField(body.Text)
	if !ok {
		return req, http.StatusBadRequest, msgTextRequired
	}
	if strings.TrimSpace(text) == "" {
		return req, http.StatusBadRequest, msgTextEmpty
	}
	if utf8.RuneCountInString(text) > h.maxTextLength {
		return req, http.StatusBadRequest, fmt.Sprintf("Text exceeds maximum length of %d characters", h.maxTextLength)
	}

	voiceID, ok := stringField(body.VoiceID)
	if !ok {
		return req, http.StatusBadRequest, msgVoiceRequired
	}

	req.Text = text
	req.VoiceID = voiceID
	return req, 0, ""
}

// stringField reports whether raw holds a JSON string.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func generateErrorResponse(err error) (int, string) {
	switch services.KindOf(err) {
	case models.ErrorKindValidation:
		var pe *services.ProviderError
		if errors.As(err, &pe) {
			return http.StatusBadRequest, pe.Message
		}
		return http.StatusBadRequest, msgInvalidInput
	case models.ErrorKindUpstreamAuth:
		return http.StatusUnauthorized, msgAuthFailed
	case models.ErrorKindUpstreamInvalidInput:
		return http.StatusUnprocessableEntity, msgInvalidInput
	case models.ErrorKindUpstreamRateLimit:
		return http.StatusTooManyRequests, msgRateLimited
	case models.ErrorKindUpstreamOther, models.ErrorKindNetwork:
		return http.StatusInternalServerError, msgGenerateFailed
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

func logProviderError(r *http.Request, err error, msg string) {
	event := log.Error().
		Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("kind", string(services.KindOf(err)))

	var pe *services.ProviderError
	if errors.As(err, &pe) {
		event = event.Int("upstream_status", pe.StatusCode).Str("upstream_body", pe.Body)
	}
	event.Msg(msg)
}

func logCredentialError(err error, msg string) {
	log.Error().Err(err).Str("kind", string(services.KindOf(err))).Msg(msg)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Success: false, Error: message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
