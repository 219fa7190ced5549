package client

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/minhister1020/story-voice-generator/internal/models"
)

const (
	ErrMsgLoadVoices       = "Failed to load voices"
	ErrMsgConnect          = "Failed to connect to server"
	ErrMsgNetwork          = "Network error, please try again"
	ErrMsgUnexpectedFormat = "Unexpected response format from server"
	ErrMsgPrepareAudio     = "Failed to prepare audio for playback"
)

// State is a snapshot of the orchestrator.
type State struct {
	StoryText       string
	Voices          []models.Voice
	SelectedVoiceID string
	Audio           *AudioResource
	IsLoadingVoices bool
	IsGenerating    bool
	Error           string
}

// Orchestrator drives the voice picker / generate / playback flow against the
// proxy API. It owns at most one live AudioResource at a time.
type Orchestrator struct {
	api   API
	store ResourceStore

	mu      sync.Mutex
	state   State
	mounted bool
	closed  bool
	seq     uint64
}

func NewOrchestrator(api API, store ResourceStore) *Orchestrator {
	return &Orchestrator{
		api:   api,
		store: store,
		state: State{
			Voices:          []models.Voice{},
			IsLoadingVoices: true,
		},
	}
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.state
	s.Voices = append([]models.Voice(nil), o.state.Voices...)
	if o.state.Audio != nil {
		audio := *o.state.Audio
		s.Audio = &audio
	}
	return s
}

func (o *Orchestrator) SetText(text string) {
	o.mu.Lock()
	o.state.StoryText = text
	o.mu.Unlock()
}

func (o *Orchestrator) SelectVoice(voiceID string) {
	o.mu.Lock()
	o.state.SelectedVoiceID = voiceID
	o.mu.Unlock()
}

// Mount loads the voice list. Only the first call does anything; there is no
// automatic retry.
func (o *Orchestrator) Mount(ctx context.Context) {
	o.mu.Lock()
	if o.mounted || o.closed {
		o.mu.Unlock()
		return
	}
	o.mounted = true
	o.mu.Unlock()

	result, err := o.api.ListVoices(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.IsLoadingVoices = false
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to fetch voices")
		o.state.Error = ErrMsgConnect
	case !result.Success:
		log.Warn().Int("status", result.StatusCode).Str("error", result.Error).Msg("Voices request unsuccessful")
		o.state.Error = ErrMsgLoadVoices
	default:
		o.state.Voices = append([]models.Voice{}, result.Voices...)
	}
}

// Generate submits the current text and voice. It does nothing when the text
// is blank, no voice is selected, a generation is in flight, or the
// orchestrator is closed.
func (o *Orchestrator) Generate(ctx context.Context) {
	o.mu.Lock()
	if o.closed || o.state.IsGenerating ||
		strings.TrimSpace(o.state.StoryText) == "" || o.state.SelectedVoiceID == "" {
		o.mu.Unlock()
		return
	}

	previous := o.state.Audio
	o.state.Audio = nil
	o.state.Error = ""
	o.state.IsGenerating = true
	o.seq++
	seq := o.seq
	text, voiceID := o.state.StoryText, o.state.SelectedVoiceID
	o.mu.Unlock()

	o.release(previous)

	res, errMsg := o.generate(ctx, text, voiceID)

	o.mu.Lock()
	if o.closed || seq != o.seq {
		if o.closed {
			o.state.IsGenerating = false
		}
		o.mu.Unlock()
		// Superseded; nothing may keep a reference to this resource.
		o.release(res)
		return
	}
	o.state.IsGenerating = false
	o.state.Audio = res
	o.state.Error = errMsg
	o.mu.Unlock()
}

func (o *Orchestrator) generate(ctx context.Context, text, voiceID string) (*AudioResource, string) {
	resp, err := o.api.GenerateVoice(ctx, text, voiceID)
	if err != nil {
		log.Warn().Err(err).Msg("Generate request failed")
		return nil, ErrMsgNetwork
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorMessage(resp)
	}

	if !isAudioMPEG(resp.ContentType) {
		log.Warn().Str("content_type", resp.ContentType).Msg("Unexpected generate response content type")
		return nil, ErrMsgUnexpectedFormat
	}

	res, err := o.store.Create(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create audio resource")
		return nil, ErrMsgPrepareAudio
	}
	return res, ""
}

// Close releases the live audio resource. Later calls are no-ops.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	res := o.state.Audio
	o.state.Audio = nil
	o.mu.Unlock()

	if res == nil {
		return nil
	}
	return o.store.Release(res)
}

func (o *Orchestrator) release(res *AudioResource) {
	if res == nil {
		return
	}
	if err := o.store.Release(res); err != nil {
		log.Warn().Err(err).Str("resource_id", res.ID.String()).Msg("Failed to release audio resource")
	}
}

func errorMessage(resp *GenerateResponse) string {
	var envelope models.ErrorResponse
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return fmt.Sprintf("Request failed with status %d", resp.StatusCode)
}

func isAudioMPEG(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == models.AudioMIMEType
}

