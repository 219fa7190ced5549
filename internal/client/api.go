package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minhister1020/story-voice-generator/internal/models"
)

// maxAudioBytes bounds how much of a generate response is read into memory.
// Larger responses are rejected, never truncated.
var maxAudioBytes = 50 * 1024 * 1024

// API is the orchestrator's view of the two proxy endpoints.
type API interface {
	ListVoices(ctx context.Context) (*VoicesResult, error)
	GenerateVoice(ctx context.Context, text, voiceID string) (*GenerateResponse, error)
}

// VoicesResult is the decoded voices envelope plus the HTTP status.
type VoicesResult struct {
	StatusCode int
	Success    bool
	Voices     []models.Voice
	Error      string
}

// GenerateResponse carries the raw generate response. The orchestrator
// decides what the status and content type mean.
type GenerateResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// HTTPClient calls a running proxy server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ API = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ListVoices handles GET /api/voices. A non-JSON body is reported as an error.
func (c *HTTPClient) ListVoices(ctx context.Context) (*VoicesResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool           `json:"success"`
		Voices  []models.Voice `json:"voices"`
		Error   string         `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode voices response (status %d): %w", resp.StatusCode, err)
	}

	return &VoicesResult{
		StatusCode: resp.StatusCode,
		Success:    envelope.Success && resp.StatusCode == http.StatusOK,
		Voices:     envelope.Voices,
		Error:      envelope.Error,
	}, nil
}

// GenerateVoice handles POST /api/generate-voice.
func (c *HTTPClient) GenerateVoice(ctx context.Context, text, voiceID string) (*GenerateResponse, error) {
	payload, err := json.Marshal(models.GenerateVoiceRequest{Text: text, VoiceID: voiceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate-voice", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxAudioBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read generate response: %w", err)
	}
	if len(body) > maxAudioBytes {
		return nil, fmt.Errorf("generate response exceeds %d bytes", maxAudioBytes)
	}

	return &GenerateResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
