package models

// ErrorKind classifies every failure the system can surface.
type ErrorKind string

const (
	ErrorKindValidation           ErrorKind = "validation"
	ErrorKindConfiguration        ErrorKind = "configuration"
	ErrorKindUpstreamAuth         ErrorKind = "upstream-auth"
	ErrorKindUpstreamInvalidInput ErrorKind = "upstream-invalid-input"
	ErrorKindUpstreamRateLimit    ErrorKind = "upstream-rate-limit"
	ErrorKindUpstreamOther        ErrorKind = "upstream-other"
	ErrorKindNetwork              ErrorKind = "network"
	ErrorKindUnexpected           ErrorKind = "unexpected"
)

// Models

// Voice is the reduced provider voice record handed to the browser.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Request/Response types

type GenerateVoiceRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

type VoicesResponse struct {
	Success bool    `json:"success"`
	Voices  []Voice `json:"voices"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// AudioMIMEType is the content type of every generated payload.
const AudioMIMEType = "audio/mpeg"
