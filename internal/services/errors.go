package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/minhister1020/story-voice-generator/internal/models"
)

// ProviderError is the single error type returned by the provider client.
// StatusCode is zero when no HTTP response was received.
type ProviderError struct {
	Kind       models.ErrorKind
	StatusCode int
	Message    string
	Body       string // raw provider response, for server-side logging only
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf reports the classified kind of err: a *ProviderError's Kind, the
// Kind() of any error in the chain that declares one, or ErrorKindUnexpected.
func KindOf(err error) models.ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var k interface{ Kind() models.ErrorKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return models.ErrorKindUnexpected
}

// StatusOf returns the upstream HTTP status carried by err, if any.
func StatusOf(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}

// classifyStatus maps a non-success provider status to an error kind.
func classifyStatus(status int) models.ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return models.ErrorKindUpstreamAuth
	case http.StatusUnprocessableEntity:
		return models.ErrorKindUpstreamInvalidInput
	case http.StatusTooManyRequests:
		return models.ErrorKindUpstreamRateLimit
	default:
		return models.ErrorKindUpstreamOther
	}
}

func validationError(message string) *ProviderError {
	return &ProviderError{Kind: models.ErrorKindValidation, Message: message}
}
