package llm

import (
	"errors"
	"fmt"
)

// ErrConfigurationMissing is returned by NewGateway when no API key is configured.
var ErrConfigurationMissing = errors.New("llm: api key not configured")

// Kind classifies a failed completion call.
type Kind int

const (
	KindUnexpected Kind = iota
	KindTimeout
	KindConnection
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection_failure"
	case KindProvider:
		return "provider_error"
	default:
		return "unexpected"
	}
}

// Error is the only error type Gateway.Complete returns.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindUnexpected when err is not an *Error.
func KindOf(err error) Kind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return KindUnexpected
}

// FallbackMessage renders err as the assistant text shown in place of a reply.
func FallbackMessage(err error) string {
	var llmErr *Error
	if !errors.As(err, &llmErr) {
		return "An unexpected error occurred: " + err.Error()
	}
	switch llmErr.Kind {
	case KindTimeout:
		return "Request timeout. Please try again later."
	case KindConnection:
		return "Connection error. Please check your internet connection."
	case KindProvider:
		return "LLM API Error: " + llmErr.Message
	default:
		return "An unexpected error occurred: " + llmErr.Message
	}
}
