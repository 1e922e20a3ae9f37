package chat

import (
	"errors"
	"fmt"

	"github.com/devmud/devmud-site/internal/domain"
)

var (
	// ErrMalformedResponse is returned by a Completer when the service answered
	// with a success status but no extractable text.
	ErrMalformedResponse = errors.New("Invalid response format from AI") //nolint:staticcheck // shown to visitors verbatim

	// ErrUnknownQuickAction is returned by QuickAction for kinds outside the fixed set.
	ErrUnknownQuickAction = errors.New("unknown quick action")
)

// ConfigurationError reports that the completion credential is not configured.
// It is detected before any network call.
type ConfigurationError struct {
	Variable string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("completion credential %s is not set", e.Variable)
}

// TransportError reports a failed request or a non-success status from the
// completion service. Message is what the service said, surfaced verbatim.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "Unknown error"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classify maps a Completer error onto the turn outcome recorded for audit.
func classify(err error) domain.Outcome {
	var cfgErr *ConfigurationError
	switch {
	case err == nil:
		return domain.OutcomeOK
	case errors.As(err, &cfgErr):
		return domain.OutcomeConfigurationError
	case errors.Is(err, ErrMalformedResponse):
		return domain.OutcomeMalformedResponse
	default:
		return domain.OutcomeTransportError
	}
}
