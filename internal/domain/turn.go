package domain

import (
	"time"
)

// Outcome classifies how a chat turn resolved.
type Outcome string

const (
	// OutcomeOK means the completion service returned usable text.
	OutcomeOK Outcome = "ok"
	// OutcomeConfigurationError means the credential was missing and no request was made.
	OutcomeConfigurationError Outcome = "configuration_error"
	// OutcomeTransportError means the request failed or returned a non-success status.
	OutcomeTransportError Outcome = "transport_error"
	// OutcomeMalformedResponse means a success status came back without extractable text.
	OutcomeMalformedResponse Outcome = "malformed_response"
)

// Turn is the audit record of one submitted question and the reply the widget showed.
// Turns are written for operators only; they are never loaded back into a transcript.
type Turn struct {
	ID          string
	VisitorID   string
	SessionID   string
	UserMessage string
	Reply       string
	Outcome     Outcome
	Latency     time.Duration
	CreatedAt   time.Time
}
