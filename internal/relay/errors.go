package relay

import "errors"

// Sentinel errors for session handling.
var (
	ErrMissingParams    = errors.New("missing required connection parameters")
	ErrUnauthorized     = errors.New("invalid token or owner mismatch")
	ErrMalformedMessage = errors.New("malformed message")
)

// PolicyViolationCode is the close code used when a handshake is refused.
const PolicyViolationCode = 1008

// Close reasons sent to refused connections.
const (
	ReasonMissingParams = "unauthorized: missing parameters"
	ReasonAuthFailed    = "unauthorized: invalid token or owner mismatch"
)
