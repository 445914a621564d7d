package scenario

import "errors"

// Sentinel errors for scenario generation and verification.
var (
	ErrInvalidPlan = errors.New("invalid scenario plan")
	ErrMismatch    = errors.New("event log does not match the recording")
)
