package session

import "errors"

var (
	ErrNotFound          = errors.New("session not found")
	ErrExchangeInFlight  = errors.New("an exchange is already in flight")
	ErrSubmitting        = errors.New("a submission is being recorded")
	ErrSessionClosed     = errors.New("session is closed")
	ErrRationaleRequired = errors.New("a written rationale is required")
	ErrEmptyGrid         = errors.New("the proposed grid has no lines")
	ErrForbidden         = errors.New("role is not permitted")
	ErrGateClosed        = errors.New("account access is locked")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrAgentFailed       = errors.New("agent call failed")
	ErrNothingPending    = errors.New("no scenario is ready to save")
)
