package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrNeedsConfirmation  = errors.New("needs confirmation")
	ErrInvariantViolation = errors.New("footprint invariant violation")
	ErrSessionTerminal    = errors.New("session is in a terminal status")
)
