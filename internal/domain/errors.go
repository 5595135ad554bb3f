package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Precondition errors — rejected before any store call
	ErrNotWorking    = errors.New("workday must be in WORKING status")
	ErrDayFinished   = errors.New("workday already finished")
	ErrNotToday      = errors.New("clock actions only apply to the current day")
	ErrBadTransition = errors.New("clock event kind not valid in current status")

	// Validation errors — rejected locally, original value restored
	ErrNegativeTime           = errors.New("time value must be zero or positive")
	ErrTicketOverAllocation   = errors.New("ticket time exceeds total worked time for the day")
	ErrDuplicateTicket        = errors.New("ticket identifier already exists for this day")
	ErrCorrectionNotAfterLast = errors.New("correction time must be after the last event")
	ErrInvalidKind            = errors.New("unknown clock event kind")

	// Lookup errors
	ErrEventNotFound  = errors.New("clock event not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrNoEvents       = errors.New("no clock events for this day")
)
