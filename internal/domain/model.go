// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Clock Events ───────────────────────────────────────────────────────────

// EventKind is the type of a clock marking.
type EventKind string

const (
	ShiftStart EventKind = "SHIFT_START"
	BreakStart EventKind = "BREAK_START"
	BreakEnd   EventKind = "BREAK_END"
	ShiftEnd   EventKind = "SHIFT_END"
)

// StartsInterval reports whether this kind opens a work interval.
func (k EventKind) StartsInterval() bool {
	return k == ShiftStart || k == BreakEnd
}

// EndsInterval reports whether this kind closes a work interval.
func (k EventKind) EndsInterval() bool {
	return k == BreakStart || k == ShiftEnd
}

// Valid reports whether k is one of the four known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case ShiftStart, BreakStart, BreakEnd, ShiftEnd:
		return true
	}
	return false
}

// ClockEvent is a timestamped marking of shift or break boundaries.
// Immutable once created, except for manual timestamp correction.
type ClockEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
}

// ─── Tickets ────────────────────────────────────────────────────────────────

// Ticket is a unit of tracked work with an accumulated time total.
// ActiveSince non-nil means the ticket is currently accruing; at most one
// ticket may be active at a time (enforced by the timer engine, not here).
type Ticket struct {
	ID                 string     `json:"id"`
	Identifier         string     `json:"identifier"`
	WorkDate           string     `json:"work_date"` // YYYY-MM-DD
	AccumulatedSeconds int64      `json:"accumulated_seconds"`
	ActiveSince        *time.Time `json:"active_since,omitempty"`
}

// ─── Workday Status ─────────────────────────────────────────────────────────

// WorkdayStatus is the derived classification of a day's progress.
// It is always recomputed from the event list, never persisted.
type WorkdayStatus string

const (
	NotStarted WorkdayStatus = "NOT_STARTED"
	Working    WorkdayStatus = "WORKING"
	OnBreak    WorkdayStatus = "ON_BREAK"
	Finished   WorkdayStatus = "FINISHED"
	Incomplete WorkdayStatus = "INCOMPLETE"
)

// Accruing reports whether the live accrual scheduler should run in this status.
func (s WorkdayStatus) Accruing() bool {
	return s == Working || s == OnBreak
}

// ─── Aggregation ────────────────────────────────────────────────────────────

// DailyBucket is one calendar day's totals within a reporting window.
type DailyBucket struct {
	DateKey       string `json:"date"` // YYYY-MM-DD, local calendar day
	WorkedSeconds int64  `json:"worked_seconds"`
	TicketSeconds int64  `json:"ticket_seconds"`
}

// GoalRatio is the productivity threshold (ticket time / worked time)
// at which the goal is considered met, in percent.
const GoalRatio = 87.5

// ─── Calendar Helpers ───────────────────────────────────────────────────────

// DateKey formats t as the local calendar day key (YYYY-MM-DD).
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether two times fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay returns 00:00:00 of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
