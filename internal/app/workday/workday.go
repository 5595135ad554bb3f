// Package workday derives a day's status and worked time from its ordered
// clock events. Both functions are pure: the caller supplies the event list
// and the current wall-clock time.
package workday

import (
	"time"

	"github.com/ponto-labs/ponto/internal/domain"
)

// ─── State Machine ──────────────────────────────────────────────────────────

// Status classifies a day from its ordered event list.
//
// Past days are classified structurally: an odd event count means a terminal
// marking is missing (Incomplete); an even, non-zero count means Finished.
// Today is classified from the last event's kind alone.
func Status(events []domain.ClockEvent, today bool) domain.WorkdayStatus {
	if len(events) == 0 {
		return domain.NotStarted
	}
	if !today {
		if len(events)%2 != 0 {
			return domain.Incomplete
		}
		return domain.Finished
	}
	switch events[len(events)-1].Kind {
	case domain.ShiftStart, domain.BreakEnd:
		return domain.Working
	case domain.BreakStart:
		return domain.OnBreak
	case domain.ShiftEnd:
		return domain.Finished
	default:
		return domain.NotStarted
	}
}

// NextKind returns the event kind a clock action appends in the given status.
// Transitions: NotStarted→ShiftStart, Working→BreakStart, OnBreak→BreakEnd.
// Ending the shift is a separate action (see domain.ShiftEnd); Finished is
// terminal until a correcting deletion reopens the day.
func NextKind(status domain.WorkdayStatus) (domain.EventKind, error) {
	switch status {
	case domain.NotStarted:
		return domain.ShiftStart, nil
	case domain.Working:
		return domain.BreakStart, nil
	case domain.OnBreak:
		return domain.BreakEnd, nil
	case domain.Finished:
		return "", domain.ErrDayFinished
	default:
		return "", domain.ErrBadTransition
	}
}

// CorrectionKind returns the compensating kind for an incomplete day, derived
// from the last event. After BreakStart only BreakEnd fits. After a
// start-like kind the user chooses between ShiftEnd and BreakStart;
// preferBreak selects the latter.
func CorrectionKind(last domain.EventKind, preferBreak bool) domain.EventKind {
	if last == domain.BreakStart {
		return domain.BreakEnd
	}
	if preferBreak {
		return domain.BreakStart
	}
	return domain.ShiftEnd
}

// ─── Work-Interval Accumulator ──────────────────────────────────────────────

// WorkedSeconds walks the day's events in order and totals the closed work
// intervals. A start-like kind opens an interval; a stop-like kind closes it.
// Consecutive start-like kinds overwrite the open start (last start wins),
// so malformed sequences never double-count.
//
// When includeOpen is set and an interval is still open after the scan, the
// span up to now is added — the caller passes includeOpen only for today
// while the status is Working. The result is whole seconds, truncated.
func WorkedSeconds(events []domain.ClockEvent, now time.Time, includeOpen bool) int64 {
	var total time.Duration
	var openStart time.Time
	open := false

	for _, ev := range events {
		switch {
		case ev.Kind.StartsInterval():
			openStart = ev.Timestamp
			open = true
		case ev.Kind.EndsInterval() && open:
			total += ev.Timestamp.Sub(openStart)
			open = false
		}
	}

	if includeOpen && open {
		total += now.Sub(openStart)
	}

	return int64(total.Seconds())
}

// HasOpenInterval reports whether the last interval-relevant event leaves a
// work interval open.
func HasOpenInterval(events []domain.ClockEvent) bool {
	open := false
	for _, ev := range events {
		if ev.Kind.StartsInterval() {
			open = true
		} else if ev.Kind.EndsInterval() {
			open = false
		}
	}
	return open
}
