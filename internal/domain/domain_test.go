package domain

import (
	"testing"
	"time"
)

// ─── EventKind Tests ────────────────────────────────────────────────────────

func TestEventKind_Intervals(t *testing.T) {
	tests := []struct {
		kind   EventKind
		starts bool
		ends   bool
	}{
		{ShiftStart, true, false},
		{BreakEnd, true, false},
		{BreakStart, false, true},
		{ShiftEnd, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.StartsInterval(); got != tt.starts {
				t.Errorf("StartsInterval() = %v, want %v", got, tt.starts)
			}
			if got := tt.kind.EndsInterval(); got != tt.ends {
				t.Errorf("EndsInterval() = %v, want %v", got, tt.ends)
			}
		})
	}
}

func TestEventKind_Valid(t *testing.T) {
	for _, k := range []EventKind{ShiftStart, BreakStart, BreakEnd, ShiftEnd} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if EventKind("LUNCH").Valid() {
		t.Error("unknown kind should not be valid")
	}
}

func TestWorkdayStatus_Accruing(t *testing.T) {
	if !Working.Accruing() || !OnBreak.Accruing() {
		t.Error("Working and OnBreak should accrue")
	}
	for _, s := range []WorkdayStatus{NotStarted, Finished, Incomplete} {
		if s.Accruing() {
			t.Errorf("%s should not accrue", s)
		}
	}
}

// ─── Formatting Tests ───────────────────────────────────────────────────────

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{36000, "10:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatClock(tt.seconds); got != tt.want {
				t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestFormatSignedHoursMinutes(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "+00:00"},
		{8*3600 + 30*60, "+08:30"},
		{-(2*3600 + 15*60), "-02:15"},
		{-60, "-00:01"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatSignedHoursMinutes(tt.seconds); got != tt.want {
				t.Errorf("FormatSignedHoursMinutes(%d) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(600); got != "10 min" {
		t.Errorf("FormatMinutes(600) = %q, want \"10 min\"", got)
	}
	if got := FormatMinutes(59); got != "0 min" {
		t.Errorf("FormatMinutes(59) = %q, want \"0 min\"", got)
	}
}

func TestFormatExtra(t *testing.T) {
	if got := FormatExtra(2*3600 + 30*60); got != "2h30m" {
		t.Errorf("FormatExtra = %q, want \"2h30m\"", got)
	}
	if got := FormatExtra(5 * 60); got != "0h05m" {
		t.Errorf("FormatExtra = %q, want \"0h05m\"", got)
	}
}

// ─── Calendar Tests ─────────────────────────────────────────────────────────

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local)
	b := time.Date(2026, 3, 14, 23, 59, 59, 0, time.Local)
	c := time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)
	if !SameDay(a, b) {
		t.Error("same calendar day should compare equal")
	}
	if SameDay(b, c) {
		t.Error("adjacent days should not compare equal")
	}
}

func TestDateKey(t *testing.T) {
	ts := time.Date(2026, 1, 5, 17, 30, 0, 0, time.Local)
	if got := DateKey(ts); got != "2026-01-05" {
		t.Errorf("DateKey = %q, want \"2026-01-05\"", got)
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestSentinelErrors(t *testing.T) {
	errs := []struct {
		name string
		err  error
	}{
		{"ErrNotWorking", ErrNotWorking},
		{"ErrBadTransition", ErrBadTransition},
		{"ErrTicketOverAllocation", ErrTicketOverAllocation},
		{"ErrDuplicateTicket", ErrDuplicateTicket},
		{"ErrCorrectionNotAfterLast", ErrCorrectionNotAfterLast},
		{"ErrTicketNotFound", ErrTicketNotFound},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s is nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s.Error() is empty", tt.name)
			}
		})
	}
}
