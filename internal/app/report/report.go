// Package report buckets clock events and ticket totals by local calendar
// day across a date range and derives the expected-vs-actual balance and
// productivity figures for the monthly and weekly views.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/ponto-labs/ponto/internal/app/workday"
	"github.com/ponto-labs/ponto/internal/domain"
)

// Options carries the user's contractual parameters.
type Options struct {
	ContractualDaySeconds int64           // expected seconds per business day
	LegalExtraSeconds     int64           // overtime allowed beyond contractual before the legal limit trips
	Holidays              map[string]bool // YYYY-MM-DD dates excluded from expected hours
	Now                   time.Time
}

// DefaultOptions returns an 8-hour contractual day with the 2-hour daily
// overtime allowance.
func DefaultOptions(now time.Time) Options {
	return Options{
		ContractualDaySeconds: 8 * 3600,
		LegalExtraSeconds:     2 * 3600,
		Holidays:              map[string]bool{},
		Now:                   now,
	}
}

// Report is the aggregated view over one window.
type Report struct {
	Buckets             []domain.DailyBucket `json:"buckets"`
	TotalWorkedSeconds  int64                `json:"total_worked_seconds"`
	TotalTicketSeconds  int64                `json:"total_ticket_seconds"`
	ExpectedSeconds     int64                `json:"expected_seconds"`
	BalanceSeconds      int64                `json:"balance_seconds"`
	Balance             string               `json:"balance"` // ±HH:MM
	ProductivityPercent float64              `json:"productivity_percent"`
	BarPercent          float64              `json:"bar_percent"` // clamped at 100 for rendering
	GoalMet             bool                 `json:"goal_met"`
	RecentTickets       []domain.Ticket      `json:"recent_tickets"`
}

// Build aggregates the window [from, to] (inclusive, local calendar days).
//
// The accumulator runs independently per day so an open interval never
// leaks across a day boundary; only the current day may have an open
// trailing interval, closed against Now. Expected hours count weekdays that
// are not holidays, capped at today for a still-running window, and every
// day worked beyond the contractual allotment raises the expectation by the
// overshoot rather than counting it as pure surplus.
func Build(events []domain.ClockEvent, tickets []domain.Ticket, from, to time.Time, opts Options) Report {
	workedByDay := DailyWorkedSeconds(events, opts.Now)
	ticketsByDay := dailyTicketSeconds(tickets)

	var r Report
	for _, secs := range workedByDay {
		r.TotalWorkedSeconds += secs
	}
	for _, secs := range ticketsByDay {
		r.TotalTicketSeconds += secs
	}

	// One bucket per calendar day in the window, zero-filled.
	for d := domain.StartOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		key := domain.DateKey(d)
		r.Buckets = append(r.Buckets, domain.DailyBucket{
			DateKey:       key,
			WorkedSeconds: workedByDay[key],
			TicketSeconds: ticketsByDay[key],
		})
	}

	// Expected hours: business days up to today for a window still in
	// progress, the whole window otherwise.
	limit := domain.StartOfDay(to)
	if today := domain.StartOfDay(opts.Now); today.Before(limit) {
		limit = today
	}
	for d := domain.StartOfDay(from); !d.After(limit); d = d.AddDate(0, 0, 1) {
		key := domain.DateKey(d)
		if isBusinessDay(d, opts.Holidays) {
			r.ExpectedSeconds += opts.ContractualDaySeconds
		}
		if over := workedByDay[key] - opts.ContractualDaySeconds; over > 0 {
			r.ExpectedSeconds += over
		}
	}

	r.BalanceSeconds = r.TotalWorkedSeconds - r.ExpectedSeconds
	r.Balance = domain.FormatSignedHoursMinutes(r.BalanceSeconds)

	if r.TotalWorkedSeconds > 0 {
		r.ProductivityPercent = float64(r.TotalTicketSeconds) / float64(r.TotalWorkedSeconds) * 100
	}
	r.BarPercent = r.ProductivityPercent
	if r.BarPercent > 100 {
		r.BarPercent = 100
	}
	r.GoalMet = r.ProductivityPercent >= domain.GoalRatio

	r.RecentTickets = recentTickets(tickets)
	return r
}

// DailyWorkedSeconds runs the work-interval accumulator independently per
// calendar day. Only today's bucket may close an open interval against now.
func DailyWorkedSeconds(events []domain.ClockEvent, now time.Time) map[string]int64 {
	byDay := make(map[string][]domain.ClockEvent)
	for _, ev := range events {
		key := domain.DateKey(ev.Timestamp)
		byDay[key] = append(byDay[key], ev)
	}

	today := domain.DateKey(now)
	out := make(map[string]int64, len(byDay))
	for key, dayEvents := range byDay {
		sort.Slice(dayEvents, func(i, j int) bool {
			return dayEvents[i].Timestamp.Before(dayEvents[j].Timestamp)
		})
		out[key] = workday.WorkedSeconds(dayEvents, now, key == today)
	}
	return out
}

func dailyTicketSeconds(tickets []domain.Ticket) map[string]int64 {
	out := make(map[string]int64)
	for _, t := range tickets {
		out[t.WorkDate] += t.AccumulatedSeconds
	}
	return out
}

func isBusinessDay(d time.Time, holidays map[string]bool) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !holidays[domain.DateKey(d)]
}

// recentTickets orders tickets most recent work date first for the
// "recent tickets" table, capped at five rows.
func recentTickets(tickets []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(tickets))
	copy(out, tickets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WorkDate > out[j].WorkDate
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// ─── Windows ────────────────────────────────────────────────────────────────

// MonthRange resolves a YYYY-MM string to the first and last day of that
// month in loc.
func MonthRange(month string, loc *time.Location) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return first, last, nil
}

// WeekWindow returns the trailing 7-day window ending today.
func WeekWindow(now time.Time) (time.Time, time.Time) {
	end := domain.StartOfDay(now)
	return end.AddDate(0, 0, -6), end
}

// ─── Weekly Chart Feed ──────────────────────────────────────────────────────

// WeeklySummary is the data behind the dashboard's trailing-7-day chart.
// The last slot is today; the live view substitutes its running totals
// there on every tick.
type WeeklySummary struct {
	Labels      []string  `json:"labels"`
	WorkHours   []float64 `json:"work_hours"`
	TicketHours []float64 `json:"ticket_hours"`
	GoalHours   []float64 `json:"goal_hours"` // work_hours × 87.5%
}

// Weekly builds the trailing-7-day summary ending today.
func Weekly(events []domain.ClockEvent, tickets []domain.Ticket, opts Options) WeeklySummary {
	workedByDay := DailyWorkedSeconds(events, opts.Now)
	ticketsByDay := dailyTicketSeconds(tickets)

	from, to := WeekWindow(opts.Now)
	var w WeeklySummary
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := domain.DateKey(d)
		work := float64(workedByDay[key]) / 3600
		w.Labels = append(w.Labels, d.Format("Mon"))
		w.WorkHours = append(w.WorkHours, work)
		w.TicketHours = append(w.TicketHours, float64(ticketsByDay[key])/3600)
		w.GoalHours = append(w.GoalHours, work*domain.GoalRatio/100)
	}
	return w
}

// ─── Overtime Thresholds ────────────────────────────────────────────────────

// OvertimeLevel classifies a day's worked time against the contractual
// allotment. The same thresholds drive the live dashboard warning and the
// monthly view styling.
type OvertimeLevel int

const (
	OvertimeNone       OvertimeLevel = iota
	OvertimeWarning                  // at or past contractual hours
	OvertimeLegalLimit               // at or past contractual + legal allowance
)

// Overtime returns the warning level and, when past contractual hours, the
// extra seconds worked beyond them.
func Overtime(workedSeconds int64, opts Options) (OvertimeLevel, int64) {
	if workedSeconds >= opts.ContractualDaySeconds+opts.LegalExtraSeconds {
		return OvertimeLegalLimit, workedSeconds - opts.ContractualDaySeconds
	}
	if workedSeconds >= opts.ContractualDaySeconds {
		return OvertimeWarning, workedSeconds - opts.ContractualDaySeconds
	}
	return OvertimeNone, 0
}
