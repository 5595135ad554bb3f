package domain

import "fmt"

// ─── Display Formatting ─────────────────────────────────────────────────────
// Pure conversions from whole seconds to display strings. Sub-second
// precision is truncated; persisted durations are whole seconds anyway.

// FormatClock formats seconds as HH:MM:SS (the live workday timer).
func FormatClock(totalSeconds int64) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatHoursMinutes formats seconds as HH:MM (daily and monthly totals).
func FormatHoursMinutes(totalSeconds int64) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// FormatSignedHoursMinutes formats a balance as ±HH:MM. Zero is "+00:00".
func FormatSignedHoursMinutes(totalSeconds int64) string {
	sign := "+"
	if totalSeconds < 0 {
		sign = "-"
		totalSeconds = -totalSeconds
	}
	return sign + FormatHoursMinutes(totalSeconds)
}

// FormatMinutes formats seconds as whole minutes (ticket time display).
func FormatMinutes(totalSeconds int64) string {
	return fmt.Sprintf("%d min", totalSeconds/60)
}

// FormatExtra formats overtime beyond the contractual day as "XhYm".
func FormatExtra(extraSeconds int64) string {
	h := extraSeconds / 3600
	m := (extraSeconds % 3600) / 60
	return fmt.Sprintf("%dh%02dm", h, m)
}
