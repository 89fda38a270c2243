package services

import "fmt"

// TimeBreakdown splits a duration in seconds into calendar-style parts.
type TimeBreakdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// BreakdownSeconds converts a total second count into a TimeBreakdown.
// Negative inputs are treated as zero.
func BreakdownSeconds(total int64) TimeBreakdown {
	if total < 0 {
		total = 0
	}
	return TimeBreakdown{
		Days:    total / 86400,
		Hours:   (total % 86400) / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// FormatSeconds renders a duration like "1d 2h 5m 30s", omitting leading
// zero units. Zero renders as "0s".
func FormatSeconds(total int64) string {
	b := BreakdownSeconds(total)
	switch {
	case b.Days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", b.Days, b.Hours, b.Minutes, b.Seconds)
	case b.Hours > 0:
		return fmt.Sprintf("%dh %dm %ds", b.Hours, b.Minutes, b.Seconds)
	case b.Minutes > 0:
		return fmt.Sprintf("%dm %ds", b.Minutes, b.Seconds)
	default:
		return fmt.Sprintf("%ds", b.Seconds)
	}
}
