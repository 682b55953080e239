package tui

import (
	"fmt"
	"time"

	"github.com/hydragram/releaser/internal/clock"
)

// RelativeTimeWith formats a time relative to c.Now().
// Examples: "just now", "2 minutes ago", "1 hour ago", "3 days ago", "2 weeks ago"
func RelativeTimeWith(t time.Time, c clock.Clock) string {
	diff := c.Now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return plural(int(diff.Hours()/24/7), "week")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatDuration renders a step or run duration compactly: "850ms", "12.3s", "4m05s".
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d / time.Minute)
		s := int((d % time.Minute) / time.Second)
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}
