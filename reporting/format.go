// Package reporting renders the results of a run: JUnit XML per suite file, a
// reStructuredText document tree and a console summary table.
package reporting

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// FormatDuration renders a duration the way reports show it: "N seconds",
// "M:SS minutes" or "H:MM:SS hours".
func FormatDuration(d time.Duration) string {
	seconds := int(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%d:%02d:%02d hours", hours, minutes%60, seconds%60)
	case minutes > 0:
		return fmt.Sprintf("%d:%02d minutes", minutes, seconds%60)
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}

// FormatTimestamp renders a point in time as "2006-01-02 15:04:05"
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}
