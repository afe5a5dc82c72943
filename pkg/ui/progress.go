package ui

import (
	"fmt"
	"time"
)

// Summary is the end-of-run report
type Summary struct {
	Pages       int
	Posts       int
	Attempts    int
	Downloaded  int
	Skipped     int
	NoImage     int
	Unavailable int
	Bytes       int64
	StopReason  string
	Elapsed     time.Duration
}

// PrintSummary prints the end-of-run report to the console
func (c *Console) PrintSummary(s Summary) {
	c.printf(false, "\n%s %d new, %d already present, %d without image, %d unavailable\n",
		Green("✓"), s.Downloaded, s.Skipped, s.NoImage, s.Unavailable)
	c.printf(false, "  %s %d pages, %d posts, %s in %s (%s)\n",
		Dim("•"), s.Pages, s.Posts, FormatBytes(s.Bytes), FormatDuration(s.Elapsed), s.StopReason)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
