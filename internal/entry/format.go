package entry

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder is shown for empty review cells.
const Placeholder = "—"

// FormatSentiment renders the label and score for review listings.
func FormatSentiment(label, score string) string {
	label = strings.TrimSpace(label)
	score = strings.TrimSpace(score)

	switch {
	case label == "" && score == "":
		return Placeholder
	case label != "" && score != "":
		return fmt.Sprintf("%s (%s/100)", label, score)
	case label != "":
		return label
	default:
		return score + "/100"
	}
}

// FormatPosted renders a posted-at timestamp with its age relative to now.
func FormatPosted(iso string, now time.Time) string {
	t, ok := parseTime(iso)
	if !ok {
		return Placeholder
	}

	days := int(now.Sub(t).Hours() / 24)
	var rel string
	switch {
	case days <= 0:
		rel = "today"
	case days == 1:
		rel = "1 day ago"
	default:
		rel = fmt.Sprintf("%d days ago", days)
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02"), rel)
}

// FormatCaptured renders a capture timestamp in local time.
func FormatCaptured(iso string) string {
	t, ok := parseTime(iso)
	if !ok {
		return Placeholder
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// CountLabel renders the saved-links counter.
func CountLabel(n int) string {
	if n == 1 {
		return "1 link saved"
	}
	return fmt.Sprintf("%d links saved", n)
}

// OrPlaceholder returns s, or the placeholder when s is blank.
func OrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

func parseTime(iso string) (time.Time, bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
