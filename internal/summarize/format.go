package summarize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	fenceJSONPrefix = regexp.MustCompile(`(?i)^` + "```" + `json\s*`)
	fencePrefix     = regexp.MustCompile(`^` + "```" + `\s*`)
)

// Ellipsis is appended to truncated summaries.
const Ellipsis = "…"

// StripCodeFences removes a Markdown code fence wrapped around model output.
// Content that does not start with a fence is only trimmed.
func StripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return strings.TrimSpace(content)
	}
	s := fenceJSONPrefix.ReplaceAllString(content, "")
	s = fencePrefix.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// TruncateSummary shortens s to max characters. Longer input keeps the first
// max-1 characters, trimmed, followed by a single ellipsis.
func TruncateSummary(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + Ellipsis
}

// FormatSentimentScore coerces a model score to an integer string in [0,100].
// Values that are not finite numbers yield "".
func FormatSentimentScore(v any) string {
	f, ok := toNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	// Round half up, then clamp.
	rounded := math.Floor(f + 0.5)
	clamped := math.Max(0, math.Min(100, rounded))
	return strconv.Itoa(int(clamped))
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
