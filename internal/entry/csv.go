package entry

import (
	"strings"
	"time"
)

// CSVHeaders is the export column order.
var CSVHeaders = []string{
	"title",
	"summary",
	"category",
	"sentimentLabel",
	"sentimentScore",
	"url",
	"postedAt",
	"capturedAt",
}

// ExportPrefix is the file name prefix for CSV downloads.
const ExportPrefix = "support-links"

// ToCSV serializes entries with every field double-quoted.
// Rows are joined with "\n" and there is no trailing newline. An empty list yields "".
func ToCSV(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, h := range CSVHeaders {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quoteField(h))
	}

	for _, e := range entries {
		e = Normalize(e)
		sb.WriteByte('\n')
		for i, v := range e.columns() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quoteField(v))
		}
	}
	return sb.String()
}

// columns returns field values in CSVHeaders order.
func (e Entry) columns() []string {
	return []string{
		e.Title,
		e.Summary,
		e.Category,
		e.SentimentLabel,
		e.SentimentScore,
		e.URL,
		e.PostedAt,
		e.CapturedAt,
	}
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ISOTimestamp formats t the way capture timestamps are stored: UTC with milliseconds.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ExportFilename returns the CSV file name for an export at now.
// Colons and dots in the timestamp are replaced with dashes.
func ExportFilename(now time.Time) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(ISOTimestamp(now))
	return ExportPrefix + "-" + ts + ".csv"
}
