package entry

import (
	"encoding/json"
	"strconv"
)

// Entry is one captured post with its capture and enrichment metadata.
// Every field is a string; absent values are "".
type Entry struct {
	// URL is the post URL. The capture flow dedups on exact match.
	URL string `json:"url" yaml:"url"`

	// Title falls back to the URL path when the page title is empty.
	Title string `json:"title" yaml:"title"`

	// CapturedAt is the ISO-8601 capture time (client clock).
	CapturedAt string `json:"capturedAt" yaml:"capturedAt"`

	// PostedAt is the best-effort ISO-8601 post time, or "".
	PostedAt string `json:"postedAt" yaml:"postedAt"`

	// Summary is at most 155 characters.
	Summary string `json:"summary" yaml:"summary"`

	Category       string `json:"category" yaml:"category"`
	SentimentLabel string `json:"sentimentLabel" yaml:"sentimentLabel"`

	// SentimentScore is an integer 0-100 encoded as a string, or "".
	SentimentScore string `json:"sentimentScore" yaml:"sentimentScore"`
}

// legacy aliases accepted on read, never written back.
var fieldAliases = map[string][]string{
	"url":            {"url"},
	"title":          {"title"},
	"capturedAt":     {"capturedAt"},
	"postedAt":       {"postedAt", "posted_at"},
	"summary":        {"summary"},
	"category":       {"category"},
	"sentimentLabel": {"sentimentLabel", "mood"},
	"sentimentScore": {"sentimentScore", "sentiment"},
}

// Normalize coerces any value into an Entry. It never fails.
//
// Objects (maps) are read field by field, falling back to legacy aliases.
// nil yields an empty entry; arrays behave like objects without fields;
// any other scalar becomes the URL.
func Normalize(v any) Entry {
	switch val := v.(type) {
	case nil:
		return Entry{}
	case Entry:
		return val
	case *Entry:
		if val == nil {
			return Entry{}
		}
		return *val
	case map[string]any:
		return fromObject(val)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return fromObject(obj)
	case []any:
		return Entry{}
	default:
		return Entry{URL: Stringify(val)}
	}
}

// NormalizeList normalizes every element of a list. Non-list input yields an empty list.
func NormalizeList(v any) []Entry {
	var items []any
	switch val := v.(type) {
	case []any:
		items = val
	case []Entry:
		out := make([]Entry, len(val))
		copy(out, val)
		return out
	case []map[string]any:
		items = make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
	default:
		return []Entry{}
	}

	out := make([]Entry, 0, len(items))
	for _, item := range items {
		out = append(out, Normalize(item))
	}
	return out
}

func fromObject(obj map[string]any) Entry {
	return Entry{
		URL:            lookup(obj, "url"),
		Title:          lookup(obj, "title"),
		CapturedAt:     lookup(obj, "capturedAt"),
		PostedAt:       lookup(obj, "postedAt"),
		Summary:        lookup(obj, "summary"),
		Category:       lookup(obj, "category"),
		SentimentLabel: lookup(obj, "sentimentLabel"),
		SentimentScore: lookup(obj, "sentimentScore"),
	}
}

// lookup returns the first non-null value among field and its aliases.
// A present "" stops the fallback.
func lookup(obj map[string]any, field string) string {
	for _, key := range fieldAliases[field] {
		if v, ok := obj[key]; ok && v != nil {
			return Stringify(v)
		}
	}
	return ""
}

// Stringify converts a decoded JSON value to its string form.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
