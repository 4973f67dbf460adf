package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxBodyChars caps the body text sent to the summarizer.
const MaxBodyChars = 4000

// TitleSelector is the slot holding the post title on Reddit post pages.
const TitleSelector = `[slot="title"]`

var redditHosts = map[string]bool{
	"reddit.com":     true,
	"www.reddit.com": true,
	"old.reddit.com": true,
}

// Metadata is what the extractor reads from a post page.
type Metadata struct {
	HasTitle bool   `json:"hasTitle"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	PostedAt string `json:"postedAt"`
}

// Probe pairs a selector with the value it extracts from the first match.
type Probe struct {
	Selector string
	Extract  func(*goquery.Selection) string
}

// TimeProbes locate the posted-at timestamp, first match wins.
var TimeProbes = []Probe{
	{Selector: `[slot="title"] time[datetime]`, Extract: datetimeAttr},
	{Selector: `[slot="timestamp"] time[datetime]`, Extract: datetimeAttr},
	{Selector: `time[datetime]`, Extract: datetimeAttr},
}

// BodyProbes locate the post body, first non-empty text wins.
var BodyProbes = []Probe{
	{Selector: `[slot="text-body"]`, Extract: VisibleText},
	{Selector: `[slot="body"]`, Extract: VisibleText},
	{Selector: `[data-test-id="post-content"]`, Extract: VisibleText},
	{Selector: `[data-testid="content-gate"]`, Extract: VisibleText},
	{Selector: `article`, Extract: VisibleText},
	{Selector: `main`, Extract: VisibleText},
}

// IsRedditURL reports whether raw points at a Reddit host.
func IsRedditURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return redditHosts[host] || strings.HasSuffix(host, ".reddit.com")
}

// Extract reads title, body, and posted-at from a loaded page.
// It never fails: faults surface as empty fields, and a page without a title
// slot yields a zero Metadata.
func Extract(doc *goquery.Document) (meta Metadata) {
	defer func() {
		if r := recover(); r != nil {
			meta = Metadata{}
		}
	}()

	if doc == nil {
		return Metadata{}
	}

	titleSel := doc.Find(TitleSelector).First()
	if titleSel.Length() == 0 {
		return Metadata{}
	}

	body := FirstMatch(doc, BodyProbes)
	if body == "" {
		body = VisibleText(doc.Find("body").First())
	}

	return Metadata{
		HasTitle: true,
		Title:    VisibleText(titleSel),
		Body:     truncateRunes(body, MaxBodyChars),
		PostedAt: FirstMatch(doc, TimeProbes),
	}
}

// FirstMatch evaluates probes in order and returns the first non-empty value.
// Each probe looks only at the first element its selector matches.
func FirstMatch(doc *goquery.Document, probes []Probe) string {
	for _, p := range probes {
		sel := doc.Find(p.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		if v := strings.TrimSpace(p.Extract(sel)); v != "" {
			return v
		}
	}
	return ""
}

func datetimeAttr(sel *goquery.Selection) string {
	v, _ := sel.Attr("datetime")
	return v
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
