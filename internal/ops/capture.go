package ops

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/postclip/internal/entry"
	"github.com/hpungsan/postclip/internal/errors"
	"github.com/hpungsan/postclip/internal/extract"
	"github.com/hpungsan/postclip/internal/metrics"
	"github.com/hpungsan/postclip/internal/summarize"
)

// Outcome is the result class of a capture attempt.
type Outcome string

const (
	OutcomeSaved               Outcome = "saved"
	OutcomeSavedWithoutSummary Outcome = "saved_without_summary"
	OutcomeDuplicate           Outcome = "duplicate"
	OutcomeRefused             Outcome = "refused" // invalid URL, not Reddit, or no post title
	OutcomeFailed              Outcome = "failed"
)

// CaptureInput contains parameters for the Capture operation.
type CaptureInput struct {
	URL string

	// HTMLPath, when set, reads the page from a saved HTML file instead of fetching URL.
	HTMLPath string
}

// CaptureOutput contains the result of a capture that reached the saved list.
type CaptureOutput struct {
	Outcome Outcome      `json:"outcome"`
	Tone    Tone         `json:"tone"`
	Message string       `json:"message"`
	Entry   *entry.Entry `json:"entry,omitempty"`

	// Warning is the summarization error code when the entry was saved without insights.
	Warning errors.ErrorCode `json:"warning,omitempty"`

	Count int `json:"count"`
}

// Capture validates a Reddit post URL, extracts its metadata, summarizes it and
// appends it to the saved list. Refusals and failures are returned as ClipErrors
// and never touch the list; StatusFor turns them into a status line.
func Capture(ctx context.Context, env *Env, input CaptureInput) (*CaptureOutput, error) {
	out, err := capture(ctx, env, input)
	switch {
	case err == nil:
		metrics.IncrementCaptureOutcome(string(out.Outcome))
	case errors.Is(err, errors.ErrInvalidRequest), errors.Is(err, errors.ErrNotReddit), errors.Is(err, errors.ErrExtractionMismatch):
		metrics.IncrementCaptureOutcome(string(OutcomeRefused))
	default:
		metrics.IncrementCaptureOutcome(string(OutcomeFailed))
		env.logger().Error("capture failed", zap.String("url", input.URL), zap.Error(err))
	}
	return out, err
}

func capture(ctx context.Context, env *Env, input CaptureInput) (*CaptureOutput, error) {
	rawURL := strings.TrimSpace(input.URL)
	if rawURL == "" {
		return nil, errors.NewInvalidRequest(MsgInvalidURL)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, errors.NewInvalidRequest(MsgInvalidURL)
	}
	if !extract.IsRedditURL(rawURL) {
		return nil, errors.NewNotReddit(rawURL)
	}

	loader, err := env.pageLoader(input.HTMLPath)
	if err != nil {
		return nil, err
	}
	doc, err := loader.Load(ctx, rawURL)
	if err != nil {
		return nil, errors.NewPageUnavailable(rawURL, err)
	}

	meta := extract.Extract(doc)
	if !meta.HasTitle {
		return nil, errors.NewExtractionMismatch(rawURL)
	}

	existing, err := env.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.URL == rawURL {
			return &CaptureOutput{
				Outcome: OutcomeDuplicate,
				Tone:    ToneInfo,
				Message: MsgDuplicate,
				Count:   len(existing),
			}, nil
		}
	}

	out := &CaptureOutput{Outcome: OutcomeSaved, Tone: ToneSuccess, Message: MsgSaved}
	insights, err := env.summarize(ctx, summarize.Input{Title: meta.Title, URL: rawURL, Body: meta.Body})
	if err != nil {
		if !errors.Summarization(err) {
			// Unclassified summarizer errors also degrade to a plain save.
			err = errors.NewRequestFailed(err)
		}
		out.Outcome = OutcomeSavedWithoutSummary
		out.Tone, out.Message = StatusFor(err)
		out.Warning = errors.CodeOf(err)
		if !errors.Is(err, errors.ErrMissingCredential) {
			env.logger().Warn("failed to summarize post", zap.String("url", rawURL), zap.Error(err))
		}
		insights = &summarize.Insights{}
	}

	title := meta.Title
	if title == "" {
		title = pathOf(parsed)
	}
	e := entry.Entry{
		URL:            rawURL,
		Title:          title,
		CapturedAt:     entry.ISOTimestamp(env.now()),
		PostedAt:       meta.PostedAt,
		Summary:        insights.Summary,
		Category:       insights.Category,
		SentimentLabel: insights.SentimentLabel,
		SentimentScore: insights.SentimentScore,
	}

	updated := append(existing, e)
	if err := env.Store.SetAll(ctx, updated); err != nil {
		return nil, err
	}

	out.Entry = &e
	out.Count = len(updated)
	return out, nil
}

func (e *Env) pageLoader(htmlPath string) (extract.Loader, error) {
	if htmlPath != "" {
		if err := ValidatePath(htmlPath, PathCheckRead, e.Config, e.ExportDir, ".html", ".htm"); err != nil {
			return nil, err
		}
		return extract.FileLoader{Path: htmlPath, Open: openPage}, nil
	}
	if e.Pages == nil {
		return nil, errors.NewInternal(fmt.Errorf("no page loader configured"))
	}
	return e.Pages, nil
}

func (e *Env) summarize(ctx context.Context, in summarize.Input) (*summarize.Insights, error) {
	if e.Summarizer == nil {
		return nil, errors.NewMissingCredential()
	}
	insights, err := e.Summarizer.Summarize(ctx, in)
	if err != nil {
		return nil, err
	}
	if insights == nil {
		return &summarize.Insights{}, nil
	}
	return insights, nil
}

// pathOf mirrors a browser's URL pathname, which is "/" for an empty path.
func pathOf(u *url.URL) string {
	if u.EscapedPath() == "" {
		return "/"
	}
	return u.EscapedPath()
}
