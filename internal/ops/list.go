package ops

import (
	"context"

	"github.com/hpungsan/postclip/internal/entry"
)

// MaxListLimit caps one page of List results.
const MaxListLimit = 500

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit" yaml:"limit"`
	Offset  int  `json:"offset" yaml:"offset"`
	HasMore bool `json:"has_more" yaml:"has_more"`
	Total   int  `json:"total" yaml:"total"`
}

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // 0 means every entry, capped at MaxListLimit
	Offset int
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []entry.Entry `json:"items" yaml:"items"`
	CountLabel string        `json:"count_label" yaml:"count_label"`
	Pagination Pagination    `json:"pagination" yaml:"pagination"`
}

// List returns the saved entries in capture order, oldest first.
func List(ctx context.Context, env *Env, input ListInput) (*ListOutput, error) {
	entries, err := env.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	total := len(entries)

	limit := input.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := min(max(input.Offset, 0), total)
	end := min(offset+limit, total)

	items := entries[offset:end]
	if items == nil {
		items = []entry.Entry{}
	}

	return &ListOutput{
		Items:      items,
		CountLabel: entry.CountLabel(total),
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
	}, nil
}

// ReviewRow is one entry formatted for display.
type ReviewRow struct {
	Title     string `json:"title" yaml:"title"`
	Summary   string `json:"summary" yaml:"summary"`
	Category  string `json:"category" yaml:"category"`
	Sentiment string `json:"sentiment" yaml:"sentiment"`
	Posted    string `json:"posted" yaml:"posted"`
	Captured  string `json:"captured" yaml:"captured"`
	URL       string `json:"url" yaml:"url"`
}

// ReviewRows formats entries for the review table. Missing values show a placeholder.
func ReviewRows(env *Env, entries []entry.Entry) []ReviewRow {
	now := env.now()
	rows := make([]ReviewRow, 0, len(entries))
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.URL
		}
		rows = append(rows, ReviewRow{
			Title:     entry.OrPlaceholder(title),
			Summary:   entry.OrPlaceholder(e.Summary),
			Category:  entry.OrPlaceholder(e.Category),
			Sentiment: entry.FormatSentiment(e.SentimentLabel, e.SentimentScore),
			Posted:    entry.FormatPosted(e.PostedAt, now),
			Captured:  entry.FormatCaptured(e.CapturedAt),
			URL:       e.URL,
		})
	}
	return rows
}

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Cleared int    `json:"cleared"`
	Message string `json:"message"`
}

// Clear empties the saved list.
func Clear(ctx context.Context, env *Env) (*ClearOutput, error) {
	entries, err := env.Store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := env.Store.Clear(ctx); err != nil {
		return nil, err
	}
	return &ClearOutput{Cleared: len(entries), Message: "Cleared saved links."}, nil
}
