package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/postclip/internal/config"
	"github.com/hpungsan/postclip/internal/entry"
	"github.com/hpungsan/postclip/internal/errors"
	"github.com/hpungsan/postclip/internal/store"
	"github.com/hpungsan/postclip/internal/summarize"
)

const postHTML = `<html><body><shreddit-post>
<h1 slot="title">Calls keep dropping</h1>
<span slot="timestamp"><time datetime="2024-04-30T09:15:00.000Z">3 hr. ago</time></span>
<div slot="text-body"><p>Since the update my calls drop.</p></div>
</shreddit-post></body></html>`

const postURL = "https://www.reddit.com/r/quo/comments/abc/calls_keep_dropping/"

var fixedNow = time.Date(2024, 5, 1, 10, 20, 30, 456_000_000, time.UTC)

type fakeLoader struct {
	html  string
	err   error
	calls int
}

func (f *fakeLoader) Load(_ context.Context, _ string) (*goquery.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

type fakeSummarizer struct {
	insights *summarize.Insights
	err      error
	calls    int
	last     summarize.Input
}

func (f *fakeSummarizer) Summarize(_ context.Context, in summarize.Input) (*summarize.Insights, error) {
	f.calls++
	f.last = in
	return f.insights, f.err
}

// countingStore records writes to the underlying store.
type countingStore struct {
	store.Store
	reads  int
	writes int
}

func (c *countingStore) GetAll(ctx context.Context) ([]entry.Entry, error) {
	c.reads++
	return c.Store.GetAll(ctx)
}

func (c *countingStore) SetAll(ctx context.Context, entries []entry.Entry) error {
	c.writes++
	return c.Store.SetAll(ctx, entries)
}

type failingWriteStore struct {
	store.Store
}

func (failingWriteStore) SetAll(context.Context, []entry.Entry) error {
	return errors.NewPersistenceFault("write", fmt.Errorf("quota exceeded"))
}

func newTestEnv(t *testing.T, loader *fakeLoader, sum *fakeSummarizer) (*Env, *countingStore) {
	t.Helper()
	cs := &countingStore{Store: store.NewSessionStore(store.NewMemoryKV(), nil)}
	env := &Env{
		Store:     cs,
		Pages:     loader,
		Config:    config.DefaultConfig(),
		Now:       func() time.Time { return fixedNow },
		ExportDir: t.TempDir(),
	}
	if sum != nil {
		env.Summarizer = sum
	}
	return env, cs
}

func TestCapture_SavesWithInsights(t *testing.T) {
	loader := &fakeLoader{html: postHTML}
	sum := &fakeSummarizer{insights: &summarize.Insights{
		Summary: "Calls drop after update", Category: "Reliability",
		SentimentLabel: "frustrated", SentimentScore: "20",
	}}
	env, cs := newTestEnv(t, loader, sum)

	out, err := Capture(context.Background(), env, CaptureInput{URL: postURL})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSaved, out.Outcome)
	assert.Equal(t, ToneSuccess, out.Tone)
	assert.Equal(t, MsgSaved, out.Message)
	assert.Empty(t, out.Warning)
	assert.Equal(t, 1, out.Count)

	want := entry.Entry{
		URL:            postURL,
		Title:          "Calls keep dropping",
		CapturedAt:     "2024-05-01T10:20:30.456Z",
		PostedAt:       "2024-04-30T09:15:00.000Z",
		Summary:        "Calls drop after update",
		Category:       "Reliability",
		SentimentLabel: "frustrated",
		SentimentScore: "20",
	}
	assert.Equal(t, &want, out.Entry)

	assert.Equal(t, summarize.Input{Title: "Calls keep dropping", URL: postURL, Body: "Since the update my calls drop."}, sum.last)

	saved, err := env.Store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []entry.Entry{want}, saved)
	assert.Equal(t, 1, cs.writes)
}

func TestCapture_NotRedditTouchesNothing(t *testing.T) {
	loader := &fakeLoader{html: postHTML}
	sum := &fakeSummarizer{}
	env, cs := newTestEnv(t, loader, sum)

	_, err := Capture(context.Background(), env, CaptureInput{URL: "https://example.com/post"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotReddit))

	tone, msg := StatusFor(err)
	assert.Equal(t, ToneWarning, tone)
	assert.Equal(t, "This page is not on Reddit.", msg)

	assert.Equal(t, 0, loader.calls)
	assert.Equal(t, 0, sum.calls)
	assert.Equal(t, 0, cs.reads)
	assert.Equal(t, 0, cs.writes)
}

func TestCapture_InvalidURL(t *testing.T) {
	env, cs := newTestEnv(t, &fakeLoader{html: postHTML}, nil)

	for _, raw := range []string{"", "   ", "not a url", "://bad"} {
		_, err := Capture(context.Background(), env, CaptureInput{URL: raw})
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "url %q: %v", raw, err)

		tone, msg := StatusFor(err)
		assert.Equal(t, ToneError, tone)
		assert.Equal(t, MsgInvalidURL, msg)
	}
	assert.Equal(t, 0, cs.writes)
}

func TestCapture_NoTitleSlot(t *testing.T) {
	sum := &fakeSummarizer{}
	env, cs := newTestEnv(t, &fakeLoader{html: `<html><body><main>Subreddit front page</main></body></html>`}, sum)

	_, err := Capture(context.Background(), env, CaptureInput{URL: "https://www.reddit.com/r/quo/"})
	assert.True(t, errors.Is(err, errors.ErrExtractionMismatch))

	tone, msg := StatusFor(err)
	assert.Equal(t, ToneWarning, tone)
	assert.Equal(t, "Can't find a Reddit post title here.", msg)
	assert.Equal(t, 0, sum.calls)
	assert.Equal(t, 0, cs.writes)
}

func TestCapture_PageUnavailable(t *testing.T) {
	env, cs := newTestEnv(t, &fakeLoader{err: fmt.Errorf("connection reset")}, nil)

	_, err := Capture(context.Background(), env, CaptureInput{URL: postURL})
	assert.True(t, errors.Is(err, errors.ErrPageUnavailable))

	tone, _ := StatusFor(err)
	assert.Equal(t, ToneError, tone)
	assert.Equal(t, 0, cs.writes)
}

func TestCapture_Duplicate(t *testing.T) {
	sum := &fakeSummarizer{insights: &summarize.Insights{}}
	env, cs := newTestEnv(t, &fakeLoader{html: postHTML}, sum)
	ctx := context.Background()

	_, err := Capture(ctx, env, CaptureInput{URL: postURL})
	require.NoError(t, err)

	out, err := Capture(ctx, env, CaptureInput{URL: postURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, out.Outcome)
	assert.Equal(t, ToneInfo, out.Tone)
	assert.Equal(t, "Already added to your list.", out.Message)
	assert.Nil(t, out.Entry)

	assert.Equal(t, 1, sum.calls, "no summarization for a duplicate")
	assert.Equal(t, 1, cs.writes, "no write for a duplicate")

	saved, _ := env.Store.GetAll(ctx)
	assert.Len(t, saved, 1)
}

func TestCapture_DegradedSaves(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
		wantWarning errors.ErrorCode
	}{
		{"missing key", errors.NewMissingCredential(), MsgSavedNoKey, errors.ErrMissingCredential},
		{"request failed", errors.NewRequestFailed(fmt.Errorf("500")), MsgSavedNoSummary, errors.ErrRequestFailed},
		{"malformed", errors.NewMalformedResponse(fmt.Errorf("prose")), MsgSavedNoSummary, errors.ErrMalformedResponse},
		{"unclassified", fmt.Errorf("boom"), MsgSavedNoSummary, errors.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := newTestEnv(t, &fakeLoader{html: postHTML}, &fakeSummarizer{err: tt.err})

			out, err := Capture(context.Background(), env, CaptureInput{URL: postURL})
			require.NoError(t, err)

			assert.Equal(t, OutcomeSavedWithoutSummary, out.Outcome)
			assert.Equal(t, ToneWarning, out.Tone)
			assert.Equal(t, tt.wantMessage, out.Message)
			assert.Equal(t, tt.wantWarning, out.Warning)

			require.NotNil(t, out.Entry)
			assert.Equal(t, "Calls keep dropping", out.Entry.Title)
			assert.Equal(t, "2024-04-30T09:15:00.000Z", out.Entry.PostedAt)
			assert.Empty(t, out.Entry.Summary)
			assert.Empty(t, out.Entry.Category)
			assert.Empty(t, out.Entry.SentimentLabel)
			assert.Empty(t, out.Entry.SentimentScore)

			saved, _ := env.Store.GetAll(context.Background())
			assert.Len(t, saved, 1)
		})
	}
}

func TestCapture_NoSummarizerConfigured(t *testing.T) {
	env, _ := newTestEnv(t, &fakeLoader{html: postHTML}, nil)

	out, err := Capture(context.Background(), env, CaptureInput{URL: postURL})
	require.NoError(t, err)
	assert.Equal(t, errors.ErrMissingCredential, out.Warning)
}

func TestCapture_EmptyTitleFallsBackToPath(t *testing.T) {
	env, _ := newTestEnv(t, &fakeLoader{html: `<html><body><h1 slot="title"></h1></body></html>`}, &fakeSummarizer{insights: &summarize.Insights{}})

	out, err := Capture(context.Background(), env, CaptureInput{URL: postURL})
	require.NoError(t, err)
	assert.Equal(t, "/r/quo/comments/abc/calls_keep_dropping/", out.Entry.Title)

	out, err = Capture(context.Background(), env, CaptureInput{URL: "https://reddit.com"})
	require.NoError(t, err)
	assert.Equal(t, "/", out.Entry.Title)
}

func TestCapture_PersistenceFault(t *testing.T) {
	env, _ := newTestEnv(t, &fakeLoader{html: postHTML}, &fakeSummarizer{insights: &summarize.Insights{}})
	env.Store = failingWriteStore{Store: env.Store}

	_, err := Capture(context.Background(), env, CaptureInput{URL: postURL})
	assert.True(t, errors.Is(err, errors.ErrPersistenceFault))

	tone, msg := StatusFor(err)
	assert.Equal(t, ToneError, tone)
	assert.Equal(t, "Something went wrong. Try again.", msg)
}

func TestCapture_FromSavedHTML(t *testing.T) {
	loader := &fakeLoader{err: fmt.Errorf("network should not be used")}
	env, _ := newTestEnv(t, loader, &fakeSummarizer{insights: &summarize.Insights{}})

	htmlPath := filepath.Join(env.ExportDir, "post.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte(postHTML), 0600))

	out, err := Capture(context.Background(), env, CaptureInput{URL: postURL, HTMLPath: htmlPath})
	require.NoError(t, err)
	assert.Equal(t, "Calls keep dropping", out.Entry.Title)
	assert.Equal(t, 0, loader.calls)

	_, err = Capture(context.Background(), env, CaptureInput{URL: postURL, HTMLPath: filepath.Join(t.TempDir(), "post.html")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "html outside allowed dirs: %v", err)
}

func TestCapture_AppendsInOrder(t *testing.T) {
	env, _ := newTestEnv(t, &fakeLoader{html: postHTML}, &fakeSummarizer{insights: &summarize.Insights{}})
	ctx := context.Background()

	urls := []string{
		"https://www.reddit.com/r/quo/comments/1/",
		"https://old.reddit.com/r/quo/comments/2/",
		"https://new.reddit.com/r/quo/comments/3/",
	}
	for _, u := range urls {
		_, err := Capture(ctx, env, CaptureInput{URL: u})
		require.NoError(t, err)
	}

	saved, err := env.Store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for i, u := range urls {
		assert.Equal(t, u, saved[i].URL)
	}
}

func TestStatusFor(t *testing.T) {
	tone, msg := StatusFor(nil)
	assert.Equal(t, ToneNeutral, tone)
	assert.Equal(t, MsgReady, msg)

	tone, msg = StatusFor(errors.NewInvalidRequest(MsgNothingToCopy))
	assert.Equal(t, ToneError, tone)
	assert.Equal(t, MsgNothingToCopy, msg)

	tone, msg = StatusFor(fmt.Errorf("plain error"))
	assert.Equal(t, ToneError, tone)
	assert.Equal(t, MsgSomethingWrong, msg)
}
