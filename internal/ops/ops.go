package ops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/postclip/internal/config"
	"github.com/hpungsan/postclip/internal/errors"
	"github.com/hpungsan/postclip/internal/extract"
	"github.com/hpungsan/postclip/internal/store"
	"github.com/hpungsan/postclip/internal/summarize"
)

// Tone classifies a status message.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneError   Tone = "error"
)

// Status messages shown after a capture attempt.
const (
	MsgInvalidURL      = "Unable to capture this URL."
	MsgNotReddit       = "This page is not on Reddit."
	MsgNoTitle         = "Can't find a Reddit post title here."
	MsgPageUnavailable = "Couldn't verify the Reddit post. Try reloading."
	MsgDuplicate       = "Already added to your list."
	MsgSaved           = "Saved! Summary ready to review."
	MsgSavedNoKey      = "Saved. Add your OpenAI key with `postclip key set` for summaries."
	MsgSavedNoSummary  = "Saved without a summary. Try again later."
	MsgSomethingWrong  = "Something went wrong. Try again."
	MsgNothingToCopy   = "no links to copy yet"
	MsgNothingToExport = "no links to download yet"
	MsgReady           = "Ready to collect insights."
)

// Summarizer produces insights for a post.
type Summarizer interface {
	Summarize(ctx context.Context, in summarize.Input) (*summarize.Insights, error)
}

// Env carries the collaborators every operation needs.
type Env struct {
	Store      store.Store
	Pages      extract.Loader
	Summarizer Summarizer
	Config     *config.Config
	Logger     *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time

	// ExportDir is the default CSV destination and an always-allowed import/export directory.
	ExportDir string
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// StatusFor maps any error to the status line a user sees.
func StatusFor(err error) (Tone, string) {
	if err == nil {
		return ToneNeutral, MsgReady
	}
	switch errors.CodeOf(err) {
	case errors.ErrInvalidRequest, errors.ErrFileNotFound:
		cErr, _ := errors.As(err)
		return ToneError, cErr.Message
	case errors.ErrNotReddit:
		return ToneWarning, MsgNotReddit
	case errors.ErrExtractionMismatch:
		return ToneWarning, MsgNoTitle
	case errors.ErrPageUnavailable:
		return ToneError, MsgPageUnavailable
	case errors.ErrMissingCredential:
		return ToneWarning, MsgSavedNoKey
	case errors.ErrRequestFailed, errors.ErrMalformedResponse:
		return ToneWarning, MsgSavedNoSummary
	default:
		return ToneError, MsgSomethingWrong
	}
}
