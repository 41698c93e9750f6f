package job

import (
	"context"
	"errors"

	"github.com/ostrab/kpdl/internal/session"
)

// ErrCanceled is raised when the user pressed Stop; it unwinds the whole
// job.
var ErrCanceled = errors.New("canceled")

// fatal reports whether an error must terminate the job rather than skip
// the chapter.
func fatal(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, session.ErrLoginAborted) ||
		session.IsBrowserClosed(err)
}

// classify folds context cancellation into the taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCanceled
	}
	return session.AsBrowserClosed(err)
}
