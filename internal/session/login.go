package session

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/ostrab/kpdl/internal/ui"
)

// LoginPrompter is the UI side of session acquisition. NeedLogin blocks
// until the user confirms they finished logging in (or the context dies).
type LoginPrompter interface {
	NeedLogin(ctx context.Context) error
}

const (
	markerPollInterval = 500 * time.Millisecond
	markerPollBudget   = 2 * time.Minute
	continueBudget     = 12 * time.Minute
	warmupBudget       = 15 * time.Second
)

// Acquire produces a logged-in session bound to statePath.
//
// A previously persisted state that still carries login markers is applied
// and returned as-is. Otherwise the site root is opened, the user logs in
// interactively, cookie storage is polled for the markers, a warm-up
// navigation collects the host-scoped cookies, and the state is persisted
// exactly once.
func Acquire(ctx context.Context, b *Browser, statePath string, prompt LoginPrompter, log *ui.Logger) (*State, error) {
	if st, err := LoadState(statePath); err == nil {
		if st.LoggedIn() {
			if err := b.ApplyState(ctx, st); err != nil {
				return nil, err
			}
			log.Line(ui.KindLogin, "Session restored from %s", statePath)
			return st, nil
		}
		log.Line(ui.KindWarn, "Session file has no login markers, re-login required")
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Line(ui.KindWarn, "Session file unreadable: %v", err)
	}

	if err := b.Navigate(ctx, SiteRoot); err != nil {
		return nil, err
	}

	log.Line(ui.KindLogin, "Log in using the browser window, then confirm to continue")

	continueCh := make(chan error, 1)
	go func() {
		continueCh <- prompt.NeedLogin(ctx)
	}()

	st, err := waitForLogin(ctx, b, continueCh, log)
	if err != nil {
		return nil, err
	}

	st, err = warmUp(ctx, b, st, log)
	if err != nil {
		return nil, err
	}

	if err := SaveState(statePath, st); err != nil {
		return nil, err
	}
	log.Line(ui.KindOK, "Session saved to %s", statePath)

	return st, nil
}

func waitForLogin(ctx context.Context, b *Browser, continueCh <-chan error, log *ui.Logger) (*State, error) {
	overall := time.NewTimer(continueBudget)
	defer overall.Stop()

	markerDeadline := time.Now().Add(markerPollBudget)
	ticker := time.NewTicker(markerPollInterval)
	defer ticker.Stop()

	markersSeen := false
	confirmed := false

	for {
		select {
		case <-ctx.Done():
			return nil, ErrLoginAborted

		case <-overall.C:
			return nil, ErrLoginAborted

		case err := <-continueCh:
			if err != nil {
				if IsBrowserClosed(err) {
					return nil, ErrBrowserClosed
				}
				return nil, ErrLoginAborted
			}
			confirmed = true

		case <-ticker.C:
		}

		st, err := b.SnapshotState(ctx)
		if err != nil {
			return nil, err
		}

		if st.LoggedIn() {
			if !markersSeen {
				markersSeen = true
				log.Line(ui.KindLogin, "Login detected")
			}
			if confirmed {
				return st, nil
			}
			continue
		}

		if confirmed {
			// Continue pressed but no markers: one grace poll window, then
			// treat as aborted.
			if time.Now().After(markerDeadline) {
				return nil, ErrLoginAborted
			}
			continue
		}

		if time.Now().After(markerDeadline) && !markersSeen {
			log.Line(ui.KindWarn, "Still waiting for login markers...")
			markerDeadline = time.Now().Add(markerPollBudget)
		}
	}
}

// warmUp makes sure the host-scoped reader cookies are present before the
// state is persisted. If they never appear within the budget the state is
// persisted anyway with a warning.
func warmUp(ctx context.Context, b *Browser, st *State, log *ui.Logger) (*State, error) {
	if st.Warm() {
		return st, nil
	}

	if err := b.Navigate(ctx, SiteRoot); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(warmupBudget)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ErrLoginAborted
		case <-time.After(markerPollInterval):
		}

		cur, err := b.SnapshotState(ctx)
		if err != nil {
			return nil, err
		}
		if cur.Warm() {
			return cur, nil
		}
		st = cur
	}

	log.Line(ui.KindWarn, "Host cookies did not appear during warm-up, persisting anyway")
	return st, nil
}
