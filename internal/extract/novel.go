package extract

import (
	"context"
	"time"

	"github.com/ostrab/kpdl/internal/session"
	"github.com/ostrab/kpdl/internal/ui"
)

// Novel drives the paginated text viewer chunk by chunk.
type Novel struct {
	Browser  *session.Browser
	Log      *ui.Logger
	MinWidth int

	// OutDir is the chapter folder; aggregated text is persisted there
	// after every step so a crash loses at most one chunk.
	OutDir string

	MaxSteps int
}

const (
	progressDone      = 99.0
	progressEpsilon   = 0.01
	nudgeJumpPercent  = 4.0
	largeJumpPercent  = 10.0
	finalJumpPercent  = 99.5
	largeJumpAfter    = 3
	finalJumpAfter    = 6
	defaultNovelSteps = 1000
)

// IsTextViewer reports whether the open viewer is the novel/EPUB build.
func (n *Novel) IsTextViewer(ctx context.Context) (bool, error) {
	var isText bool
	err := n.Browser.Evaluate(ctx, detectTextViewerScript, &isText)
	return isText, err
}

// Extract walks the chapter from progress 0 to the end, aggregating chunk
// text and harvesting chunk images. The aggregator is persisted to OutDir
// after every step.
func (n *Novel) Extract(ctx context.Context) ([]string, *TextAggregator, error) {
	agg := NewTextAggregator()
	var urls []string

	if err := n.prepare(ctx); err != nil {
		return nil, agg, err
	}

	maxSteps := n.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultNovelSteps
	}

	lastProgress := -1.0
	stuck := 0

	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return urls, agg, err
		}

		var chunk Chunk
		if err := n.Browser.Evaluate(ctx, chunkTextScript, &chunk); err != nil {
			return urls, agg, err
		}
		if agg.Add(chunk) {
			n.Log.Line(ui.KindDebug, "chunk %d kept (%d chars)", agg.Len(), len(chunk.Text))
		}

		var chunkURLs []string
		if err := n.Browser.Evaluate(ctx, shadowHarvestScript(n.MinWidth), &chunkURLs); err != nil {
			return urls, agg, err
		}
		urls = MergeURLs(urls, chunkURLs)

		if n.OutDir != "" {
			if err := agg.Persist(n.OutDir); err != nil {
				return urls, agg, err
			}
		}

		progress, err := n.readProgress(ctx)
		if err != nil {
			return urls, agg, err
		}
		if progress >= progressDone {
			n.Log.Line(ui.KindDebug, "progress %.2f%%, done", progress)
			return urls, agg, nil
		}

		if err := n.advance(ctx); err != nil {
			return urls, agg, err
		}

		after, err := n.pollProgress(ctx, progress)
		if err != nil {
			return urls, agg, err
		}

		if after <= lastProgress+progressEpsilon && after <= progress+progressEpsilon {
			stuck++
			switch {
			case stuck >= finalJumpAfter:
				n.Log.Line(ui.KindWarn, "Viewer stuck at %.2f%%, jumping to the end", after)
				if err := n.seek(ctx, finalJumpPercent/100); err != nil {
					return urls, agg, err
				}
				return urls, agg, nil
			case stuck >= largeJumpAfter:
				n.Log.Line(ui.KindDebug, "stuck %d rounds, large jump", stuck)
				if err := n.seek(ctx, (after+largeJumpPercent)/100); err != nil {
					return urls, agg, err
				}
			default:
				if err := n.seek(ctx, (after+nudgeJumpPercent)/100); err != nil {
					return urls, agg, err
				}
			}
		} else {
			stuck = 0
		}
		lastProgress = after
	}

	return urls, agg, nil
}

// prepare force-eagers lazy assets, unlocks scrolling and rewinds the
// viewer to the beginning.
func (n *Novel) prepare(ctx context.Context) error {
	if err := n.Browser.Evaluate(ctx, eagerScript, nil); err != nil {
		return err
	}
	if err := n.Browser.Evaluate(ctx, unlockScrollScript, nil); err != nil {
		return err
	}

	var frameIdx int
	if err := n.Browser.Evaluate(ctx, textFrameScript, &frameIdx); err != nil {
		return err
	}
	n.Log.Line(ui.KindDebug, "text frame index: %d", frameIdx)

	// Rewind: seek to 0, then the top icon, then the Home key.
	var sought bool
	if err := n.Browser.Evaluate(ctx, seekScript(0), &sought); err != nil {
		return err
	}
	if !sought {
		if err := n.Browser.Evaluate(ctx, topIconScript, &sought); err != nil {
			return err
		}
	}
	if !sought {
		if err := n.Browser.SendKey(ctx, "Home"); err != nil {
			return err
		}
	}

	return n.Browser.WaitIdle(ctx, 2*time.Second)
}

func (n *Novel) readProgress(ctx context.Context) (float64, error) {
	var p float64
	if err := n.Browser.Evaluate(ctx, progressScript, &p); err != nil {
		return -1, err
	}
	return p, nil
}

// pollProgress waits for the bar to move past prev, with an adaptive
// interval between 40 and 300 ms. It returns the last observed value once
// movement is seen or the window closes.
func (n *Novel) pollProgress(ctx context.Context, prev float64) (float64, error) {
	interval := 40 * time.Millisecond
	deadline := time.Now().Add(1200 * time.Millisecond)

	last := prev
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}

		p, err := n.readProgress(ctx)
		if err != nil {
			return last, err
		}
		if p > prev+progressEpsilon {
			return p, nil
		}
		if p > last {
			last = p
		}

		interval *= 2
		if interval > 300*time.Millisecond {
			interval = 300 * time.Millisecond
		}
	}

	return last, nil
}

// advance moves one chunk forward. Preference order: the exact "next" label
// (never "next chapter"), the toolbar arrow, any element containing the next
// label, ArrowRight, PageDown. A synthetic user gesture precedes the attempt
// because some lazy loaders require one.
func (n *Novel) advance(ctx context.Context) error {
	if err := n.Browser.Evaluate(ctx, userActivationScript, nil); err != nil {
		return err
	}

	if ok, err := n.Browser.ClickByText(ctx, session.Labels.Next, session.Labels.NextChapter); err != nil || ok {
		return err
	}

	var arrow bool
	if err := n.Browser.Evaluate(ctx, nextArrowScript, &arrow); err != nil {
		return err
	}
	if arrow {
		return nil
	}

	if ok, err := n.Browser.ClickContainingText(ctx, session.Labels.Next, session.Labels.NextChapter); err != nil || ok {
		return err
	}

	if err := n.Browser.SendKey(ctx, "ArrowRight"); err != nil {
		return err
	}
	return n.Browser.SendKey(ctx, "PageDown")
}

func (n *Novel) seek(ctx context.Context, fraction float64) error {
	if fraction > 1 {
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	}
	var ok bool
	return n.Browser.Evaluate(ctx, seekScript(fraction), &ok)
}
