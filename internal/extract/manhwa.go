package extract

import (
	"context"
	"time"

	"github.com/ostrab/kpdl/internal/session"
	"github.com/ostrab/kpdl/internal/ui"
)

// Manhwa drives the scroll-based image viewer.
type Manhwa struct {
	Browser *session.Browser
	Log     *ui.Logger

	// ScrollBudget is the minimum time the adaptive scroll keeps running
	// even after the page height stabilizes.
	ScrollBudget time.Duration
}

const (
	scrollStableRounds = 3
	scrollWaitPerStep  = 700 * time.Millisecond
)

// Harvest scrolls through the whole chapter and collects every page-image
// URL in first-seen order. A zero-result first pass reloads the viewer once
// and retries.
func (m *Manhwa) Harvest(ctx context.Context, viewerURL string) ([]string, error) {
	urls, err := m.harvestOnce(ctx, viewerURL)
	if err != nil {
		return nil, err
	}
	if len(urls) > 0 {
		return urls, nil
	}

	m.Log.Line(ui.KindWarn, "No images on first pass, reloading viewer")
	if err := m.Browser.Reload(ctx); err != nil {
		return nil, err
	}
	if err := m.Browser.WaitIdle(ctx, 5*time.Second); err != nil {
		return nil, err
	}

	return m.harvestOnce(ctx, viewerURL)
}

func (m *Manhwa) harvestOnce(ctx context.Context, viewerURL string) ([]string, error) {
	if err := m.adaptiveScroll(ctx); err != nil {
		return nil, err
	}

	var urls []string
	if err := m.Browser.Evaluate(ctx, harvestScript, &urls); err != nil {
		return nil, err
	}

	// The snapshot pass catches what the live evaluation misses (detached
	// nodes, templated sources).
	html, err := m.Browser.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	return MergeURLs(urls, HarvestHTML(html, viewerURL)), nil
}

// adaptiveScroll advances ~0.95 viewport heights per step until scrollHeight
// has been stable for three rounds AND the minimum scroll budget elapsed.
func (m *Manhwa) adaptiveScroll(ctx context.Context) error {
	budget := m.ScrollBudget
	if budget < 3*time.Second {
		budget = 30 * time.Second
	}

	start := time.Now()
	lastHeight := -1
	stable := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var height int
		if err := m.Browser.Evaluate(ctx, scrollStepScript, &height); err != nil {
			return err
		}

		if err := m.Browser.WaitIdle(ctx, scrollWaitPerStep); err != nil {
			return err
		}

		if height == lastHeight {
			stable++
		} else {
			stable = 0
			lastHeight = height
		}

		if stable >= scrollStableRounds && time.Since(start) >= budget {
			return nil
		}

		m.Log.Line(ui.KindDebug, "scroll height=%d stable=%d elapsed=%s", height, stable, time.Since(start).Round(time.Second))
	}
}
