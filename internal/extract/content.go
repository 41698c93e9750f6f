package extract

import (
	"context"
	"time"

	"github.com/ostrab/kpdl/internal/chapters"
	"github.com/ostrab/kpdl/internal/session"
)

// Reveal-more controls of the chapter list. The up control unrolls newer
// chapters, the down control older ones.
const (
	revealUpSelector   = `button[class*="btn-episode-more-up"], [data-direction="up"] button, button[aria-label*="이전"]`
	revealDownSelector = `button[class*="btn-episode-more"], [data-direction="down"] button, button[aria-label*="더보기"]`
)

const initialScrollScript = `(() => {
	const el = document.scrollingElement || document.documentElement;
	el.scrollTo({ top: Math.floor(window.innerHeight * 0.8), behavior: 'smooth' });
	return true;
})()`

// ContentPage adapts the live chapter-list page to the chapters.Revealer
// contract.
type ContentPage struct {
	Browser *session.Browser
	TitleID string
}

// Open navigates to the content page and performs the smooth initial scroll
// that triggers the first batch of list items.
func (p *ContentPage) Open(ctx context.Context) error {
	if err := p.Browser.Navigate(ctx, session.ContentURL(p.TitleID)); err != nil {
		return err
	}
	if err := p.Browser.Evaluate(ctx, initialScrollScript, nil); err != nil {
		return err
	}
	return p.Browser.WaitIdle(ctx, 3*time.Second)
}

func (p *ContentPage) Snapshot(ctx context.Context) (string, error) {
	return p.Browser.OuterHTML(ctx)
}

func (p *ContentPage) Reveal(ctx context.Context, dir chapters.Direction) (bool, error) {
	sel := revealDownSelector
	if dir == chapters.DirUp {
		sel = revealUpSelector
	}

	clicked, err := p.Browser.ClickSelector(ctx, sel)
	if err != nil || !clicked {
		return clicked, err
	}

	if err := p.Browser.WaitIdle(ctx, 2*time.Second); err != nil {
		return true, err
	}
	return true, nil
}
