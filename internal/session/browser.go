package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// zoomResetScript pins the page at 100% zoom and a fixed viewport width.
// Some reader builds re-zoom on load, so the reset re-applies itself.
const zoomResetScript = `(() => {
	const reset = () => {
		try {
			document.body && (document.body.style.zoom = "100%");
			let meta = document.querySelector('meta[name="viewport"]');
			if (!meta) {
				meta = document.createElement('meta');
				meta.name = 'viewport';
				document.head && document.head.appendChild(meta);
			}
			meta.content = 'width=1280, initial-scale=1.0';
		} catch (e) {}
	};
	reset();
	window.addEventListener('load', reset);
})();`

type LaunchOptions struct {
	UserAgent string
	WindowW   int
	WindowH   int
	PosX      int
	PosY      int
	Debug     interface{ Debugf(string, ...any) }
}

// Browser owns one Chrome instance and one tab. All operations are
// single-threaded per job; the struct is not safe for concurrent use.
type Browser struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	log         interface{ Debugf(string, ...any) }
}

// Launch starts a windowed Chrome with automation detection disabled,
// device scale factor forced to 1 and HTTP/2 off (the reader's CDN trips
// over the default h2 negotiation).
func Launch(parent context.Context, opts LaunchOptions) (*Browser, error) {
	if opts.WindowW == 0 {
		opts.WindowW = 1280
	}
	if opts.WindowH == 0 {
		opts.WindowH = 1000
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("window-size", fmt.Sprintf("%d,%d", opts.WindowW, opts.WindowH)),
		chromedp.Flag("window-position", fmt.Sprintf("%d,%d", opts.PosX, opts.PosY)),
		chromedp.Flag("force-device-scale-factor", "1"),
		chromedp.Flag("disable-http2", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		log:         opts.Debug,
	}

	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(zoomResetScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		b.Close()
		return nil, AsBrowserClosed(err)
	}

	return b, nil
}

// Close releases the tab and the Chrome process. Safe to call twice.
func (b *Browser) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.cancel()
	b.allocCancel()
}

func (b *Browser) debugf(format string, args ...any) {
	if b.log != nil {
		b.log.Debugf(format, args...)
	}
}

// run executes actions against the tab, honoring the caller's deadline and
// translating closed-target failures.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	if b.closed {
		return ErrBrowserClosed
	}

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(b.ctx, actions...)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return AsBrowserClosed(err)
	}
}

// Navigate opens a URL, waits for domcontentloaded and re-applies the zoom
// reset.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.debugf("navigate %s", url)
	return b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(zoomResetScript, nil),
	)
}

// Reload refreshes the current page.
func (b *Browser) Reload(ctx context.Context) error {
	return b.run(ctx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Location returns the tab's current URL.
func (b *Browser) Location(ctx context.Context) (string, error) {
	var loc string
	err := b.run(ctx, chromedp.Location(&loc))
	return loc, err
}

// Evaluate runs a script; out may be nil for fire-and-forget scripts.
func (b *Browser) Evaluate(ctx context.Context, js string, out any) error {
	return b.run(ctx, chromedp.Evaluate(js, out))
}

// OuterHTML snapshots the full document.
func (b *Browser) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// ClickSelector clicks the first visible match of a CSS selector. Returns
// false without error when nothing matches.
func (b *Browser) ClickSelector(ctx context.Context, sel string) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const r = el.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) return false;
		el.click();
		return true;
	})()`, sel)

	err := b.Evaluate(ctx, js, &clicked)
	return clicked, err
}

// ClickByText clicks the first visible clickable element whose trimmed text
// equals want, skipping any element whose text equals exclude.
func (b *Browser) ClickByText(ctx context.Context, want, exclude string) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(() => {
		const want = %q, exclude = %q;
		const els = document.querySelectorAll('button, a, span, div, img');
		for (const el of els) {
			const t = (el.textContent || '').trim();
			if (t !== want) continue;
			if (exclude && t === exclude) continue;
			const r = el.getBoundingClientRect();
			if (r.width === 0 && r.height === 0) continue;
			el.click();
			return true;
		}
		return false;
	})()`, want, exclude)

	err := b.Evaluate(ctx, js, &clicked)
	return clicked, err
}

// ClickContainingText clicks the deepest visible element containing want but
// not exclude.
func (b *Browser) ClickContainingText(ctx context.Context, want, exclude string) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(() => {
		const want = %q, exclude = %q;
		let best = null, bestDepth = -1;
		for (const el of document.querySelectorAll('*')) {
			const t = (el.textContent || '').trim();
			if (!t.includes(want)) continue;
			if (exclude && t.includes(exclude)) continue;
			const r = el.getBoundingClientRect();
			if (r.width === 0 && r.height === 0) continue;
			let depth = 0;
			for (let p = el; p; p = p.parentElement) depth++;
			if (depth > bestDepth) { best = el; bestDepth = depth; }
		}
		if (!best) return false;
		best.click();
		return true;
	})()`, want, exclude)

	err := b.Evaluate(ctx, js, &clicked)
	return clicked, err
}

// SendKey dispatches one keyboard key to the page.
func (b *Browser) SendKey(ctx context.Context, key string) error {
	var k string
	switch key {
	case "ArrowRight":
		k = kb.ArrowRight
	case "PageDown":
		k = kb.PageDown
	case "Home":
		k = kb.Home
	default:
		return fmt.Errorf("unsupported key %q", key)
	}
	return b.run(ctx, chromedp.KeyEvent(k))
}

// ScrollTop jumps the main scrolling element back to the top.
func (b *Browser) ScrollTop(ctx context.Context) error {
	return b.Evaluate(ctx, `window.scrollTo(0, 0);
		(document.scrollingElement || document.documentElement).scrollTop = 0;`, nil)
}

// WaitIdle gives in-flight loads a bounded window to settle: readyState
// complete plus a short quiet period, capped at max.
func (b *Browser) WaitIdle(ctx context.Context, max time.Duration) error {
	deadline := time.Now().Add(max)
	for {
		var state string
		if err := b.Evaluate(ctx, `document.readyState`, &state); err != nil {
			return err
		}
		if state == "complete" || time.Now().After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(150 * time.Millisecond):
		}
	}

	// Soft settle for late XHR-driven images.
	settle := 400 * time.Millisecond
	if rest := time.Until(deadline); rest < settle {
		if rest <= 0 {
			return nil
		}
		settle = rest
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}
	return nil
}

// SnapshotState reads all browser cookies into a session State.
func (b *Browser) SnapshotState(ctx context.Context) (*State, error) {
	var cookies []*network.Cookie

	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	s := &State{}
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return s, nil
}

// ApplyState injects the persisted cookies into the live browser.
func (b *Browser) ApplyState(ctx context.Context, s *State) error {
	params := make([]*network.CookieParam, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		if ss := strings.ToLower(c.SameSite); ss != "" {
			p.SameSite = network.CookieSameSite(ss)
		}
		params = append(params, p)
	}

	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
}
