package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Anti-automation countermeasures: pages inspect navigator properties
// that headless Chrome leaves in a detectable state.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-GB', 'en'] });
window.chrome = { runtime: {} };
`

type BrowserOptions struct {
	// DevtoolsURL points at a remote Chrome instance. When empty a local
	// headless Chrome is launched per fetch.
	DevtoolsURL string
	Timeout     time.Duration
	UserAgent   string
	// SnapshotDir receives a screenshot when a render fails. Empty
	// disables snapshots.
	SnapshotDir string
}

// Browser fetches marketplaces whose result pages are built client-side
// and cannot be read from the raw HTTP response.
type Browser struct {
	opts BrowserOptions
}

func NewBrowser(opts BrowserOptions) *Browser {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Browser{opts: opts}
}

// Fetch renders url in a browser session and returns the settled DOM.
// When searchQuery is set it is typed into the page's search input
// character by character, the way a person would, instead of being
// encoded into the URL. A failed render is logged with a diagnostic
// screenshot and yields an empty payload rather than an error: one
// blocked page must not take down the whole run.
func (b *Browser) Fetch(ctx context.Context, url, searchQuery string) ([]byte, error) {
	allocatorCtx, allocatorCancel := b.newAllocator(ctx)
	defer allocatorCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocatorCtx)
	defer chromeCancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(chromeCtx, b.opts.Timeout)
	defer timeoutCancel()

	actions := []chromedp.Action{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		emulation.SetTimezoneOverride("Europe/London"),
		emulation.SetLocaleOverride().WithLocale("en-GB"),
		emulation.SetGeolocationOverride().
			WithLatitude(51.5074).WithLongitude(-0.1278).WithAccuracy(100),
		chromedp.EmulateViewport(randomViewport()),
		chromedp.Navigate(url),
		waitForNetworkIdle(2 * time.Second),
		dismissOverlays(),
	}
	if searchQuery != "" {
		actions = append(actions,
			typeSearchQuery(searchQuery),
			waitForNetworkIdle(2*time.Second),
		)
	}

	var html string
	actions = append(actions,
		humanizeSession(),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	err := chromedp.Run(timeoutCtx, actions...)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		b.captureSnapshot(chromeCtx, url)
		slog.Warn("Rendered fetch failed, returning empty payload", "url", url, "error", err)
		return []byte{}, nil
	}

	return []byte(html), nil
}

func (b *Browser) newAllocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opts.DevtoolsURL != "" {
		return chromedp.NewRemoteAllocator(ctx, b.opts.DevtoolsURL, chromedp.NoModifyURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-GB"),
	)
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}

	return chromedp.NewExecAllocator(ctx, opts...)
}

func randomViewport() (int64, int64) {
	widths := []int64{1280, 1366, 1440, 1536, 1920}
	heights := []int64{720, 768, 864, 900, 1080}
	return widths[rand.Intn(len(widths))], heights[rand.Intn(len(heights))]
}

// searchInputSelector matches the marketplace search box across the
// labels currently in use.
const searchInputSelector = `input[aria-label="Search Marketplace"], input[placeholder="Search Marketplace"], input[type="search"]`

// dismissOverlays clears cookie banners and login prompts that cover
// the results. Both steps are best effort; a page without overlays is
// unaffected.
func dismissOverlays() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := input.DispatchKeyEvent(input.KeyDown).WithKey("Escape").Do(ctx); err != nil {
			return err
		}

		const clickDecline = `
			document.querySelector('div[aria-label="Decline optional cookies"], div[aria-label="Close"]')?.click();
		`
		if err := chromedp.Evaluate(clickDecline, nil).Do(ctx); err != nil {
			slog.Debug("Overlay dismissal script failed", "error", err)
		}
		return nil
	}
}

// typeSearchQuery clicks the search input, types the query with a
// randomized per-character delay and submits it with Enter.
func typeSearchQuery(query string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := chromedp.Click(searchInputSelector, chromedp.ByQuery, chromedp.NodeVisible).Do(ctx); err != nil {
			return err
		}

		for _, char := range query {
			if err := chromedp.SendKeys(searchInputSelector, string(char), chromedp.ByQuery).Do(ctx); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(50+rand.Intn(101)) * time.Millisecond):
			}
		}

		return chromedp.SendKeys(searchInputSelector, kb.Enter, chromedp.ByQuery).Do(ctx)
	}
}

// humanizeSession scrolls and moves the pointer the way a person
// browsing results would, which also triggers lazy-loaded cards.
func humanizeSession() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		steps := 2 + rand.Intn(4)
		for i := 0; i < steps; i++ {
			distance := 300 + rand.Intn(501)
			if err := chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", distance), nil).Do(ctx); err != nil {
				return err
			}

			x := float64(100 + rand.Intn(800))
			y := float64(100 + rand.Intn(500))
			if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(500+rand.Intn(1000)) * time.Millisecond):
			}
		}
		return nil
	}
}

// waitForNetworkIdle resolves once no request has been in flight for the
// quiet window, or immediately on context timeout.
func waitForNetworkIdle(quiet time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		idle := make(chan struct{}, 1)

		var mu sync.Mutex
		inflight := 0
		timer := time.AfterFunc(quiet, func() {
			select {
			case idle <- struct{}{}:
			default:
			}
		})
		defer timer.Stop()

		chromedp.ListenTarget(ctx, func(ev interface{}) {
			mu.Lock()
			defer mu.Unlock()

			switch ev.(type) {
			case *network.EventRequestWillBeSent:
				inflight++
				timer.Stop()
			case *network.EventLoadingFinished, *network.EventLoadingFailed:
				if inflight > 0 {
					inflight--
				}
				if inflight == 0 {
					timer.Reset(quiet)
				}
			}
		})

		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Browser) captureSnapshot(ctx context.Context, url string) {
	if b.opts.SnapshotDir == "" {
		return
	}

	var buf []byte
	snapshotCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := chromedp.Run(snapshotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		slog.Debug("Failed to capture diagnostic screenshot", "url", url, "error", err)
		return
	}

	if err := os.MkdirAll(b.opts.SnapshotDir, 0755); err != nil {
		slog.Debug("Failed to create snapshot directory", "error", err)
		return
	}

	name := fmt.Sprintf("render-failure-%d.png", time.Now().UnixNano())
	path := filepath.Join(b.opts.SnapshotDir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		slog.Debug("Failed to write diagnostic screenshot", "path", path, "error", err)
		return
	}

	slog.Info("Diagnostic screenshot saved", "url", url, "path", path)
}
