package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"style-shopper/internal/types"
)

// ErrBrowserUnavailable is returned when no Chrome/Chromium executable can be found
var ErrBrowserUnavailable = errors.New("headless browser runtime not found (install Chrome or Chromium, or set BROWSER_PATH)")

const (
	viewportWidth   = 1920
	viewportHeight  = 1080
	selectorTimeout = 10 * time.Second
)

var browserCandidates = []string{
	"headless-shell",
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// LocateBrowser resolves the Chrome executable, preferring an explicit path
func LocateBrowser(explicit string) (string, error) {
	if explicit != "" {
		if info, err := os.Stat(explicit); err == nil && !info.IsDir() {
			return explicit, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBrowserUnavailable, explicit)
	}

	for _, candidate := range browserCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", ErrBrowserUnavailable
}

// BrowserClient renders pages in headless Chrome. Each call launches its own
// browser and tears it down before returning; calls are serialized.
type BrowserClient struct {
	config      *types.Config
	logger      types.Logger
	execPath    string
	scrollCount int
	scrollPause time.Duration
	mu          sync.Mutex
}

// NewBrowserClient creates a new browser client, failing fast when Chrome is missing
func NewBrowserClient(config *types.Config, logger types.Logger) (*BrowserClient, error) {
	execPath, err := LocateBrowser(config.BrowserPath)
	if err != nil {
		return nil, err
	}

	return &BrowserClient{
		config:      config,
		logger:      logger,
		execPath:    execPath,
		scrollCount: 3,
		scrollPause: 500 * time.Millisecond,
	}, nil
}

// browserSession owns the chromedp contexts of one rendering run
type browserSession struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	pageCtx       context.Context
	pageCancel    context.CancelFunc
}

func (b *BrowserClient) openSession(ctx context.Context) (*browserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(b.execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.config.UserAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)

	s := &browserSession{}
	var allocCtx context.Context
	allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, opts...)

	s.browserCtx, s.browserCancel = chromedp.NewContext(allocCtx, chromedp.WithErrorf(b.logger.Debugf))
	if err := chromedp.Run(s.browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// Isolated browser context for the page, like a fresh incognito profile
	s.pageCtx, s.pageCancel = chromedp.NewContext(s.browserCtx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(s.pageCtx, chromedp.EmulateViewport(viewportWidth, viewportHeight)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return s, nil
}

// Close releases the page context, then the browser, then the Chrome process
func (s *browserSession) Close() {
	if s.pageCancel != nil {
		s.pageCancel()
	}
	if s.browserCtx != nil {
		_ = chromedp.Cancel(s.browserCtx)
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// GetPageContent retrieves the fully rendered HTML of a page. It waits for the
// network to go idle, optionally for waitSelector, and scrolls to trigger lazy loading.
func (b *BrowserClient) GetPageContent(ctx context.Context, url string, waitSelector string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, err := b.openSession(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	navCtx, cancel := context.WithTimeout(session.pageCtx, b.config.Timeout)
	defer cancel()
	if err := chromedp.Run(navCtx, navigateAndWaitIdle(url)); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}

	if waitSelector != "" {
		selCtx, selCancel := context.WithTimeout(session.pageCtx, selectorTimeout)
		err := chromedp.Run(selCtx, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
		selCancel()
		if err != nil {
			b.logger.Debugf("Selector %q not visible on %s, continuing: %v", waitSelector, url, err)
		}
	}

	var html string
	var scrollY float64
	actions := make([]chromedp.Action, 0, 2*b.scrollCount+2)
	for i := 0; i < b.scrollCount; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollBy(0, window.innerHeight); window.scrollY`, &scrollY),
			chromedp.Sleep(b.scrollPause),
		)
	}
	actions = append(actions,
		chromedp.Evaluate(`window.scrollTo(0, 0); window.scrollY`, &scrollY),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	captureCtx, captureCancel := context.WithTimeout(session.pageCtx, b.config.Timeout)
	defer captureCancel()
	if err := chromedp.Run(captureCtx, actions...); err != nil {
		return "", fmt.Errorf("failed to capture page content: %w", err)
	}

	b.logger.Debugf("Successfully retrieved rendered content from %s (%d bytes)", url, len(html))
	return html, nil
}

// navigateAndWaitIdle navigates and blocks until Chrome reports networkIdle
// for the document that navigation loaded in the main frame
func navigateAndWaitIdle(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		w := newIdleWatcher()

		listenCtx, stop := context.WithCancel(ctx)
		defer stop()
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok {
				w.observe(e)
			}
		})

		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}
		frameID, loaderID, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error %s", errorText)
		}
		w.arm(frameID, loaderID)

		select {
		case <-w.idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func isMainDocumentIdle(e *page.EventLifecycleEvent, frameID cdp.FrameID, loaderID cdp.LoaderID) bool {
	return e.Name == "networkIdle" && e.FrameID == frameID && e.LoaderID == loaderID
}

type documentKey struct {
	frameID  cdp.FrameID
	loaderID cdp.LoaderID
}

// idleWatcher collects networkIdle events until the navigation's frame and
// loader are known; events can arrive before page.Navigate returns.
type idleWatcher struct {
	mu     sync.Mutex
	seen   map[documentKey]bool
	target *documentKey
	idle   chan struct{}
	once   sync.Once
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{
		seen: make(map[documentKey]bool),
		idle: make(chan struct{}),
	}
}

func (w *idleWatcher) observe(e *page.EventLifecycleEvent) {
	if e.Name != "networkIdle" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.target == nil {
		w.seen[documentKey{e.FrameID, e.LoaderID}] = true
		return
	}
	if isMainDocumentIdle(e, w.target.frameID, w.target.loaderID) {
		w.once.Do(func() { close(w.idle) })
	}
}

func (w *idleWatcher) arm(frameID cdp.FrameID, loaderID cdp.LoaderID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := documentKey{frameID, loaderID}
	w.target = &key
	if w.seen[key] {
		w.once.Do(func() { close(w.idle) })
	}
	w.seen = nil
}

// Close is a no-op; every render owns and releases its own browser
func (b *BrowserClient) Close() {}
