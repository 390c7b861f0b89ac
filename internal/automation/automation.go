package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const defaultRenderTimeout = 30 * time.Second

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
)

// AutomationOptions holds common configuration for browser automation
type AutomationOptions struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration
}

// BrowserSession is a running headless browser. Pages are rendered in
// separate tabs so one session can serve a whole run.
type BrowserSession struct {
	ctx     context.Context
	opts    AutomationOptions
	cleanup func()
}

// NewBrowser launches a browser with the given options.
func NewBrowser(parent context.Context, opts AutomationOptions) (*BrowserSession, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRenderTimeout
	}

	allocCtx, cancelAllocator := chromedpExecAllocator(parent, BuildExecAllocatorOptions(opts)...)
	browserCtx, cancelBrowser := chromedpContext(allocCtx)

	cleanup := func() {
		cancelBrowser()
		cancelAllocator()
	}

	// running with no actions starts the browser
	if err := chromedpRunner(browserCtx); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	slog.Debug("Browser launched", "headless", opts.Headless)
	return &BrowserSession{ctx: browserCtx, opts: opts, cleanup: cleanup}, nil
}

// Close shuts the browser down.
func (s *BrowserSession) Close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// RenderHTML opens url in a new tab, waits for selector and returns the
// document's outer HTML.
func (s *BrowserSession) RenderHTML(ctx context.Context, url, selector string) (string, error) {
	tabCtx, cancelTab := chromedpContext(s.ctx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.opts.Timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	if err := chromedpRunner(tabCtx, BuildRenderTasks(url, selector, s.opts.UserAgent, &html)...); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("rendered empty document for %s", url)
	}
	return html, nil
}

// BuildExecAllocatorOptions returns the browser flags used for every session.
func BuildExecAllocatorOptions(opts AutomationOptions) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-default-browser-check", true),
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	return allocOpts
}

// BuildRenderTasks returns the actions that load url and copy its HTML into dst.
func BuildRenderTasks(url, selector, userAgent string, dst *string) chromedp.Tasks {
	if selector == "" {
		selector = "body"
	}

	var tasks chromedp.Tasks
	if userAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(userAgent))
	}
	return append(tasks,
		chromedp.Navigate(url),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML("html", dst, chromedp.ByQuery),
	)
}
