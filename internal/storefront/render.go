package storefront

import (
	"context"

	"github.com/lepinkainen/catalogfill/internal/automation"
)

// BrowserRenderer renders detail pages in headless Chrome.
type BrowserRenderer struct {
	session *automation.BrowserSession
}

// NewBrowserRenderer launches the browser used for every render.
func NewBrowserRenderer(ctx context.Context, userAgent string) (*BrowserRenderer, error) {
	session, err := automation.NewBrowser(ctx, automation.AutomationOptions{
		Headless:  true,
		UserAgent: userAgent,
	})
	if err != nil {
		return nil, err
	}
	return &BrowserRenderer{session: session}, nil
}

// Render returns the page HTML once the description element is present.
func (r *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	return r.session.RenderHTML(ctx, url, descriptionSelector)
}

// Close stops the browser.
func (r *BrowserRenderer) Close() {
	r.session.Close()
}
