package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lepinkainen/catalogfill/internal/cache"
)

const (
	descriptionSelector = ".description"
	shortDescriptionLen = 160
)

// ErrDescriptionNotFound is returned when a detail page has no description element.
var ErrDescriptionNotFound = errors.New("description element not found")

// DetailURL returns the product page URL for slug.
func (c *Client) DetailURL(slug string) string {
	return c.baseURL + "/game/" + url.PathEscape(slug)
}

// FetchDetail scrapes the description of a product page.
func (c *Client) FetchDetail(ctx context.Context, slug string) (*Detail, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, errors.New("product slug is empty")
	}

	if !c.useCache {
		return c.fetchDetail(ctx, slug)
	}

	detail, fromCache, err := cache.GetOrFetchWithPolicy(cache.DetailTable, slug, func() (*Detail, error) {
		return c.fetchDetail(ctx, slug)
	}, func(d *Detail) bool {
		return d != nil && d.Description != ""
	})
	if err != nil {
		return nil, err
	}
	if fromCache {
		slog.Debug("Using cached detail page", "slug", slug)
		// the rating is not part of the page
		detail.Rating = c.rating
	}
	return detail, nil
}

func (c *Client) fetchDetail(ctx context.Context, slug string) (*Detail, error) {
	detailURL := c.DetailURL(slug)

	html, err := c.detailHTML(ctx, detailURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch detail page: %w", err)
	}

	detail, err := ParseDetail(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", detailURL, err)
	}
	detail.Rating = c.rating
	return detail, nil
}

func (c *Client) detailHTML(ctx context.Context, detailURL string) (string, error) {
	if c.renderer != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", err
		}
		return c.renderer.Render(ctx, detailURL)
	}

	resp, err := c.get(ctx, detailURL, "text/html")
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// ParseDetail extracts the description fields from a product page. Rating is
// left empty.
func ParseDetail(html string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	sel := doc.Find(descriptionSelector).First()
	if sel.Length() == 0 {
		return nil, ErrDescriptionNotFound
	}

	inner, err := sel.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to read description HTML: %w", err)
	}

	return &Detail{
		ShortDescription: truncateRunes(collapseSpace(sel.Text()), shortDescriptionLen),
		Description:      strings.TrimSpace(inner),
	}, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
