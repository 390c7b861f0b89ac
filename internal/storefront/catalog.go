package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
)

const catalogPath = "/games/ajax/filtered"

// CatalogURL builds the listing URL for params. mediaType defaults to "game";
// every other parameter is passed through as given.
func (c *Client) CatalogURL(params url.Values) string {
	query := url.Values{}
	query.Set("mediaType", "game")
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}
	return c.baseURL + catalogPath + "?" + query.Encode()
}

// FetchCatalog fetches one page of the filtered product listing.
func (c *Client) FetchCatalog(ctx context.Context, params url.Values) (*CatalogPage, error) {
	catalogURL := c.CatalogURL(params)

	resp, err := c.get(ctx, catalogURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	var page CatalogPage
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	slog.Debug("Fetched catalog page", "page", page.Page, "total_pages", page.TotalPages, "products", len(page.Products))
	return &page, nil
}
