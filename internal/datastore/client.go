package datastore

import (
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
)

// DatasetteClient implements the Store interface for remote Datasette instances
// running the datasette-insert plugin
type DatasetteClient struct {
	baseURL  string
	apiToken string
	client   *resty.Client
}

// NewDatasetteClient creates a new DatasetteClient instance
func NewDatasetteClient(baseURL, apiToken string) *DatasetteClient {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")
	if apiToken != "" {
		client.SetAuthToken(apiToken)
	}
	return &DatasetteClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		client:   client,
	}
}

// Connect validates the base URL
func (c *DatasetteClient) Connect() error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL: %q", c.baseURL)
	}
	return nil
}

// CreateTable is a no-op for remote Datasette as tables are created via the insert API
func (c *DatasetteClient) CreateTable(schema string) error {
	return nil
}

// BatchInsert sends records to the Datasette insert API
func (c *DatasetteClient) BatchInsert(database string, table string, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, "-/insert", database, table)

	var errResp map[string]any
	resp, err := c.client.R().
		SetQueryParam("upsert", "1").
		SetBody(map[string]any{"rows": records}).
		SetError(&errResp).
		Post(u.String())
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	if resp.IsError() {
		if len(errResp) > 0 {
			return fmt.Errorf("API error (status %d): %v", resp.StatusCode(), errResp)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode())
	}

	return nil
}

// Close is a no-op for the HTTP client
func (c *DatasetteClient) Close() error {
	return nil
}
