package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lepinkainen/catalogfill/internal/errors"
)

const defaultTimeout = 30 * time.Second

var _ Backend = (*Client)(nil)

// Client is a REST client for a Strapi-style CMS.
type Client struct {
	http *resty.Client
}

// ClientOption configures a Client.
type ClientOption func(*resty.Client)

// WithHTTPClient sends requests through hc.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(rc *resty.Client) {
		if hc != nil {
			rc.SetTransport(hc.Transport)
			if hc.Timeout > 0 {
				rc.SetTimeout(hc.Timeout)
			}
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(rc *resty.Client) {
		if d > 0 {
			rc.SetTimeout(d)
		}
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) ClientOption {
	return func(rc *resty.Client) {
		rc.SetDebug(debug)
	}
}

// NewClient creates a client for the CMS at baseURL, authenticating with token.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// Entities returns the service of a named-entity kind.
func (c *Client) Entities(kind Kind) EntityService {
	return &restEntities{client: c, kind: kind}
}

// Games returns the game service.
func (c *Client) Games() GameService {
	return &restGames{client: c}
}

// Upload posts a file to /upload, linked to upload.RefID's field.
func (c *Client) Upload(ctx context.Context, upload Upload) (*File, error) {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var files []File
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"refId": string(upload.RefID),
			"ref":   upload.Ref,
			"field": upload.Field,
		}).
		SetMultipartField("files", upload.Filename, contentType, bytes.NewReader(upload.Data)).
		SetResult(&files).
		Post("/upload")
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", upload.Filename, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", upload.Filename, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("upload of %s returned no file record", upload.Filename)
	}

	slog.Debug("Uploaded file", "name", files[0].Name, "ref", upload.Ref, "ref_id", upload.RefID, "field", upload.Field)
	return &files[0], nil
}

func (c *Client) find(ctx context.Context, collection, name string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("name", name).
		SetResult(out).
		Get("/" + collection)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	return nil
}

func (c *Client) create(ctx context.Context, collection string, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(out).
		Post("/" + collection)
	if err != nil {
		return fmt.Errorf("failed to create in %s: %w", collection, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("failed to create in %s: %w", collection, err)
	}
	return nil
}

type restEntities struct {
	client *Client
	kind   Kind
}

func (s *restEntities) FindByName(ctx context.Context, name string) ([]Entity, error) {
	var found []Entity
	if err := s.client.find(ctx, s.kind.Collection(), name, &found); err != nil {
		return nil, err
	}
	// the CMS filter may be case-insensitive depending on its database
	matches := found[:0]
	for _, e := range found {
		if e.Name == name {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

func (s *restEntities) Create(ctx context.Context, entity Entity) (*Entity, error) {
	var created Entity
	body := map[string]string{"name": entity.Name, "slug": entity.Slug}
	if err := s.client.create(ctx, s.kind.Collection(), body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

type restGames struct {
	client *Client
}

func (s *restGames) FindByName(ctx context.Context, name string) ([]GameRecord, error) {
	var found []GameRecord
	if err := s.client.find(ctx, Game.Collection(), name, &found); err != nil {
		return nil, err
	}
	matches := found[:0]
	for _, g := range found {
		if g.Name == name {
			matches = append(matches, g)
		}
	}
	return matches, nil
}

func (s *restGames) Create(ctx context.Context, game GameInput) (*GameRecord, error) {
	var created GameRecord
	if err := s.client.create(ctx, Game.Collection(), game.Attributes(), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// checkResponse maps error statuses to CMSError, wrapping ErrConflict for
// unique constraint violations.
func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return errors.NewRateLimitError("CMS rate limited the request")
	}

	apiMessage := extractAPIMessage(resp.Body())
	cmsErr := errors.NewCMSError(resp.StatusCode(), apiMessage)
	if isConflict(resp.StatusCode(), apiMessage) {
		return fmt.Errorf("%w: %w", ErrConflict, cmsErr)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, cmsErr)
	}
	return cmsErr
}

func isConflict(status int, message string) bool {
	if status == http.StatusConflict {
		return true
	}
	if status != http.StatusBadRequest {
		return false
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "already taken")
}

// extractAPIMessage pulls the human readable message out of a CMS error body.
func extractAPIMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return truncate(strings.TrimSpace(string(body)), 200)
	}

	if msg := rawString(payload.Message); msg != "" {
		return msg
	}
	if len(payload.Message) > 0 {
		// validation errors: [{"messages":[{"id":"...","message":"..."}]}]
		var nested []struct {
			Messages []struct {
				Message string `json:"message"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(payload.Message, &nested); err == nil {
			var parts []string
			for _, n := range nested {
				for _, m := range n.Messages {
					parts = append(parts, m.Message)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}

	var errObj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &errObj); err == nil && errObj.Message != "" {
		return errObj.Message
	}
	return rawString(payload.Error)
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
