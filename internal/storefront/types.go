package storefront

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one entry of a catalog page, as served by the storefront
type Product struct {
	ID                        int64     `json:"id"`
	Title                     string    `json:"title"`
	Slug                      string    `json:"slug"`
	Price                     Price     `json:"price"`
	GlobalReleaseDate         Timestamp `json:"globalReleaseDate"`
	ReleaseDate               Timestamp `json:"releaseDate"`
	Genres                    []string  `json:"genres"`
	SupportedOperatingSystems []string  `json:"supportedOperatingSystems"`
	Developer                 string    `json:"developer"`
	Publisher                 string    `json:"publisher"`
	Image                     string    `json:"image"`
	Gallery                   []string  `json:"gallery"`
}

// Price holds the storefront's price fields
type Price struct {
	Amount       decimal.Decimal `json:"amount"`
	BaseAmount   decimal.Decimal `json:"baseAmount"`
	IsDiscounted bool            `json:"isDiscounted"`
	Symbol       string          `json:"symbol"`
}

// Released returns the global release date, falling back to the regional one
func (p Product) Released() Timestamp {
	if !p.GlobalReleaseDate.IsZero() {
		return p.GlobalReleaseDate
	}
	return p.ReleaseDate
}

// CatalogPage is one response of the filtered listing endpoint
type CatalogPage struct {
	Products        []Product `json:"products"`
	Page            int       `json:"page"`
	TotalPages      int       `json:"totalPages"`
	TotalGamesFound int       `json:"totalGamesFound"`
}

// Detail holds the fields scraped from a product page
type Detail struct {
	Rating           string `json:"rating"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
}

// Image is a downloaded storefront image
type Image struct {
	URL         string
	ContentType string
	Data        []byte
}

// Timestamp is a unix timestamp in seconds. The storefront sends it either
// as a JSON number or as a numeric string.
type Timestamp int64

// UnmarshalJSON accepts numbers, numeric strings and null
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = 0
			return nil
		}
		raw = s
	}

	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	*t = Timestamp(secs)
	return nil
}

// IsZero reports whether the timestamp is unset
func (t Timestamp) IsZero() bool {
	return t == 0
}

// Time converts the timestamp to UTC time
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// ISO8601 formats the timestamp with millisecond precision in UTC,
// e.g. 2021-01-01T00:00:00.000Z. An unset timestamp yields "".
func (t Timestamp) ISO8601() string {
	if t.IsZero() {
		return ""
	}
	return t.Time().Format("2006-01-02T15:04:05.000Z")
}

// ParseTimestamp parses epoch seconds given as a string
func ParseTimestamp(s string) (Timestamp, error) {
	var t Timestamp
	if err := t.UnmarshalJSON([]byte(strconv.Quote(s))); err != nil {
		return 0, err
	}
	return t, nil
}
