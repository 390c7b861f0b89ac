// Package cms is the content store the catalog is written to. Backend bundles
// the entity services and the file uploader; Client talks to a remote CMS
// over REST and SQLiteStore keeps everything in a local database.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	// ErrConflict is returned when a record with the same unique name already exists.
	ErrConflict = errors.New("record already exists")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)

// ID is a record id. Remote CMSs use numbers or strings, both are accepted.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	// only canonical integers go out unquoted: "007" or "+5" would be invalid JSON
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Entity is a developer, publisher, category or platform record.
type Entity struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// GameRecord is a game as read back from the CMS.
type GameRecord struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	ReleaseDate      string `json:"release_date,omitempty"`
	ShortDescription string `json:"short_description,omitempty"`
	Description      string `json:"description,omitempty"`
	Rating           string `json:"rating,omitempty"`
}

// GameInput holds the attributes of a game to create.
type GameInput struct {
	Name             string
	Slug             string
	Price            decimal.Decimal
	ReleaseDate      string
	ShortDescription string
	Description      string
	Rating           string
	Categories       []ID
	Platforms        []ID
	Developers       []ID
	Publisher        *ID
}

// Attributes returns the request body of a game create call.
func (g GameInput) Attributes() map[string]any {
	attrs := map[string]any{
		"name":       g.Name,
		"slug":       g.Slug,
		"price":      g.Price.InexactFloat64(),
		"categories": idList(g.Categories),
		"platforms":  idList(g.Platforms),
		"developers": idList(g.Developers),
	}
	if g.ReleaseDate != "" {
		attrs["release_date"] = g.ReleaseDate
	}
	if g.ShortDescription != "" {
		attrs["short_description"] = g.ShortDescription
	}
	if g.Description != "" {
		attrs["description"] = g.Description
	}
	if g.Rating != "" {
		attrs["rating"] = g.Rating
	}
	if g.Publisher != nil {
		attrs["publisher"] = *g.Publisher
	}
	return attrs
}

func idList(ids []ID) []ID {
	if ids == nil {
		return []ID{}
	}
	return ids
}

// Upload is a file to attach to a record field.
type Upload struct {
	RefID       ID
	Ref         string
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// File is a stored upload.
type File struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime,omitempty"`
	Size int    `json:"size,omitempty"`
	URL  string `json:"url,omitempty"`
}

// EntityService finds and creates records of one named-entity kind.
type EntityService interface {
	FindByName(ctx context.Context, name string) ([]Entity, error)
	Create(ctx context.Context, entity Entity) (*Entity, error)
}

// GameService finds and creates games.
type GameService interface {
	FindByName(ctx context.Context, name string) ([]GameRecord, error)
	Create(ctx context.Context, game GameInput) (*GameRecord, error)
}

// Uploader stores files and links them to records.
type Uploader interface {
	Upload(ctx context.Context, upload Upload) (*File, error)
}

// Backend bundles everything the populate pipeline writes to.
type Backend interface {
	Uploader
	Entities(kind Kind) EntityService
	Games() GameService
}
