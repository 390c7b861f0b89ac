package cms

import "fmt"

// Kind selects a CMS content type.
type Kind int

const (
	Developer Kind = iota
	Publisher
	Category
	Platform
	Game
)

var kindInfo = map[Kind]struct {
	name       string
	collection string
}{
	Developer: {"developer", "developers"},
	Publisher: {"publisher", "publishers"},
	Category:  {"category", "categories"},
	Platform:  {"platform", "platforms"},
	Game:      {"game", "games"},
}

// RelatedKinds returns the named-entity kinds a game references.
func RelatedKinds() []Kind {
	return []Kind{Developer, Publisher, Category, Platform}
}

// String returns the singular model name, also used as the upload ref.
func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Collection returns the REST collection and table name of the kind.
func (k Kind) Collection() string {
	return kindInfo[k].collection
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindInfo[k]
	return ok
}

// MarshalText implements encoding.TextMarshaler so kinds read well in reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
