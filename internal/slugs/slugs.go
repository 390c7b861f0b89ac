// Package slugs builds the URL-safe identifiers stored on CMS records.
package slugs

import (
	"strings"

	"github.com/gosimple/slug"
)

// Make returns a lowercase slug made only of ASCII letters, digits and hyphens.
// Underscores become hyphens; accented letters are transliterated.
func Make(s string) string {
	out := slug.Make(strings.ReplaceAll(s, "_", "-"))
	// transliteration can emit underscores of its own
	out = strings.ReplaceAll(out, "_", "-")
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}

// ForGame normalizes the storefront slug of a product, falling back to its title.
func ForGame(productSlug, title string) string {
	if s := Make(productSlug); s != "" {
		return s
	}
	return Make(title)
}

// IsValid reports whether s is a non-empty strict slug.
func IsValid(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
