package companies

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug derives the public slug from a company name: lowercase, every run of characters outside a-z0-9
// collapsed into one hyphen, hyphens trimmed from both ends.
func GenerateSlug(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
