package project

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugWords caps how many words of the first user message end up in a
// session slug.
const maxSlugWords = 4

var nonSlugChars = regexp.MustCompile(`[^a-z0-9\s]+`)

// Slug derives a filesystem-safe, human-readable slug from a session's
// first user message. Accents are stripped via Unicode decomposition, a few
// symbols become words, everything else non-alphanumeric becomes a space,
// and the first few words are joined with hyphens. Returns "" for messages
// that yield no usable words.
func Slug(message string) string {
	if message == "" {
		return ""
	}

	// NFD decomposition, strip combining marks, recompose.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, _ := transform.String(t, message)
	normalized = strings.ToLower(normalized)

	normalized = strings.ReplaceAll(normalized, "@", " at ")
	normalized = strings.ReplaceAll(normalized, "&", " and ")
	normalized = strings.ReplaceAll(normalized, "#", " hash ")
	normalized = nonSlugChars.ReplaceAllString(normalized, " ")

	words := strings.Fields(normalized)
	if len(words) > maxSlugWords {
		words = words[:maxSlugWords]
	}
	if len(words) == 0 {
		return ""
	}

	slug := strings.Join(words, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
