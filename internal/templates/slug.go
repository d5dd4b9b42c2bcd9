package templates

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// emptySlug stands in for names with no slug-able characters.
const emptySlug = "unknown"

// Slugify lowercases s, folds accents and joins alphanumeric runs with "_".
func Slugify(s string) string {
	return SlugifySep(s, "_")
}

// SlugifySep is Slugify with a custom separator.
func SlugifySep(s, sep string) string {
	// Chains keep internal state and are not safe to share.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteString(sep)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return emptySlug
	}
	return b.String()
}
