package ai

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "médio" -> "medio").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeLabel normalizes a model-returned descriptor for comparison and
// display (lowercase, no diacritics, single separator style). Models phrase
// the same label many ways ("Medium-Light", "medium light"); downstream code
// relies on a canonical form.
func NormalizeLabel(label string) string {
	label = RemoveDiacritics(label)
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, "_", " ")
	label = strings.Join(strings.Fields(label), " ")
	return strings.ReplaceAll(label, " ", "-")
}
