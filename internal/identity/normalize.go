// Package identity decides whether a newly observed animal record refers to
// an already-known animal, and with what confidence.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks so accented names compare equal
// ("Céleste" and "Celeste" are the same horse to most registries).
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

var namePunctReplacer = strings.NewReplacer(
	"'", "",
	"\"", "",
	",", "",
	".", "",
	"-", " ",
	"&", " AND ",
)

// NormalizeName standardizes an animal name for matching: trim, uppercase,
// fold diacritics, strip punctuation, collapse spaces.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(foldTransformer, name); err == nil {
		name = folded
	}

	name = strings.ToUpper(name)
	name = namePunctReplacer.Replace(name)
	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
