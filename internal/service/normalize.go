package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes and drops combining marks, so "Catálogo" and
// "Catalogo" fold to the same key.
var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, strips accents and collapses whitespace. All name and
// label comparisons in the pipeline go through this.
func Fold(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}
