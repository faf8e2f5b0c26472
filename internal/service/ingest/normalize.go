package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName produces the matching key for a person's name as typed on a
// scanner or in the employee directory: accents stripped, case folded,
// punctuation and symbols removed, whitespace collapsed.
//
// "  José  DELA-CRUZ, Jr. " -> "jose delacruz jr"
func NormalizeName(name string) string {
	// Transformers and casers keep state, so build them per call.
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripMarks, name)
	if err != nil {
		s = name
	}
	s = cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
