// Package normalize canonicalizes OCR output so the field patterns only
// need one spelling per label and one digit alphabet.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// Normalize decomposes text, strips combining marks, folds Arabic letter
// variants and digits, and collapses whitespace to single spaces.
// It is total and idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded, _, err := transform.String(newFolder(), text)
	if err != nil {
		// transformers in the chain never fail on valid or invalid UTF-8;
		// keep the input rather than lose it
		folded = text
	}
	return strings.Join(strings.Fields(folded), " ")
}

// newFolder builds a fresh chain per call; transform.Chain keeps buffers
// and is not safe for concurrent use.
func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == tatweel })),
		runes.Map(foldRune),
	)
}

// foldRune maps OCR-interchangeable Arabic forms onto one letter and
// Arabic-Indic digits onto ASCII. Alef with hamza or madda is handled by
// NFKD plus mark removal.
func foldRune(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	switch r {
	case 'ٱ', 'ٲ', 'ٳ': // alef wasla, wavy hamza forms
		return 'ا'
	case 'ة': // ta marbuta
		return 'ه'
	case 'ى': // alef maksura
		return 'ي'
	case 'ی': // farsi yeh
		return 'ي'
	case 'ک': // keheh
		return 'ك'
	}
	return r
}
