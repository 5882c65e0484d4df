package ocr

import (
	"strings"
	"unicode"
)

// turkishFold maps Turkish letters to their closest ASCII equivalent so OCR
// output compares stably against registry entries.
var turkishFold = map[rune]rune{
	'İ': 'I',
	'Ğ': 'G',
	'Ç': 'C',
	'Ş': 'S',
	'Ö': 'O',
	'Ü': 'U',
}

// Normalize canonicalizes an OCR hypothesis: uppercase, fold locale letters
// to ASCII, strip everything that is not an ASCII letter or digit.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToUpper(text) {
		if folded, ok := turkishFold[r]; ok {
			r = folded
		}
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PlateLike is the minimum sanity filter for a normalized read: at least
// five characters and at least one digit. It deliberately accepts some
// false positives; the decision layer's sensitivity threshold filters again.
func PlateLike(normalized string) bool {
	if len(normalized) < 5 {
		return false
	}
	for _, r := range normalized {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
