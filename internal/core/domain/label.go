package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CanonicalLabel reduces a free-text identifier (vehicle type, brand, model,
// line) to its canonical form: uppercase, diacritics stripped, runs of
// non-alphanumeric characters collapsed to a single space, trimmed. Empty or
// absent input maps to the empty string. It is idempotent and is the single
// source of truth for segment equality across training, storage and
// inference.
func CanonicalLabel(value string) string {
	text := strings.ToUpper(strings.TrimSpace(value))
	text = stripCombiningMarks(text)

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

func stripCombiningMarks(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
