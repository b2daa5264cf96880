package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold removes diacritical marks and lower-cases the input. Transform
// failures fall back to plain lower-casing so callers never lose the text.
func Fold(value string) string {
	folded, _, err := transform.String(foldTransformer, value)
	if err != nil {
		return strings.ToLower(value)
	}
	return strings.ToLower(folded)
}

// Normalize folds the input and collapses punctuation and whitespace runs
// into single spaces. The result is suitable for comparison keys.
func Normalize(value string) string {
	folded := Fold(value)
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits the normalized form of value into whitespace-separated tokens.
func Tokens(value string) []string {
	normalized := Normalize(value)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// TokenSet returns the tokens of value as a set.
func TokenSet(value string) map[string]struct{} {
	tokens := Tokens(value)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
