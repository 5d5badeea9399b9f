// Package fuzzy scores how similar two short phrases are on a 0-100 scale.
package fuzzy

import (
	"strings"
	"unicode"

	fuzzywuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TokenSet compares phrases as sets of words, so word order, repeated words
// and extra words on one side weigh little. "Machine Learning" and
// "learning, machine" score 100.
type TokenSet struct{}

// Ratio implements the token-set ratio.
func (TokenSet) Ratio(a, b string) int {
	return TokenSetRatio(a, b)
}

// TokenSetRatio normalizes both phrases and scores them with fuzzywuzzy's
// token-set ratio. Either side empty after normalization gives 0.
func TokenSetRatio(a, b string) int {
	pa := Normalize(a)
	pb := Normalize(b)
	if pa == "" || pb == "" {
		return 0
	}

	return fuzzywuzzy.TokenSetRatio(pa, pb)
}

// Normalize folds case, strips diacritics and turns every run of characters
// that are not letters or digits into a single space.
func Normalize(s string) string {
	// transformers and casers keep state, so they are built per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = s
	}

	folded := cases.Fold().String(decomposed)

	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	return strings.Join(strings.Fields(mapped), " ")
}
