// ABOUTME: Tokenization and stopword filtering for similarity and keyword matching
// ABOUTME: Stopword sets are keyed by primary language subtag, not English-only

package text

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases s and splits it on anything that is not a letter or digit.
// Apostrophes split too, so elisions like "l'économie" leave a one-letter fragment
// that ContentTokens discards.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}

// NormalizeLanguage reduces a language tag such as "en-US" or "EN_gb" to "en"
func NormalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

// IsStopword reports whether token is a stopword in any of langs.
// With no known language the union of all sets is used.
func IsStopword(token string, langs ...string) bool {
	known := false
	for _, lang := range langs {
		set, ok := stopwords[NormalizeLanguage(lang)]
		if !ok {
			continue
		}
		known = true
		if _, hit := set[token]; hit {
			return true
		}
	}
	if known {
		return false
	}
	_, hit := allStopwords[token]
	return hit
}

// ContentTokens returns the tokens of s that are not stopwords and carry meaning
func ContentTokens(s string, langs ...string) []string {
	tokens := Tokenize(s)
	out := tokens[:0]
	for _, tok := range tokens {
		if len([]rune(tok)) < 2 && !isCJK(tok) {
			continue
		}
		if IsStopword(tok, langs...) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// TokenSet returns the distinct content tokens of s
func TokenSet(s string, langs ...string) map[string]struct{} {
	tokens := ContentTokens(s, langs...)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func isCJK(tok string) bool {
	for _, r := range tok {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
