package util

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// NormalizeName lowercases a name and strips punctuation, collapsing runs
// of whitespace to a single space. "Goods." and "goods" normalize to the
// same key, which is what alias and name matching rely on.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// NameTokens returns the normalized token set of a name.
func NameTokens(name string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(NormalizeName(name)) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// TokenSetSimilarity computes the Jaccard overlap of the two names' token
// sets: |intersection| / |union|, in [0,1]. Token order and punctuation do
// not matter, so "Smith, Jane" and "jane smith" score 1.0.
func TokenSetSimilarity(a, b string) float64 {
	ta := NameTokens(a)
	tb := NameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

var wordPatternCache sync.Map

// ContainsWholeWord reports whether text contains name as a whole word,
// case-insensitively. "Goods." matches "the Goods. initiative" but not
// "baked goodstuff".
func ContainsWholeWord(text, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || text == "" {
		return false
	}
	re := wordPattern(name)
	return re.MatchString(text)
}

func wordPattern(name string) *regexp.Regexp {
	if cached, ok := wordPatternCache.Load(name); ok {
		return cached.(*regexp.Regexp)
	}
	// Trailing punctuation in a name ("Goods.") breaks \b, so the
	// boundary is anchored on the alphanumeric core of the name.
	core := strings.TrimFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if core == "" {
		core = name
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(core) + `\b`)
	wordPatternCache.Store(name, re)
	return re
}

// Excerpt returns a snippet of text centered on the first whole-word
// occurrence of name, at most maxLen bytes, for use as edge evidence.
// The snippet is sanitized: evidence ends up in jsonb columns, which
// reject NUL bytes, and byte slicing can split a multi-byte rune.
func Excerpt(text, name string, maxLen int) string {
	if maxLen <= 0 || text == "" {
		return ""
	}
	loc := wordPattern(name).FindStringIndex(text)
	if loc == nil {
		if len(text) <= maxLen {
			return SanitizePostgresText(strings.TrimSpace(text))
		}
		return SanitizePostgresText(strings.TrimSpace(text[:maxLen]))
	}

	start := loc[0] - maxLen/2
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(text) {
		end = len(text)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}
	return SanitizePostgresText(strings.TrimSpace(text[start:end]))
}

// SanitizePostgresText strips NUL bytes and invalid UTF-8 so free text can
// be stored in a text column.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}
	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
