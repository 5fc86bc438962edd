// Package normalize derives comparison keys from captured context so that the same
// utterance captured twice is recognised as one.
// Key pipeline order
// 1 Sanitize control bytes and drop invalid UTF-8
// 2 Truncate to the first KeyPrefix runes
// 3 Unicode NFKC normalization
// 4 Case folding
// 5 Remove combining marks, format chars, punctuation and symbols
// 6 Width fold fullwidth to ASCII
// 7 Collapse whitespace to single spaces and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// KeyPrefix is the number of runes of context that participate in a key
const KeyPrefix = 100

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)), // combining marks
			runes.Remove(runes.In(unicode.Cf)), // ZWJ ZWNJ FEFF etc
			runes.Remove(runes.In(unicode.P)),
			runes.Remove(runes.In(unicode.S)),
			width.Fold,
		)
	},
}

// ContextKey returns the dedup key for a captured context.
// Two contexts with equal keys are considered the same learning moment
func ContextKey(s string) string {
	if s == "" {
		return ""
	}
	s = Sanitize(s)
	s = truncateRunes(s, KeyPrefix)

	tr := chainPool.Get().(transform.Transformer)
	ks, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		// fall back to the plain lower-cased prefix
		ks = strings.ToLower(s)
	}
	return collapseSpaces(ks)
}

// Sanitize drops invalid UTF-8 and every control character except \n, \r and \t
// (NUL, the rest of C0, DEL and C1). Clean input is returned unchanged
func Sanitize(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, unwanted) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unwanted(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}

func unwanted(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t'
}

// truncateRunes keeps at most n runes of s
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// collapseSpaces converts whitespace runs, line breaks included, to a single ASCII space and trims the edges
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
