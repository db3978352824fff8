// Package retrieval is the in-memory lexical search engine over menu items:
// a tokenizer, an Okapi BM25 index, the dietary hard filter and the hall
// aggregator built on top of them.
package retrieval

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it into maximal runs of letters and
// digits. No stemming or stop-word removal is applied, so a document's
// length is exactly its number of alphanumeric runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
