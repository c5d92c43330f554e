// Package keyword implements the keyword search channel (§4.3): a
// dependency-free BM25-style scorer that runs beside the vector channel and
// feeds the fusion stage a second ranked list.
//
// The tenant/ACL scoping shape is grounded on the corpus's bm25.go, which
// scoped a Postgres full-text query to a single owning user; here the same
// shape generalizes to a tenant id plus an ACL-group match, against
// whichever store implements ChunkSource.
package keyword

import (
	"strings"
	"unicode"
)

// stopWords is the fixed English closed-class set excluded from scoring.
// Resolves an Open Question left open by the distilled spec: the set is
// fixed rather than configurable per tenant, since unioned custom stop
// lists can't be validated against %any corpus without data the tenant
// config layer doesn't carry.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "of": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "with": true, "by": true, "from": true, "about": true,
	"as": true, "into": true, "through": true, "during": true, "before": true,
	"after": true, "above": true, "below": true, "between": true, "out": true,
	"over": true, "under": true, "again": true, "further": true, "then": true,
	"once": true, "here": true, "there": true, "when": true, "where": true,
	"why": true, "how": true, "all": true, "any": true, "both": true, "each": true,
	"few": true, "more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "nor": true, "not": true, "only": true, "own": true, "same": true,
	"so": true, "than": true, "too": true, "very": true, "just": true, "it": true,
	"its": true, "i": true, "you": true, "he": true, "she": true, "we": true, "they": true,
}

const minTokenLength = 3

// Tokenize lowercases text, splits on non-word boundaries, drops stop words
// and tokens shorter than three characters. An input with no surviving
// tokens returns an empty (non-nil-checked) slice.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTokenLength {
			continue
		}
		if stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// TermFrequency counts token occurrences within a tokenized document.
func TermFrequency(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
