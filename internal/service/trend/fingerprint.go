package trend

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Stopwords removed during normalization: articles, conjunctions, and common
// prepositions that carry no problem identity.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {},
}

const maxSignificantWords = 20

// Normalize builds the problem signature from a solution and its reasoning:
// lowercase, tokenize on whitespace, drop stopwords and tokens shorter than
// three characters, keep the first 20 remaining tokens, then sort and join.
// Sorting after truncation means two analyses sharing the same leading
// significant-word multiset normalize identically regardless of word order.
func Normalize(solution, reasoning string) string {
	text := strings.ToLower(solution + " " + reasoning)

	var words []string
	for _, w := range strings.Fields(text) {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		words = append(words, w)
		if len(words) == maxSignificantWords {
			break
		}
	}

	sort.Strings(words)
	return strings.Join(words, " ")
}

// Fingerprint hashes a normalized problem signature into a stable hex digest.
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
