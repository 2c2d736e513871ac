package resolve

import (
	"slices"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// DefaultSimilarityCutoff is the lowest [Similarity] accepted as a match.
const DefaultSimilarityCutoff = 0.6

// Similarity returns 2*LCS(a, b) / (len(a) + len(b)) over runes, in [0, 1].
func Similarity(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchr.LongestCommonSubsequence(a, b)) / float64(total)
}

// closest returns the key of entries most similar to query with a score of
// at least cutoff. Ties go to the lexically smallest key.
func closest(entries map[string]string, query string, cutoff float64) (string, bool) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	best, bestScore := "", -1.0
	for _, k := range keys {
		if s := Similarity(query, k); s > bestScore {
			best, bestScore = k, s
		}
	}
	if best == "" || bestScore < cutoff {
		return "", false
	}
	return best, true
}

// match looks query up exactly, then by similarity.
func match(entries map[string]string, query string, cutoff float64) (key, path string, fuzzy, ok bool) {
	if p, hit := entries[query]; hit {
		return query, p, false, true
	}
	if k, hit := closest(entries, query, cutoff); hit {
		return k, entries[k], true, true
	}
	return "", "", false, false
}
