package wake

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// maxLeadingTokens bounds how far into a fragment the phonetic layer looks
// for the wake phrase.
const maxLeadingTokens = 3

// phoneticMatcher compares leading token windows of a fragment with the wake
// phrase. A window is a candidate when it shares a Double Metaphone code with
// the phrase; it matches when its Jaro-Winkler similarity to the phrase
// reaches the threshold.
type phoneticMatcher struct {
	phrase    string
	tokens    []string
	codes     map[string]struct{}
	threshold float64
}

func newPhoneticMatcher(phrase string, threshold float64) *phoneticMatcher {
	tokens := tokenize(strings.ToLower(phrase))
	return &phoneticMatcher{
		phrase:    strings.Join(tokens, " "),
		tokens:    tokens,
		codes:     codesForTokens([]string{strings.Join(tokens, "")}),
		threshold: threshold,
	}
}

// match reports the best matching window and the tokens following it.
func (m *phoneticMatcher) match(lower string) (matched, trailing string, ok bool) {
	words := tokenize(lower)
	if len(words) == 0 {
		return "", "", false
	}
	bestScore, bestEnd, bestStart := 0.0, -1, 0
	for start := 0; start < len(words) && start < maxLeadingTokens; start++ {
		// Windows up to one token longer than the phrase cover splits
		// such as "fry day" for "friday".
		for size := 1; size <= len(m.tokens)+1 && start+size <= len(words); size++ {
			window := words[start : start+size]
			joined := strings.Join(window, "")
			if !codesOverlap(codesForTokens([]string{joined}), m.codes) {
				continue
			}
			score := matchr.JaroWinkler(joined, strings.Join(m.tokens, ""), false)
			if score >= m.threshold && score > bestScore {
				bestScore, bestStart, bestEnd = score, start, start+size
			}
		}
	}
	if bestEnd < 0 {
		return "", "", false
	}
	return strings.Join(words[bestStart:bestEnd], " "), strings.Join(words[bestEnd:], " "), true
}

// tokenize splits on anything that is not a letter, digit or apostrophe.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// codesForTokens returns the union of the Double Metaphone codes of tokens.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
