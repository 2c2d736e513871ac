package intent

import (
	"regexp"
	"strings"
	"unicode"
)

// fillers are removed as whole words, longest first.
var fillers = []string{
	"i'd like you to", "i want you to",
	"could you", "can you", "would you", "will you", "for me",
	"please", "kindly",
	"okay", "ok", "um", "uh",
	"my", "your", "the",
}

var fillerRe = regexp.MustCompile(`(?:^|\s)(?:` + alternation(fillers) + `)(?:\s|$)`)

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// Normalize lowercases text, removes punctuation (keeping digits, "%", a "."
// between digits and a "'" between letters), strips filler phrases and
// collapses whitespace.
func Normalize(text string) string {
	runes := []rune(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '%':
			b.WriteRune(r)
		case r == '.' && between(runes, i, unicode.IsDigit):
			b.WriteRune(r)
		case (r == '\'' || r == '’') && between(runes, i, unicode.IsLetter):
			b.WriteRune('\'')
		default:
			b.WriteRune(' ')
		}
	}
	s := " " + strings.Join(strings.Fields(b.String()), " ") + " "
	// Adjacent fillers share a separating space, so repeat until stable.
	for {
		next := fillerRe.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	return strings.Join(strings.Fields(s), " ")
}

func between(runes []rune, i int, class func(rune) bool) bool {
	return i > 0 && i < len(runes)-1 && class(runes[i-1]) && class(runes[i+1])
}
