package usage

import (
	"cmp"
	"fmt"
	"slices"
)

// minSuggestUses is how many opens in the same hour make a habit.
const minSuggestUses = 3

// Suggest returns a hint for hour (0-23) naming the application most often
// opened within an hour of it, or "" when no application was opened at
// least three times around then.
func Suggest(s Snapshot, hour int) string {
	type cand struct {
		app  string
		uses int
	}
	var cands []cand
	for app, u := range s.AppUsage {
		n := 0
		for _, h := range u.Hours {
			if hourDistance(h, hour) <= 1 {
				n++
			}
		}
		if n >= minSuggestUses {
			cands = append(cands, cand{app, n})
		}
	}
	if len(cands) == 0 {
		return ""
	}
	slices.SortFunc(cands, func(a, b cand) int {
		if c := cmp.Compare(b.uses, a.uses); c != 0 {
			return c
		}
		return cmp.Compare(a.app, b.app)
	})
	return fmt.Sprintf("You usually open %s around this time", cands[0].app)
}

// hourDistance is the distance between two hours on a 24-hour clock.
func hourDistance(a, b int) int {
	d := (a - b + 24) % 24
	return min(d, 24-d)
}

// TopCommands returns up to n actions ordered by frequency.
func TopCommands(s Snapshot, n int) []string {
	actions := make([]string, 0, len(s.CommandFrequency))
	for a := range s.CommandFrequency {
		actions = append(actions, a)
	}
	slices.SortFunc(actions, func(a, b string) int {
		if c := cmp.Compare(s.CommandFrequency[b], s.CommandFrequency[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(actions) > n {
		actions = actions[:n]
	}
	return actions
}
