// Package wake decides whether a fast-profile transcript fragment contains
// the wake phrase and extracts any command spoken after it.
//
// Detection runs through layers in a fixed order and stops at the first hit:
// exact phrase or alias, known mis-transcriptions (the confusion table), very
// short fragments (a clipped "fri"), and an optional phonetic comparison.
// Detection is pure given a [Config]; [Detector.Reconfigure] swaps the
// configuration atomically so the tables can be hot-reloaded.
package wake

import (
	"cmp"
	"slices"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"
)

// Layer identifies which detection layer produced a match.
type Layer int

const (
	LayerNone Layer = iota
	LayerExact
	LayerConfusion
	LayerShort
	LayerPhonetic
)

// String returns the layer name used in logs and metrics.
func (l Layer) String() string {
	switch l {
	case LayerExact:
		return "exact"
	case LayerConfusion:
		return "confusion"
	case LayerShort:
		return "short"
	case LayerPhonetic:
		return "phonetic"
	default:
		return "none"
	}
}

// Config holds the wake tables.
type Config struct {
	// Phrase is the canonical wake phrase.
	Phrase string

	// Aliases are alternative phrasings that count as exact matches,
	// e.g. "hey friday".
	Aliases []string

	// Confusions are strings the transcription model is known to emit
	// instead of the wake phrase.
	Confusions []string

	// ShortMaxChars is the upper bound of the short-fragment heuristic. A
	// fragment of 1..ShortMaxChars non-whitespace characters is treated as
	// a clipped wake attempt. Zero disables the layer.
	ShortMaxChars int

	// PhoneticThreshold enables the phonetic layer when positive. It is the
	// minimum Jaro-Winkler similarity between a leading token window and
	// the phrase, among windows sharing a Double Metaphone code.
	PhoneticThreshold float64
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Phrase:        "friday",
		Aliases:       []string{"hey friday", "okay friday"},
		Confusions:    []string{"fry day", "fri day", "freddy", "fridey", "frieda", "fraiday"},
		ShortMaxChars: 3,
	}
}

// Result is the outcome of [Detector.Detect].
type Result struct {
	IsWake bool

	// Trailing is the command spoken after the wake phrase in the same
	// fragment, or empty.
	Trailing string

	Layer Layer

	// Matched is the table entry that matched, lowercased.
	Matched string
}

type compiled struct {
	cfg        Config
	exact      []string
	confusions []string
	phonetic   *phoneticMatcher
}

// Detector is safe for concurrent use.
type Detector struct {
	state atomic.Pointer[compiled]
}

// New returns a Detector for cfg.
func New(cfg Config) *Detector {
	d := &Detector{}
	d.Reconfigure(cfg)
	return d
}

// Reconfigure atomically replaces the configuration.
func (d *Detector) Reconfigure(cfg Config) {
	c := &compiled{
		cfg:        cfg,
		exact:      candidates(append([]string{cfg.Phrase}, cfg.Aliases...)),
		confusions: candidates(cfg.Confusions),
	}
	if cfg.PhoneticThreshold > 0 && strings.TrimSpace(cfg.Phrase) != "" {
		c.phonetic = newPhoneticMatcher(cfg.Phrase, cfg.PhoneticThreshold)
	}
	d.state.Store(c)
}

// Config returns the active configuration.
func (d *Detector) Config() Config { return d.state.Load().cfg }

// Detect classifies text.
func (d *Detector) Detect(text string) Result {
	c := d.state.Load()
	lower := strings.ToLower(text)

	if r, ok := matchSubstring(lower, c.exact, LayerExact); ok {
		return r
	}
	if r, ok := matchSubstring(lower, c.confusions, LayerConfusion); ok {
		return r
	}
	if n := nonSpaceLen(lower); n > 0 && n <= c.cfg.ShortMaxChars {
		return Result{IsWake: true, Layer: LayerShort, Matched: strings.TrimSpace(lower)}
	}
	if c.phonetic != nil {
		if matched, trailing, ok := c.phonetic.match(lower); ok {
			return Result{IsWake: true, Trailing: trailing, Layer: LayerPhonetic, Matched: matched}
		}
	}
	return Result{}
}

// candidates lowercases, trims and deduplicates entries and orders them
// longest first so that "hey friday" wins over "friday".
func candidates(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a))
	})
	return out
}

func matchSubstring(lower string, table []string, layer Layer) (Result, bool) {
	for _, cand := range table {
		if i := strings.Index(lower, cand); i >= 0 {
			return Result{
				IsWake:   true,
				Trailing: trimTrailing(lower[i+len(cand):]),
				Layer:    layer,
				Matched:  cand,
			}, true
		}
	}
	return Result{}, false
}

// trimTrailing strips surrounding whitespace and the punctuation that
// transcribers put between the wake phrase and the command.
func trimTrailing(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), ",.!?:;-"))
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
