// Package intent turns a spoken command into a typed [Intent].
//
// Text is first normalised (lowercase, punctuation and filler words
// removed), then tested against an ordered list of [Rule] values. The first
// rule that matches wins; every rule has a fixed confidence so callers can
// tell a strong match from the catch-all chat fallback. Parsing is pure and
// deterministic apart from the clock used by time and date replies.
package intent

import (
	"log/slog"
	"time"
)

// Action is the kind of thing the user asked for.
type Action string

const (
	ActionSetVolume        Action = "set_volume"
	ActionAdjustVolume     Action = "adjust_volume"
	ActionMute             Action = "mute"
	ActionGetVolume        Action = "get_volume"
	ActionSetBrightness    Action = "set_brightness"
	ActionAdjustBrightness Action = "adjust_brightness"
	ActionScreenshot       Action = "screenshot"
	ActionShutdown         Action = "shutdown"
	ActionRestart          Action = "restart"
	ActionSleep            Action = "sleep"
	ActionSystemInfo       Action = "system_info"
	ActionWebSearch        Action = "web_search"
	ActionOpenAndSearch    Action = "open_and_search"
	ActionOpenApp          Action = "open_app"
	ActionOpenFolder       Action = "open_folder"
	ActionOpenFile         Action = "open_file"
	ActionFarewell         Action = "farewell"
	ActionChat             Action = "chat"
)

// Slot names.
const (
	SlotApp      = "app"
	SlotQuery    = "query"
	SlotFolder   = "folder"
	SlotName     = "name"
	SlotType     = "type"
	SlotResponse = "response"
)

// Numeric slot names.
const (
	NumLevel = "level"
	NumDelta = "delta"
	NumDelay = "delay"
)

// Fixed confidences per rule category.
const (
	ConfidenceSystem        = 0.95
	ConfidenceWebSearch     = 0.9
	ConfidenceOpenAndSearch = 0.9
	ConfidenceOpenApp       = 0.85
	ConfidenceOpenFolder    = 0.85
	ConfidenceOpenFile      = 0.8
	ConfidenceFarewell      = 0.9
	ConfidenceChat          = 0.5
)

// Intent is the parsed form of one command. It is a value: Parse always
// returns fresh maps and callers must not modify them.
type Intent struct {
	Action     Action
	Slots      map[string]string
	Numbers    map[string]int
	Confidence float64

	// Rule is the name of the rule that matched.
	Rule string

	// Text is the normalised input.
	Text string
}

// Slot returns the named string slot or "".
func (i Intent) Slot(name string) string { return i.Slots[name] }

// Number returns the named numeric slot.
func (i Intent) Number(name string) (int, bool) {
	n, ok := i.Numbers[name]
	return n, ok
}

// Rule tests normalised text. Match must be pure.
type Rule interface {
	Name() string
	Match(normalized string) (Intent, bool)
}

// Option configures a [Parser].
type Option func(*Parser)

// WithClock sets the clock used for time and date replies.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithRules replaces the rule list. Used by tests.
func WithRules(rules ...Rule) Option {
	return func(p *Parser) { p.rules = rules }
}

// Parser applies rules in priority order. It is safe for concurrent use.
type Parser struct {
	now   func() time.Time
	rules []Rule
}

// NewParser returns a Parser with the default rules:
// system operations, web search, open-and-search, open app, open folder,
// open file, farewell and the chat fallback.
func NewParser(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, o := range opts {
		o(p)
	}
	if p.rules == nil {
		p.rules = DefaultRules(p.now)
	}
	return p
}

// Rules returns the rule names in evaluation order.
func (p *Parser) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name()
	}
	return names
}

// Parse normalises text and returns the intent of the first matching rule.
// When nothing matches (only possible with custom rules) it returns a chat
// intent with the default reply.
func (p *Parser) Parse(text string) Intent {
	norm := Normalize(text)
	for _, r := range p.rules {
		in, ok := r.Match(norm)
		if !ok {
			continue
		}
		in.Rule = r.Name()
		in.Text = norm
		slog.Debug("intent: matched", "rule", in.Rule, "action", in.Action, "text", norm)
		return in
	}
	return Intent{
		Action:     ActionChat,
		Slots:      map[string]string{SlotResponse: defaultReply},
		Numbers:    map[string]int{},
		Confidence: ConfidenceChat,
		Rule:       "none",
		Text:       norm,
	}
}
