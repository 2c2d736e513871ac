package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// pattern pairs a regex with a builder. build may decline (return false),
// for example when a numeric slot is malformed; the rule then tries its next
// pattern.
type pattern struct {
	re    *regexp.Regexp
	build func(m []string) (Intent, bool)
}

// patternRule is a named, ordered list of patterns sharing one confidence.
type patternRule struct {
	name       string
	confidence float64
	patterns   []pattern
}

func (r *patternRule) Name() string { return r.name }

func (r *patternRule) Match(norm string) (Intent, bool) {
	for _, p := range r.patterns {
		m := p.re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		in, ok := p.build(m)
		if !ok {
			continue
		}
		in.Confidence = r.confidence
		if in.Slots == nil {
			in.Slots = map[string]string{}
		}
		if in.Numbers == nil {
			in.Numbers = map[string]int{}
		}
		return in, true
	}
	return Intent{}, false
}

// DefaultRules returns the built-in rules in priority order.
func DefaultRules(now func() time.Time) []Rule {
	return []Rule{
		systemRule(),
		webSearchRule(),
		openAndSearchRule(),
		openAppRule(),
		openFolderRule(),
		openFileRule(),
		farewellRule(),
		chatRule{now: now},
	}
}

const (
	volumeNoun     = `(?:volume|sound)`
	brightnessNoun = `(?:brightness|screen brightness|display brightness)`
	upVerbs        = `increase|raise|boost|turn up`
	downVerbs      = `decrease|lower|reduce|turn down`
	percentSuffix  = `(?:\s*%|\s+percent)?`
	device         = `(?:\s+(?:computer|pc|system|laptop))?`
)

func re(expr string) *regexp.Regexp { return regexp.MustCompile(expr) }

// parseLevel accepts a non-negative integer no greater than 100.
func parseLevel(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// parseCount accepts any non-negative integer.
func parseCount(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func direction(words ...string) int {
	for _, w := range words {
		switch w {
		case "up", "increase", "raise", "boost", "turn up", "louder", "brighter":
			return 1
		case "down", "decrease", "lower", "reduce", "turn down", "quieter", "softer", "dimmer", "dim screen":
			return -1
		}
	}
	return 0
}

func numeric(action Action, key string, n int) Intent {
	return Intent{Action: action, Numbers: map[string]int{key: n}}
}

// levelControl builds the absolute, relative-with-amount and
// relative-without-amount patterns for volume or brightness. A "to N"
// target always wins over a direction word.
func levelControl(noun string, set, adjust Action, softer, louder string) []pattern {
	absolute := func(m []string) (Intent, bool) {
		n, ok := parseLevel(m[1])
		if !ok {
			return Intent{}, false
		}
		return numeric(set, NumLevel, n), true
	}
	return []pattern{
		{
			re:    re(`^(?:(?:set|change|turn|put|make|adjust)\s+)?(?:(?:up|down)\s+)?` + noun + `(?:\s+(?:up|down|level))?\s+(?:to|at)\s+(\S+?)` + percentSuffix + `$`),
			build: absolute,
		},
		{
			re:    re(`^` + noun + `\s+(\S+?)` + percentSuffix + `$`),
			build: absolute,
		},
		{
			re: re(`^(?:(` + upVerbs + `|` + downVerbs + `)\s+` + noun + `|(?:turn\s+)?` + noun + `\s+(up|down))\s+by\s+(\S+?)` + percentSuffix + `$`),
			build: func(m []string) (Intent, bool) {
				n, ok := parseCount(m[3])
				if !ok {
					return Intent{}, false
				}
				return numeric(adjust, NumDelta, direction(m[1], m[2])*n), true
			},
		},
		{
			re: re(`^(?:(` + upVerbs + `|` + downVerbs + `)\s+` + noun + `|(?:turn\s+)?` + noun + `\s+(up|down)|(` + louder + `|` + softer + `))$`),
			build: func(m []string) (Intent, bool) {
				return numeric(adjust, NumDelta, direction(m[1], m[2], m[3])*10), true
			},
		},
	}
}

func delaySeconds(amount, unit string) (int, bool) {
	if amount == "" {
		return 0, true
	}
	n, ok := parseCount(amount)
	if !ok {
		return 0, false
	}
	if strings.HasPrefix(unit, "min") {
		n *= 60
	}
	return n, true
}

func power(action Action) func(m []string) (Intent, bool) {
	return func(m []string) (Intent, bool) {
		d, ok := delaySeconds(m[1], m[2])
		if !ok {
			return Intent{}, false
		}
		return numeric(action, NumDelay, d), true
	}
}

const delaySuffix = `(?:\s+in\s+(\S+)\s+(seconds?|secs?|minutes?|mins?))?$`

func systemRule() Rule {
	fixed := func(a Action) func([]string) (Intent, bool) {
		return func([]string) (Intent, bool) { return Intent{Action: a}, true }
	}
	patterns := levelControl(volumeNoun, ActionSetVolume, ActionAdjustVolume, "quieter|softer", "louder")
	patterns = append(patterns,
		pattern{re: re(`^(?:mute|silence)(?:\s+(?:volume|sound|audio|computer|it))?$`), build: fixed(ActionMute)},
		pattern{re: re(`^unmute(?:\s+(?:volume|sound|audio|computer|it))?$`), build: func([]string) (Intent, bool) {
			return numeric(ActionSetVolume, NumLevel, 50), true
		}},
		pattern{re: re(`^(?:(?:what's|what is|whats|check|get|tell me)\s+(?:current\s+)?` + volumeNoun + `(?:\s+level)?|how loud is it)$`), build: fixed(ActionGetVolume)},
	)
	patterns = append(patterns, levelControl(brightnessNoun, ActionSetBrightness, ActionAdjustBrightness, "dimmer|dim screen", "brighter")...)
	patterns = append(patterns,
		pattern{re: re(`^(?:take\s+(?:a\s+)?)?(?:screenshot|screen shot|screen capture)$|^capture\s+screen$`), build: fixed(ActionScreenshot)},
		pattern{re: re(`^(?:(?:shutdown|shut down|power off|power down)` + device + `|turn off\s+(?:computer|pc|system|laptop))` + delaySuffix), build: power(ActionShutdown)},
		pattern{re: re(`^(?:restart|reboot)` + device + delaySuffix), build: power(ActionRestart)},
		pattern{re: re(`^(?:sleep|suspend|hibernate|go to sleep)` + device + `$`), build: fixed(ActionSleep)},
		pattern{re: re(`^(?:(?:open|show)\s+)?(?:system\s+(?:info|information|status)|battery(?:\s+(?:status|level))?|how(?:'s| is)\s+system(?:\s+doing)?)$`), build: fixed(ActionSystemInfo)},
	)
	return &patternRule{name: "system", confidence: ConfidenceSystem, patterns: patterns}
}

func webSearchRule() Rule {
	return &patternRule{name: "web_search", confidence: ConfidenceWebSearch, patterns: []pattern{{
		re: re(`^(?:search\s+(?:web|online|internet)\s+for|search\s+for|search\s+(?:web|online|internet)|google|look\s+up|search)\s+(.+)$`),
		build: func(m []string) (Intent, bool) {
			q := strings.TrimSpace(m[1])
			// "search file report" belongs to the file rule.
			if q == "" || strings.HasPrefix(q, "file") || strings.HasPrefix(q, "folder") {
				return Intent{}, false
			}
			return Intent{Action: ActionWebSearch, Slots: map[string]string{SlotQuery: q}}, true
		},
	}}}
}

func openAndSearchRule() Rule {
	return &patternRule{name: "open_and_search", confidence: ConfidenceOpenAndSearch, patterns: []pattern{{
		re: re(`^(?:open|launch|start)\s+(.+?)\s+and\s+search(?:\s+for)?\s+(.+)$`),
		build: func(m []string) (Intent, bool) {
			return Intent{Action: ActionOpenAndSearch, Slots: map[string]string{SlotApp: m[1], SlotQuery: m[2]}}, true
		},
	}}}
}

var containerWords = []string{"folder", "folders", "directory", "file", "files", "document"}

func openAppRule() Rule {
	return &patternRule{name: "open_app", confidence: ConfidenceOpenApp, patterns: []pattern{{
		re: re(`^(?:open|launch|start|run)\s+(.+)$`),
		build: func(m []string) (Intent, bool) {
			words := strings.Fields(m[1])
			for _, w := range containerWords {
				if containsPhrase(words, []string{w}) >= 0 {
					return Intent{}, false
				}
			}
			if endsWithFileKeyword(words) {
				return Intent{}, false
			}
			return Intent{Action: ActionOpenApp, Slots: map[string]string{SlotApp: m[1]}}, true
		},
	}}}
}

func openFolderRule() Rule {
	build := func(m []string) (Intent, bool) {
		return Intent{Action: ActionOpenFolder, Slots: map[string]string{SlotFolder: strings.TrimSpace(m[1])}}, true
	}
	return &patternRule{name: "open_folder", confidence: ConfidenceOpenFolder, patterns: []pattern{
		{re: re(`^(?:open|show|go to)\s+(?:folder|directory)\s+(.+)$`), build: build},
		{re: re(`^(?:open|show|go to)\s+(.+?)\s+(?:folder|directory)$`), build: build},
	}}
}

func openFileRule() Rule {
	build := func(m []string) (Intent, bool) {
		words := strings.Fields(m[1])
		slots := map[string]string{}
		if ft, ok := detectFileType(words); ok {
			slots[SlotType] = ft.Name
			words = removePhrases(words, ft.Keywords...)
		}
		words = removePhrases(words, "file", "files", "called", "named")
		slots[SlotName] = strings.Join(words, " ")
		return Intent{Action: ActionOpenFile, Slots: slots}, true
	}
	var keywords []string
	for _, ft := range fileTypes {
		keywords = append(keywords, ft.Keywords...)
	}
	return &patternRule{name: "open_file", confidence: ConfidenceOpenFile, patterns: []pattern{
		{re: re(`^(?:open|find|search|search for|look for)\s+file\b\s*(.*)$`), build: build},
		{re: re(`^(?:open|find|search for|look for)\s+(.+\s(?:` + alternation(keywords) + `)(?:\s+file)?)$`), build: build},
	}}
}

func farewellRule() Rule {
	return &patternRule{name: "farewell", confidence: ConfidenceFarewell, patterns: []pattern{{
		re: re(`(?:^|\s)(?:thank you|thanks|thank|goodbye|good bye|bye|that's all|that is all|thats all|stop listening|go away)(?:\s|$)`),
		build: func([]string) (Intent, bool) {
			return Intent{Action: ActionFarewell}, true
		},
	}}}
}

// chatRule always matches and answers from the canned replies.
type chatRule struct {
	now func() time.Time
}

func (chatRule) Name() string { return "chat" }

func (r chatRule) Match(norm string) (Intent, bool) {
	return Intent{
		Action:     ActionChat,
		Slots:      map[string]string{SlotResponse: cannedReply(norm, r.now())},
		Numbers:    map[string]int{},
		Confidence: ConfidenceChat,
	}, true
}
