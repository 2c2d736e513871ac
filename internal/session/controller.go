// Package session implements the wake/session state machine.
//
// The controller starts in [StateListening]. A wake phrase spoken alone opens
// a session ([StateActive]) that accepts commands until the user says
// goodbye, the inactivity timeout elapses, or the process shuts down. A wake
// phrase followed by a command in the same breath is a single shot: the
// command runs and no session is opened.
package session

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrSessionActive is returned by [Controller.OnWake] while a session is
// already active.
var ErrSessionActive = errors.New("session: a session is already active")

const (
	defaultTimeout         = 30 * time.Second
	defaultMinCommandChars = 2
)

// State is the controller state.
type State int

const (
	// StateListening waits for the wake phrase.
	StateListening State = iota

	// StateActive accepts commands until timeout or farewell.
	StateActive
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// EndReason records why a session ended.
type EndReason int

const (
	EndNone EndReason = iota
	EndTimeout
	EndFarewell
	EndShutdown
)

// String returns the reason name.
func (r EndReason) String() string {
	switch r {
	case EndTimeout:
		return "timeout"
	case EndFarewell:
		return "farewell"
	case EndShutdown:
		return "shutdown"
	default:
		return "none"
	}
}

// Transition is the outcome of a wake event.
type Transition int

const (
	// TransitionNone means nothing changed.
	TransitionNone Transition = iota

	// TransitionEnter opened a new session.
	TransitionEnter

	// TransitionSingleShot means the wake carried its own command, which the
	// caller dispatches without opening a session.
	TransitionSingleShot
)

// String returns the transition name.
func (t Transition) String() string {
	switch t {
	case TransitionEnter:
		return "enter"
	case TransitionSingleShot:
		return "single_shot"
	default:
		return "none"
	}
}

// Session describes one interaction window. Values returned by the
// controller are copies.
type Session struct {
	ID             string        `json:"id"`
	State          State         `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
	Timeout        time.Duration `json:"-"`
	EndReason      EndReason     `json:"-"`
	EndedAt        time.Time     `json:"ended_at,omitzero"`
	Commands       int           `json:"commands"`
}

// Config tunes a [Controller].
type Config struct {
	// Timeout is the inactivity window of a session. Default: 30s.
	Timeout time.Duration

	// MinCommandChars is the minimum length of a valid command. Callers
	// pass normalized text. Default: 2.
	MinCommandChars int
}

// Option configures a [Controller].
type Option func(*Controller)

// WithClock replaces time.Now. The clock must be monotonic for timeouts to
// behave; time.Now readings carry a monotonic component.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller is the wake/session state machine. At most one session is
// active at a time. All methods are safe for concurrent use.
type Controller struct {
	now func() time.Time

	mu      sync.Mutex
	cfg     Config
	active  *Session
	onEnd   []func(Session)
	started int
}

// NewController returns a Controller in [StateListening].
func NewController(cfg Config, opts ...Option) *Controller {
	c := &Controller{now: time.Now, cfg: withDefaults(cfg)}
	for _, o := range opts {
		o(c)
	}
	return c
}

func withDefaults(cfg Config) Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MinCommandChars <= 0 {
		cfg.MinCommandChars = defaultMinCommandChars
	}
	return cfg
}

// Reconfigure applies new tuning. An active session keeps its original
// timeout.
func (c *Controller) Reconfigure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = withDefaults(cfg)
}

// OnEnd registers fn to be called after every session ends. Callbacks run
// without the controller lock held.
func (c *Controller) OnEnd(fn func(Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnd = append(c.onEnd, fn)
}

// OnWake handles a detected wake phrase with the command spoken after it.
func (c *Controller) OnWake(trailing string) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return TransitionNone, ErrSessionActive
	}
	if strings.TrimSpace(trailing) != "" {
		return TransitionSingleShot, nil
	}
	now := c.now()
	c.active = &Session{
		ID:             uuid.NewString(),
		State:          StateActive,
		CreatedAt:      now,
		LastActivityAt: now,
		Timeout:        c.cfg.Timeout,
	}
	c.started++
	slog.Info("session: started", "session_id", c.active.ID, "timeout", c.cfg.Timeout)
	return TransitionEnter, nil
}

// Command reports whether text is a valid command. text should already be
// normalized so filler-only speech is rejected. A valid command received
// during an active session resets its inactivity timer.
func (c *Controller) Command(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if utf8.RuneCountInString(strings.TrimSpace(text)) < c.cfg.MinCommandChars {
		return false
	}
	if c.active != nil {
		c.active.LastActivityAt = c.now()
		c.active.Commands++
	}
	return true
}

// EndFarewell ends the active session immediately. It reports whether a
// session was active.
func (c *Controller) EndFarewell() bool { return c.end(EndFarewell, nil) }

// Shutdown ends any active session because the process is stopping.
func (c *Controller) Shutdown() bool { return c.end(EndShutdown, nil) }

// Poll ends the active session when its inactivity timeout has elapsed and
// reports whether it did.
func (c *Controller) Poll() bool {
	return c.end(EndTimeout, func(s *Session) bool {
		return c.now().Sub(s.LastActivityAt) >= s.Timeout
	})
}

// end is the single exit path of a session. When cond is non-nil the session
// ends only if cond holds; cond runs under the lock.
func (c *Controller) end(reason EndReason, cond func(*Session) bool) bool {
	c.mu.Lock()
	s := c.active
	if s == nil || (cond != nil && !cond(s)) {
		c.mu.Unlock()
		return false
	}
	c.active = nil
	s.State = StateListening
	s.EndReason = reason
	s.EndedAt = c.now()
	observers := slices.Clone(c.onEnd)
	c.mu.Unlock()

	slog.Info("session: ended", "session_id", s.ID, "reason", reason.String(),
		"commands", s.Commands, "duration", s.EndedAt.Sub(s.CreatedAt))
	for _, fn := range observers {
		fn(*s)
	}
	return true
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return StateActive
	}
	return StateListening
}

// Active returns a copy of the active session.
func (c *Controller) Active() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Session{}, false
	}
	return *c.active, true
}

// Remaining returns the time left before the active session times out.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0
	}
	return max(c.active.Timeout-c.now().Sub(c.active.LastActivityAt), 0)
}

// Started returns how many sessions have been opened.
func (c *Controller) Started() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}
