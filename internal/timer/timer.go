// Package timer implements the two-phase question countdown: an optional
// preparation ("thinking") window followed by a response window. The
// controller owns no clock of its own; the host drives it by calling Tick
// once per wall-clock second, which keeps the phase machine deterministic
// and directly testable.
package timer

import (
	"errors"
	"fmt"
)

// Phase is the countdown phase of a single question.
type Phase int

const (
	PhaseIdle Phase = iota // before Start
	PhaseThinking
	PhaseResponding
	PhaseExpired // response window lapsed
	PhaseStopped // explicit manual stop
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseThinking:
		return "thinking"
	case PhaseResponding:
		return "responding"
	case PhaseExpired:
		return "expired"
	case PhaseStopped:
		return "stopped"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether the phase ends the countdown for this question.
func (p Phase) Terminal() bool {
	return p == PhaseExpired || p == PhaseStopped
}

// ErrNoResponseWindow is returned by Start when the response window is zero.
var ErrNoResponseWindow = errors.New("timer: response time must be greater than zero")

// Config describes one question's countdown. It is captured at Start and
// never consulted again, so mutating it afterwards has no effect.
type Config struct {
	// ThinkTimeSeconds is the preparation window. Zero skips the thinking
	// phase entirely.
	ThinkTimeSeconds int

	// ResponseTimeSeconds is the capture window. Must be positive.
	ResponseTimeSeconds int

	// OnPhaseChange is invoked synchronously on entry to every phase,
	// including the initial one. Optional.
	OnPhaseChange func(Phase)

	// OnTimeExpired is invoked exactly once when the response window
	// reaches zero without a manual stop. Optional.
	OnTimeExpired func()
}

// Controller counts down one question's thinking and response windows.
// It is not safe for concurrent use; the host event loop must serialize
// Tick with the other methods.
type Controller struct {
	cfg       Config
	phase     Phase
	remaining int

	// inTransition guards against a callback re-entering the controller
	// and double-firing a transition. A transition requested while one is
	// already executing is dropped, not queued.
	inTransition bool
}

// New returns a Controller in the idle phase.
func New() *Controller {
	return &Controller{phase: PhaseIdle}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Remaining returns the seconds left in the current window. Zero once the
// controller is terminal or idle.
func (c *Controller) Remaining() int {
	return c.remaining
}

// Start begins the countdown described by cfg, discarding any prior state.
// With a positive think window it enters thinking; otherwise it enters
// responding directly. The initial phase change fires before Start returns.
func (c *Controller) Start(cfg Config) error {
	if cfg.ResponseTimeSeconds <= 0 {
		return ErrNoResponseWindow
	}
	if c.inTransition {
		return nil
	}

	c.cfg = cfg
	if cfg.ThinkTimeSeconds > 0 {
		c.transition(PhaseThinking, cfg.ThinkTimeSeconds)
	} else {
		c.transition(PhaseResponding, cfg.ResponseTimeSeconds)
	}
	return nil
}

// Tick advances the countdown by one second. The host calls it once per
// wall-clock second while the controller is in a running phase; ticks in
// any other phase are ignored.
//
// The order is decrement first, compare second: a window of N seconds is
// observed for exactly N ticks before its boundary fires.
func (c *Controller) Tick() {
	if c.inTransition {
		return
	}

	switch c.phase {
	case PhaseThinking:
		c.remaining--
		if c.remaining <= 0 {
			c.transition(PhaseResponding, c.cfg.ResponseTimeSeconds)
		}
	case PhaseResponding:
		c.remaining--
		if c.remaining <= 0 {
			c.expire()
		}
	}
}

// SkipThinking ends the thinking window immediately, entering responding
// with the full response window. No-op in any other phase.
func (c *Controller) SkipThinking() {
	if c.phase != PhaseThinking || c.inTransition {
		return
	}
	c.transition(PhaseResponding, c.cfg.ResponseTimeSeconds)
}

// Stop halts the countdown without firing the expiry callback. Idempotent:
// stopping an already-terminal controller is a no-op.
func (c *Controller) Stop() {
	if c.phase.Terminal() || c.phase == PhaseIdle || c.inTransition {
		return
	}
	c.transition(PhaseStopped, 0)
}

func (c *Controller) transition(to Phase, remaining int) {
	c.inTransition = true
	defer func() { c.inTransition = false }()

	c.phase = to
	c.remaining = remaining
	if c.cfg.OnPhaseChange != nil {
		c.cfg.OnPhaseChange(to)
	}
}

func (c *Controller) expire() {
	c.inTransition = true
	defer func() { c.inTransition = false }()

	c.phase = PhaseExpired
	c.remaining = 0
	if c.cfg.OnPhaseChange != nil {
		c.cfg.OnPhaseChange(PhaseExpired)
	}
	if c.cfg.OnTimeExpired != nil {
		c.cfg.OnTimeExpired()
	}
}
