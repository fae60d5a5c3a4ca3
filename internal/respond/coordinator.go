// Package respond binds one question's countdown to one capture session and
// guarantees that exactly one submission record leaves the pair, whichever
// of the trigger paths (manual submit, expiry, teardown) fires first, even
// when several fire at once.
package respond

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/muhameddgoda/lingoquesto-placement/internal/capture"
	"github.com/muhameddgoda/lingoquesto-placement/internal/timer"
)

// DefaultFlushGrace bounds how long an expiry waits for the device to
// flush before submitting whatever was captured.
const DefaultFlushGrace = 2 * time.Second

// ErrNotResponding is returned by Submit before the responding phase has
// begun. Early submission is deliberately rejected; skipping the thinking
// window is the supported shortcut.
var ErrNotResponding = errors.New("respond: cannot submit before the response window begins")

// Question is the identity and timing of one question instance. Each
// instance gets a fresh coordinator; replacing the instance requires
// disposing the old coordinator first.
type Question struct {
	ID                  string
	ThinkTimeSeconds    int
	ResponseTimeSeconds int
}

// State is the coordinator's own lifecycle, layered over the timer phase
// and the capture state.
type State int

const (
	StateIdle State = iota
	StateAwaitingThink
	StateCapturing
	StateCaptured
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingThink:
		return "awaiting-think"
	case StateCapturing:
		return "capturing"
	case StateCaptured:
		return "captured"
	case StateSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Hooks let the owning UI observe the coordinator. Both may be invoked
// from coordinator-owned goroutines, so implementations must be safe to
// call off the event loop (typically they forward into a channel).
type Hooks struct {
	// OnPhaseChange fires on every timer phase transition, display only.
	OnPhaseChange func(timer.Phase)

	// OnDelivered fires once the submission gate has run, with the record
	// that passed it and the submitter's error, if any.
	OnDelivered func(SubmissionRecord, error)
}

// Options tune a coordinator.
type Options struct {
	FlushGrace time.Duration
	Hooks      Hooks
	Logger     zerolog.Logger
}

// Coordinator drives one question: it starts the countdown on construction,
// starts capture when the response window opens, and routes every
// completion path through the submission gate.
type Coordinator struct {
	question Question
	timer    *timer.Controller
	session  *capture.Session
	gate     *Gate
	hooks    Hooks
	grace    time.Duration
	log      zerolog.Logger

	// finalizeMu serializes the trigger paths racing toward the gate, so
	// a second trigger always observes the first one's stop result instead
	// of delivering a premature nil artifact.
	finalizeMu sync.Mutex

	mu    sync.Mutex
	state State
	// inert is the teardown latch: once set, no in-flight continuation
	// bound to this question may apply an effect. This is what keeps a
	// stale callback from question N off question N+1.
	inert    bool
	artifact *capture.Artifact
}

// New builds a coordinator for one question instance and starts its
// countdown. The initial phase change (thinking, or responding when the
// think window is zero) fires before New returns.
func New(q Question, device capture.Device, submitter Submitter, opts Options) (*Coordinator, error) {
	grace := opts.FlushGrace
	if grace <= 0 {
		grace = DefaultFlushGrace
	}

	c := &Coordinator{
		question: q,
		timer:    timer.New(),
		session:  capture.NewSession(device),
		gate:     NewGate(submitter),
		hooks:    opts.Hooks,
		grace:    grace,
		log:      opts.Logger.With().Str("question_id", q.ID).Logger(),
		state:    StateIdle,
	}

	err := c.timer.Start(timer.Config{
		ThinkTimeSeconds:    q.ThinkTimeSeconds,
		ResponseTimeSeconds: q.ResponseTimeSeconds,
		OnPhaseChange:       c.onPhaseChange,
		OnTimeExpired:       c.onTimeExpired,
	})
	if err != nil {
		return nil, fmt.Errorf("start countdown for question %s: %w", q.ID, err)
	}
	return c, nil
}

// Tick advances the countdown by one second. The host calls it once per
// wall-clock second.
func (c *Coordinator) Tick() {
	c.timer.Tick()
}

// Phase returns the current timer phase.
func (c *Coordinator) Phase() timer.Phase {
	return c.timer.Phase()
}

// Remaining returns the seconds left in the current window.
func (c *Coordinator) Remaining() int {
	return c.timer.Remaining()
}

// State returns the coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Recording reports whether capture is currently buffering.
func (c *Coordinator) Recording() bool {
	return c.session.State() == capture.StateRecording
}

// Delivered reports whether this question's record has passed the gate.
func (c *Coordinator) Delivered() bool {
	return c.gate.Delivered()
}

// Skip ends the thinking window early. No-op outside thinking.
func (c *Coordinator) Skip() {
	c.timer.SkipThinking()
}

// Submit finalizes the response manually. Valid once the responding phase
// has begun; recording is stopped first if still running, and an already
// completed capture is handed off as-is.
func (c *Coordinator) Submit() error {
	c.mu.Lock()
	if c.inert {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateCapturing && c.state != StateCaptured {
		c.mu.Unlock()
		return ErrNotResponding
	}
	c.mu.Unlock()

	// Halt the countdown so a racing expiry cannot fire after this; if it
	// already fired in the same tick, the gate absorbs the duplicate.
	c.timer.Stop()
	go c.finalize(TriggerManual)
	return nil
}

// Dispose tears the coordinator down: countdown halted, device released,
// buffers discarded, coordinator inert. Synchronous: when it returns the
// device is free and nothing bound to this question will act again.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.inert {
		c.mu.Unlock()
		return
	}
	c.inert = true
	c.state = StateIdle
	c.mu.Unlock()

	c.timer.Stop()
	c.session.Dispose()
}

// ForceSubmit delivers whatever exists right now with the forced trigger.
// Used when the exam itself is being abandoned and a record is still owed.
func (c *Coordinator) ForceSubmit() {
	c.timer.Stop()
	go c.finalize(TriggerForced)
}

// onPhaseChange reacts to timer transitions. Entry to responding is the
// only automatic trigger for starting capture; recording never runs during
// the thinking window.
func (c *Coordinator) onPhaseChange(p timer.Phase) {
	c.mu.Lock()
	if c.inert {
		c.mu.Unlock()
		return
	}
	switch p {
	case timer.PhaseThinking:
		c.state = StateAwaitingThink
	case timer.PhaseResponding:
		if c.state != StateCapturing {
			c.state = StateCapturing
			go c.beginCapture()
		}
	}
	hook := c.hooks.OnPhaseChange
	c.mu.Unlock()

	if hook != nil {
		hook(p)
	}
}

// onTimeExpired is the critical race point: the response window lapsed, so
// whatever was captured (or nothing) must be submitted, bounded by the
// flush grace period.
func (c *Coordinator) onTimeExpired() {
	c.mu.Lock()
	if c.inert {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	go c.finalize(TriggerExpiry)
}

// beginCapture acquires the device and starts recording. Device failures
// are logged and swallowed: the question stays answerable and expiry will
// deliver a nil artifact.
func (c *Coordinator) beginCapture() {
	ctx, cancel := context.WithTimeout(context.Background(), c.grace+DefaultFlushGrace)
	defer cancel()

	if err := c.session.Acquire(ctx); err != nil {
		c.log.Warn().Err(err).Msg("device acquisition failed; continuing without capture")
		return
	}

	c.mu.Lock()
	inert := c.inert
	c.mu.Unlock()
	if inert {
		// Teardown won the race; Dispose already released the handle.
		return
	}

	if err := c.session.Start(); err != nil {
		c.log.Warn().Err(err).Msg("capture start failed; continuing without capture")
	}
}

// finalize stops recording if needed and routes the record through the
// gate. All trigger paths converge here; the gate makes the first one win.
func (c *Coordinator) finalize(trigger Trigger) {
	c.finalizeMu.Lock()
	defer c.finalizeMu.Unlock()

	c.mu.Lock()
	if c.inert {
		c.mu.Unlock()
		return
	}
	artifact := c.artifact
	c.mu.Unlock()

	if c.session.State() == capture.StateRecording {
		ctx, cancel := context.WithTimeout(context.Background(), c.grace)
		art, err := c.session.Stop(ctx)
		cancel()
		if err != nil {
			// Double stop or a failed device; both mean nothing captured
			// by this path.
			c.log.Debug().Err(err).Msg("stop during finalize yielded nothing")
		}
		if art != nil {
			artifact = art
		}
	}

	c.mu.Lock()
	if c.inert {
		c.mu.Unlock()
		return
	}
	c.artifact = artifact
	c.state = StateCaptured
	c.mu.Unlock()

	c.session.BeginSubmit()
	c.mu.Lock()
	if !c.inert {
		c.state = StateSubmitting
	}
	c.mu.Unlock()

	record := SubmissionRecord{
		QuestionID:  c.question.ID,
		Artifact:    artifact,
		TriggeredBy: trigger,
	}

	delivered, err := c.gate.Deliver(context.Background(), record)
	if err != nil {
		c.log.Error().Err(err).Str("trigger", string(trigger)).Msg("submission delivery failed")
	}

	if delivered && c.hooks.OnDelivered != nil {
		c.mu.Lock()
		inert := c.inert
		c.mu.Unlock()
		if !inert {
			c.hooks.OnDelivered(record, err)
		}
	}
}
