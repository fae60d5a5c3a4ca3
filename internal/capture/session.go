// Package capture owns the lifecycle of one recording-device acquisition:
// acquire, start, stop, finalize-to-artifact, release. It knows nothing
// about question timing; the coordinator drives it off timer transitions.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for the two ways device access is refused. Callers treat
// both as "no recording for this question", never as a reason to stall.
var (
	ErrDeviceUnavailable = errors.New("capture: no recording device available")
	ErrPermissionDenied  = errors.New("capture: recording permission denied")
)

// ErrInvalidTransition reports a session method called in a state that does
// not permit it.
type ErrInvalidTransition struct {
	Op    string
	State State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("capture: cannot %s while %s", e.Op, e.State)
}

// State is the recording lifecycle state. A single tagged value replaces
// the cluster of booleans (isRecording, hasStarted, isSubmitting) that lets
// illegal combinations exist.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateReady
	StateRecording
	StateFinalizing
	StateComplete
	StateSubmitting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateComplete:
		return "complete"
	case StateSubmitting:
		return "submitting"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Artifact is the finalized binary payload of one capture. Ownership
// transfers to whoever receives it; the session drops its reference and
// never touches the bytes again.
type Artifact struct {
	Bytes     []byte
	MimeType  string
	SizeBytes int
}

// Session manages one device acquisition for one question. Safe for use
// from the host event loop plus device-owned callback goroutines.
type Session struct {
	device Device

	mu       sync.Mutex
	state    State
	stream   Stream
	chunks   [][]byte
	disposed bool
	lastErr  error
}

// NewSession returns an idle session over the given device.
func NewSession(device Device) *Session {
	return &Session{device: device, state: StateIdle}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the device error that moved the session to failed, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Acquire requests device access and leaves the session ready to record.
// It does not start capturing. Returns ErrDeviceUnavailable or
// ErrPermissionDenied as reported by the device.
func (s *Session) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateIdle {
		op := &ErrInvalidTransition{Op: "acquire", State: s.state}
		s.mu.Unlock()
		return op
	}
	s.state = StateAcquiring
	s.mu.Unlock()

	stream, err := s.device.RequestAccess(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The session may have been torn down while access was in flight;
	// the acquired hardware must not leak in that case.
	if s.disposed {
		if stream != nil {
			stream.Release()
		}
		return nil
	}

	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		return err
	}

	s.stream = stream
	s.state = StateReady
	return nil
}

// Start begins buffering data. Valid only from ready; calling it while
// already recording is a no-op so overlapping triggers cannot claim the
// device twice.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.disposed || s.state == StateRecording {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateReady {
		op := &ErrInvalidTransition{Op: "start", State: s.state}
		s.mu.Unlock()
		return op
	}
	s.state = StateRecording
	s.chunks = nil
	stream := s.stream
	s.mu.Unlock()

	if err := stream.Begin(s.onChunk, s.fail); err != nil {
		s.fail(err)
		return err
	}
	return nil
}

// Stop flushes the device, concatenates everything buffered into one
// artifact, releases the hardware, and moves to complete. A capture that
// produced zero bytes yields a nil artifact, not a zero-length one.
func (s *Session) Stop(ctx context.Context) (*Artifact, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, nil
	}
	if s.state != StateRecording {
		op := &ErrInvalidTransition{Op: "stop", State: s.state}
		s.mu.Unlock()
		return nil, op
	}
	s.state = StateFinalizing
	stream := s.stream
	s.mu.Unlock()

	endErr := stream.End(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		stream.Release()
		return nil, nil
	}
	if s.state == StateFailed {
		// A mid-stream failure won the race against the flush.
		return nil, nil
	}

	stream.Release()
	s.stream = nil
	s.state = StateComplete

	if endErr != nil {
		// A dirty flush still completes; whatever was buffered is used.
		s.lastErr = endErr
	}

	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	if total == 0 {
		s.chunks = nil
		return nil, nil
	}

	bytes := make([]byte, 0, total)
	for _, c := range s.chunks {
		bytes = append(bytes, c...)
	}
	s.chunks = nil

	return &Artifact{
		Bytes:     bytes,
		MimeType:  stream.MimeType(),
		SizeBytes: total,
	}, nil
}

// Reset discards a completed capture and re-acquires the device so the
// question can be recorded again. Valid only from complete; at most one
// artifact ever exists per session.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateComplete {
		op := &ErrInvalidTransition{Op: "reset", State: s.state}
		s.mu.Unlock()
		return op
	}
	s.chunks = nil
	s.state = StateIdle
	s.mu.Unlock()

	return s.Acquire(ctx)
}

// BeginSubmit marks the captured response as in flight to the submission
// collaborator. Valid from recording or complete.
func (s *Session) BeginSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRecording || s.state == StateComplete {
		s.state = StateSubmitting
	}
}

// Dispose force-releases the device and discards buffered data without
// producing an artifact. Safe from any state and the sole teardown path:
// after Dispose no callback will mutate the session and the hardware is
// guaranteed free for the next question.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	if s.stream != nil {
		s.stream.Release()
		s.stream = nil
	}
	s.chunks = nil
	s.state = StateIdle
}

// onChunk buffers one device data chunk. Chunks arriving outside the
// recording state (late flushes, post-teardown stragglers) are dropped.
func (s *Session) onChunk(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || (s.state != StateRecording && s.state != StateFinalizing) {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	s.chunks = append(s.chunks, buf)
}

// fail moves the session to failed and releases the device. Callers treat
// a failed session exactly like a stop that produced nothing.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || (s.state != StateAcquiring && s.state != StateRecording && s.state != StateFinalizing) {
		return
	}
	s.state = StateFailed
	s.lastErr = err
	if s.stream != nil {
		s.stream.Release()
		s.stream = nil
	}
	s.chunks = nil
}
