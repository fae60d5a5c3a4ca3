package respond

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhameddgoda/lingoquesto-placement/internal/capture"
	"github.com/muhameddgoda/lingoquesto-placement/internal/timer"
)

const (
	waitFor   = 2 * time.Second
	pollEvery = 2 * time.Millisecond
)

// fakeStream feeds canned audio on flush and counts device lifecycle calls.
type fakeStream struct {
	mu        sync.Mutex
	onChunk   func([]byte)
	begins    int
	released  int
	flushData []byte
}

func (f *fakeStream) Begin(onChunk func([]byte), onErr func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	f.onChunk = onChunk
	return nil
}

func (f *fakeStream) End(ctx context.Context) error {
	f.mu.Lock()
	chunk := f.flushData
	sink := f.onChunk
	f.mu.Unlock()
	if len(chunk) > 0 && sink != nil {
		sink(chunk)
	}
	return nil
}

func (f *fakeStream) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func (f *fakeStream) MimeType() string { return "audio/wav" }

func (f *fakeStream) beginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begins
}

type fakeDevice struct {
	mu        sync.Mutex
	stream    *fakeStream
	accessErr error
	requests  int
}

func (f *fakeDevice) RequestAccess(ctx context.Context) (capture.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.accessErr != nil {
		return nil, f.accessErr
	}
	return f.stream, nil
}

type harness struct {
	co     *Coordinator
	dev    *fakeDevice
	stream *fakeStream
	sub    *countingSubmitter

	mu     sync.Mutex
	phases []timer.Phase
	done   []SubmissionRecord
}

func newHarness(t *testing.T, q Question) *harness {
	t.Helper()
	h := &harness{
		stream: &fakeStream{flushData: []byte("recorded audio")},
		sub:    &countingSubmitter{},
	}
	h.dev = &fakeDevice{stream: h.stream}

	co, err := New(q, h.dev, h.sub, Options{
		Logger: zerolog.Nop(),
		Hooks: Hooks{
			OnPhaseChange: func(p timer.Phase) {
				h.mu.Lock()
				h.phases = append(h.phases, p)
				h.mu.Unlock()
			},
			OnDelivered: func(r SubmissionRecord, err error) {
				h.mu.Lock()
				h.done = append(h.done, r)
				h.mu.Unlock()
			},
		},
	})
	require.NoError(t, err)
	h.co = co
	t.Cleanup(co.Dispose)
	return h
}

func (h *harness) deliveredCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.done)
}

func (h *harness) phaseList() []timer.Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]timer.Phase, len(h.phases))
	copy(out, h.phases)
	return out
}

// waitRecording blocks until the async acquire+start settles.
func (h *harness) waitRecording(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.co.Recording, waitFor, pollEvery, "capture never started")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Question{ID: "q1"}, &fakeDevice{}, &countingSubmitter{}, Options{Logger: zerolog.Nop()})
	require.ErrorIs(t, err, timer.ErrNoResponseWindow)
}

// Think 2, respond 5, no manual action: phase sequence is thinking,
// responding, expired; the device starts exactly once and expiry delivers
// exactly one record.
func TestExpiryDeliversOnce(t *testing.T) {
	h := newHarness(t, Question{ID: "q1", ThinkTimeSeconds: 2, ResponseTimeSeconds: 5})

	assert.Equal(t, timer.PhaseThinking, h.co.Phase())
	assert.False(t, h.co.Recording(), "recording must not start during thinking")

	h.co.Tick()
	h.co.Tick()
	require.Equal(t, timer.PhaseResponding, h.co.Phase())
	h.waitRecording(t)

	for i := 0; i < 5; i++ {
		h.co.Tick()
	}
	require.Equal(t, timer.PhaseExpired, h.co.Phase())

	require.Eventually(t, func() bool { return h.deliveredCount() == 1 }, waitFor, pollEvery)
	require.Equal(t, 1, h.sub.calls())
	rec := h.sub.last()
	assert.Equal(t, TriggerExpiry, rec.TriggeredBy)
	assert.Equal(t, "q1", rec.QuestionID)
	require.NotNil(t, rec.Artifact)
	assert.Equal(t, "recorded audio", string(rec.Artifact.Bytes))
	assert.Equal(t, 1, h.stream.beginCount(), "device started more than once")

	assert.Equal(t, []timer.Phase{timer.PhaseThinking, timer.PhaseResponding, timer.PhaseExpired}, h.phaseList())
}

// Zero think time, manual submit at tick 3: immediate entry to responding,
// one manual delivery, and no expiry afterwards.
func TestManualSubmit(t *testing.T) {
	h := newHarness(t, Question{ID: "q2", ResponseTimeSeconds: 10})

	require.Equal(t, timer.PhaseResponding, h.co.Phase())
	h.waitRecording(t)

	h.co.Tick()
	h.co.Tick()
	h.co.Tick()
	require.NoError(t, h.co.Submit())

	require.Eventually(t, func() bool { return h.deliveredCount() == 1 }, waitFor, pollEvery)
	assert.Equal(t, TriggerManual, h.sub.last().TriggeredBy)
	assert.Equal(t, timer.PhaseStopped, h.co.Phase())

	// Ticks past the original window cannot expire a stopped timer.
	for i := 0; i < 10; i++ {
		h.co.Tick()
	}
	assert.Equal(t, 1, h.sub.calls())
}

// Skip during thinking enters responding with the full window.
func TestSkipThinking(t *testing.T) {
	h := newHarness(t, Question{ID: "q3", ThinkTimeSeconds: 5, ResponseTimeSeconds: 7})

	h.co.Tick()
	h.co.Tick()
	h.co.Skip()

	require.Equal(t, timer.PhaseResponding, h.co.Phase())
	assert.Equal(t, 7, h.co.Remaining(), "response window must not be truncated")
	h.waitRecording(t)
}

// Device access refused: expiry still delivers once, with a nil artifact.
func TestPermissionDeniedStillDelivers(t *testing.T) {
	dev := &fakeDevice{accessErr: capture.ErrPermissionDenied}
	sub := &countingSubmitter{}
	co, err := New(Question{ID: "q4", ResponseTimeSeconds: 3}, dev, sub, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer co.Dispose()

	// Let the refused acquisition settle before expiring.
	require.Eventually(t, func() bool {
		dev.mu.Lock()
		defer dev.mu.Unlock()
		return dev.requests == 1
	}, waitFor, pollEvery)

	co.Tick()
	co.Tick()
	co.Tick()
	require.Equal(t, timer.PhaseExpired, co.Phase())

	require.Eventually(t, func() bool { return sub.calls() == 1 }, waitFor, pollEvery)
	rec := sub.last()
	assert.Equal(t, TriggerExpiry, rec.TriggeredBy)
	assert.Nil(t, rec.Artifact, "refused device must deliver a nil artifact")
}

// Manual submit raced against expiry in the same tick yields exactly one
// collaborator call.
func TestSubmitRacesExpiry(t *testing.T) {
	h := newHarness(t, Question{ID: "q5", ResponseTimeSeconds: 1})
	h.waitRecording(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.co.Tick() // expires
	}()
	go func() {
		defer wg.Done()
		_ = h.co.Submit()
	}()
	wg.Wait()

	require.Eventually(t, func() bool { return h.sub.calls() >= 1 }, waitFor, pollEvery)
	// Give the losing trigger a chance to (incorrectly) deliver.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.sub.calls(), "both triggers reached the collaborator")
	require.NotNil(t, h.sub.last().Artifact, "the captured artifact was lost to the race")
}

func TestSubmit_RejectedWhileThinking(t *testing.T) {
	h := newHarness(t, Question{ID: "q6", ThinkTimeSeconds: 5, ResponseTimeSeconds: 5})
	require.ErrorIs(t, h.co.Submit(), ErrNotResponding)
	assert.Equal(t, 0, h.sub.calls())
}

// After Dispose, an in-flight device acquisition must not start recording,
// and no submission may occur.
func TestDispose_InFlightAcquireDiscarded(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	stream := &fakeStream{}
	dev := &gatedDevice{stream: stream, entered: entered, unblock: unblock}
	sub := &countingSubmitter{}

	co, err := New(Question{ID: "q7", ResponseTimeSeconds: 5}, dev, sub, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	<-entered
	co.Dispose()
	close(unblock)

	// The resolved handle must be released, never begun.
	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.released > 0
	}, waitFor, pollEvery, "stale handle leaked past teardown")
	assert.Equal(t, 0, stream.beginCount())

	// And no trigger path submits on behalf of the dead question.
	co.Tick()
	_ = co.Submit()
	co.ForceSubmit()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sub.calls())
}

func TestForceSubmit_DeliversForcedRecord(t *testing.T) {
	h := newHarness(t, Question{ID: "q8", ResponseTimeSeconds: 30})
	h.waitRecording(t)

	h.co.ForceSubmit()
	require.Eventually(t, func() bool { return h.sub.calls() == 1 }, waitFor, pollEvery)
	assert.Equal(t, TriggerForced, h.sub.last().TriggeredBy)
}

func TestExpiry_ZeroBytesDeliversNil(t *testing.T) {
	h := newHarness(t, Question{ID: "q9", ResponseTimeSeconds: 2})
	h.stream.mu.Lock()
	h.stream.flushData = nil
	h.stream.mu.Unlock()
	h.waitRecording(t)

	h.co.Tick()
	h.co.Tick()

	require.Eventually(t, func() bool { return h.sub.calls() == 1 }, waitFor, pollEvery)
	assert.Nil(t, h.sub.last().Artifact)
}

// gatedDevice parks RequestAccess so tests can interleave teardown.
type gatedDevice struct {
	stream  *fakeStream
	entered chan struct{}
	unblock chan struct{}
	once    sync.Once
}

func (g *gatedDevice) RequestAccess(ctx context.Context) (capture.Stream, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.unblock
	return g.stream, nil
}
