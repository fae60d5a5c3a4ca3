package capture

import (
	"context"
	"errors"
	"testing"
)

// fakeStream is a controllable in-memory device stream.
type fakeStream struct {
	onChunk   func([]byte)
	onErr     func(error)
	began     bool
	ended     bool
	released  int
	flushErr  error
	flushData [][]byte // delivered during End, simulating a device flush
	mime      string
}

func (f *fakeStream) Begin(onChunk func([]byte), onErr func(error)) error {
	f.began = true
	f.onChunk = onChunk
	f.onErr = onErr
	return nil
}

func (f *fakeStream) End(ctx context.Context) error {
	f.ended = true
	for _, c := range f.flushData {
		f.onChunk(c)
	}
	return f.flushErr
}

func (f *fakeStream) Release() { f.released++ }

func (f *fakeStream) MimeType() string {
	if f.mime == "" {
		return "audio/wav"
	}
	return f.mime
}

type fakeDevice struct {
	stream    *fakeStream
	accessErr error
	requests  int
}

func (f *fakeDevice) RequestAccess(ctx context.Context) (Stream, error) {
	f.requests++
	if f.accessErr != nil {
		return nil, f.accessErr
	}
	if f.stream == nil {
		f.stream = &fakeStream{}
	}
	return f.stream, nil
}

func readySession(t *testing.T) (*Session, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	s := NewSession(dev)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	return s, dev
}

func TestAcquire_Success(t *testing.T) {
	s, dev := readySession(t)
	if s.State() != StateReady {
		t.Errorf("state = %v, want ready", s.State())
	}
	if dev.requests != 1 {
		t.Errorf("requests = %d, want 1", dev.requests)
	}
	// Acquire alone must not start capturing.
	if dev.stream.began {
		t.Error("acquire started the stream")
	}
}

func TestAcquire_PermissionDenied(t *testing.T) {
	dev := &fakeDevice{accessErr: ErrPermissionDenied}
	s := NewSession(dev)

	err := s.Acquire(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %v, want failed", s.State())
	}
}

func TestStart_OnlyFromReady(t *testing.T) {
	s := NewSession(&fakeDevice{})
	err := s.Start()
	var inv *ErrInvalidTransition
	if !errors.As(err, &inv) {
		t.Fatalf("Start from idle: err = %v, want ErrInvalidTransition", err)
	}
}

func TestStart_NoOpWhileRecording(t *testing.T) {
	s, dev := readySession(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v, want nil no-op", err)
	}
	if s.State() != StateRecording {
		t.Errorf("state = %v, want recording", s.State())
	}
	_ = dev
}

func TestStop_ConcatenatesChunks(t *testing.T) {
	s, dev := readySession(t)
	dev.stream.flushData = [][]byte{[]byte("tail")}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	dev.stream.onChunk([]byte("head-"))
	dev.stream.onChunk([]byte("mid-"))

	art, err := s.Stop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if art == nil {
		t.Fatal("artifact = nil, want data")
	}
	if got := string(art.Bytes); got != "head-mid-tail" {
		t.Errorf("bytes = %q, want %q", got, "head-mid-tail")
	}
	if art.SizeBytes != len("head-mid-tail") {
		t.Errorf("SizeBytes = %d", art.SizeBytes)
	}
	if art.MimeType != "audio/wav" {
		t.Errorf("MimeType = %q", art.MimeType)
	}
	if s.State() != StateComplete {
		t.Errorf("state = %v, want complete", s.State())
	}
	if dev.stream.released == 0 {
		t.Error("device not released after stop")
	}
}

func TestStop_ZeroBytesYieldsNilArtifact(t *testing.T) {
	s, _ := readySession(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	art, err := s.Stop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if art != nil {
		t.Errorf("artifact = %+v, want nil for empty capture", art)
	}
	if s.State() != StateComplete {
		t.Errorf("state = %v, want complete", s.State())
	}
}

func TestStop_InvalidOutsideRecording(t *testing.T) {
	s, _ := readySession(t)
	_, err := s.Stop(context.Background())
	var inv *ErrInvalidTransition
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestMidStreamFailure_ReleasesAndFails(t *testing.T) {
	s, dev := readySession(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	dev.stream.onChunk([]byte("partial"))

	dev.stream.onErr(errors.New("device unplugged"))

	if s.State() != StateFailed {
		t.Fatalf("state = %v, want failed", s.State())
	}
	if dev.stream.released == 0 {
		t.Error("device not released on failure")
	}
	if s.Err() == nil {
		t.Error("Err() = nil, want device error")
	}

	// Chunks arriving after failure are dropped.
	dev.stream.onChunk([]byte("late"))
	if s.State() != StateFailed {
		t.Errorf("late chunk changed state to %v", s.State())
	}
}

func TestReset_DiscardsAndReacquires(t *testing.T) {
	s, dev := readySession(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	dev.stream.onChunk([]byte("take one"))
	if _, err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Fresh stream for the second take.
	dev.stream = &fakeStream{}
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("state = %v, want ready", s.State())
	}
	if dev.requests != 2 {
		t.Errorf("requests = %d, want 2", dev.requests)
	}

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	dev.stream.onChunk([]byte("take two"))
	art, err := s.Stop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(art.Bytes) != "take two" {
		t.Errorf("bytes = %q, prior take leaked", art.Bytes)
	}
}

func TestReset_InvalidBeforeComplete(t *testing.T) {
	s, _ := readySession(t)
	var inv *ErrInvalidTransition
	if err := s.Reset(context.Background()); !errors.As(err, &inv) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestDispose_ReleasesFromAnyState(t *testing.T) {
	s, dev := readySession(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	dev.stream.onChunk([]byte("buffered"))

	s.Dispose()

	if dev.stream.released == 0 {
		t.Error("device not released on dispose")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}

	// Everything after dispose is inert.
	dev.stream.onChunk([]byte("late"))
	if err := s.Start(); err != nil {
		t.Errorf("Start after dispose: %v, want nil no-op", err)
	}
	if art, err := s.Stop(context.Background()); art != nil || err != nil {
		t.Errorf("Stop after dispose = (%v, %v), want (nil, nil)", art, err)
	}
	s.Dispose() // idempotent
}

func TestAcquire_ResolvingAfterDisposeReleasesHandle(t *testing.T) {
	stream := &fakeStream{}
	dev := &blockingDevice{
		stream:  stream,
		unblock: make(chan struct{}),
		entered: make(chan struct{}),
	}
	s := NewSession(dev)

	done := make(chan error, 1)
	go func() { done <- s.Acquire(context.Background()) }()

	<-dev.entered
	s.Dispose()
	close(dev.unblock)

	if err := <-done; err != nil {
		t.Fatalf("Acquire after dispose: %v, want nil", err)
	}
	if stream.released == 0 {
		t.Error("handle acquired after dispose was not released")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

// blockingDevice parks RequestAccess until unblocked, to exercise teardown
// racing an in-flight acquisition.
type blockingDevice struct {
	stream  *fakeStream
	unblock chan struct{}
	entered chan struct{}
}

func (b *blockingDevice) RequestAccess(ctx context.Context) (Stream, error) {
	close(b.entered)
	<-b.unblock
	return b.stream, nil
}
