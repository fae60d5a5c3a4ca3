package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/muhameddgoda/lingoquesto-placement/internal/capture"
)

// FFmpegConfig selects the microphone input ffmpeg captures from.
type FFmpegConfig struct {
	Command     string // ffmpeg binary, defaults to "ffmpeg"
	InputFormat string // e.g. "pulse", "alsa", "avfoundation"
	InputDevice string // e.g. "default"
}

// FFmpegDevice captures microphone PCM via an ffmpeg pipe and adapts it to
// the capture device contract. One stream claims one ffmpeg process; the
// session layer guarantees at most one claim is live per question.
type FFmpegDevice struct {
	cfg FFmpegConfig
}

// NewFFmpegDevice returns a device over the given ffmpeg configuration.
func NewFFmpegDevice(cfg FFmpegConfig) *FFmpegDevice {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return &FFmpegDevice{cfg: cfg}
}

// RequestAccess spawns ffmpeg reading the microphone into a PCM16 pipe. An
// ffmpeg that exits immediately (missing binary, busy or absent device)
// maps to the capture sentinels so callers can branch without knowing
// ffmpeg exists.
func (d *FFmpegDevice) RequestAccess(ctx context.Context) (capture.Stream, error) {
	if _, err := exec.LookPath(d.cfg.Command); err != nil {
		return nil, fmt.Errorf("%w: %s not found", capture.ErrDeviceUnavailable, d.cfg.Command)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", d.cfg.InputFormat,
		"-i", d.cfg.InputDevice,
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-",
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, d.cfg.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start ffmpeg: %v", capture.ErrDeviceUnavailable, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// Give ffmpeg a moment to fail on a bad device before claiming success.
	select {
	case err := <-waitErr:
		cancel()
		msg := bytes.TrimSpace(stderr.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%w: ffmpeg exited: %v: %s", capture.ErrPermissionDenied, err, msg)
		}
		return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %s", capture.ErrDeviceUnavailable, msg)
	case <-ctx.Done():
		cancel()
		<-waitErr
		return nil, ctx.Err()
	case <-time.After(250 * time.Millisecond):
	}

	return &ffmpegStream{
		stdout:  stdout,
		process: cmd.Process,
		cancel:  cancel,
		waitErr: waitErr,
	}, nil
}

type ffmpegStream struct {
	stdout  io.ReadCloser
	process *os.Process
	cancel  context.CancelFunc
	waitErr <-chan error

	pumpDone chan struct{}

	endOnce     sync.Once
	releaseOnce sync.Once
}

func (s *ffmpegStream) Begin(onChunk func([]byte), onErr func(error)) error {
	s.pumpDone = make(chan struct{})
	go func() {
		defer close(s.pumpDone)
		buf := make([]byte, 4096)
		for {
			n, err := s.stdout.Read(buf)
			if n > 0 {
				onChunk(buf[:n])
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
					onErr(err)
				}
				return
			}
		}
	}()
	return nil
}

func (s *ffmpegStream) End(ctx context.Context) error {
	var err error
	s.endOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}
		select {
		case werr := <-s.waitErr:
			err = normalizeExit(werr)
		case <-ctx.Done():
			if s.process != nil {
				_ = s.process.Kill()
			}
			err = ctx.Err()
		}
		if s.pumpDone != nil {
			// The pipe closes with the process; the pump drains the tail.
			select {
			case <-s.pumpDone:
			case <-ctx.Done():
			}
		}
	})
	return err
}

func (s *ffmpegStream) Release() {
	s.releaseOnce.Do(func() {
		s.cancel()
		_ = s.stdout.Close()
	})
}

// The pipe carries headerless s16le samples; WAV framing happens at artifact
// preparation, not in the stream.
func (s *ffmpegStream) MimeType() string { return MimeTypePCM }

// normalizeExit treats an interrupt-driven exit as clean.
func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
