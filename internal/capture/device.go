package capture

import "context"

// Device grants access to the host's recording hardware. Implementations
// wrap whatever the host provides (an ffmpeg pipe, a browser MediaStream
// bridge, an in-memory fake for tests); the session never depends on a
// specific device API.
type Device interface {
	// RequestAccess acquires the underlying hardware and returns a stream
	// ready to begin. It blocks until access is granted or refused.
	RequestAccess(ctx context.Context) (Stream, error)
}

// Stream is one live claim on the recording device.
type Stream interface {
	// Begin starts delivering data. onChunk receives raw buffered data as
	// it is produced; onErr reports a mid-stream device failure. Both may
	// be invoked from a device-owned goroutine.
	Begin(onChunk func([]byte), onErr func(error)) error

	// End signals the device to flush and stop. It returns once the final
	// chunk has been delivered or ctx is done.
	End(ctx context.Context) error

	// Release force-frees the hardware claim. Safe to call at any point,
	// including after End or a reported failure.
	Release()

	// MimeType describes the encoding of the delivered chunks.
	MimeType() string
}
