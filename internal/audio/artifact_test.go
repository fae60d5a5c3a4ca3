package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhameddgoda/lingoquesto-placement/internal/capture"
)

func TestPrepareArtifact_FramesAndNormalizesPCM(t *testing.T) {
	// One second of quiet speech: peak 1000 of 32767.
	pcm := make([]byte, 32000)
	binary.LittleEndian.PutUint16(pcm[100:102], uint16(int16(1000)))

	a := &capture.Artifact{Bytes: pcm, MimeType: MimeTypePCM, SizeBytes: len(pcm)}
	out := PrepareArtifact(a)

	require.NotNil(t, out)
	assert.Equal(t, MimeTypeWAV, out.MimeType)
	assert.Equal(t, len(pcm)+44, out.SizeBytes)
	assert.Equal(t, "RIFF", string(out.Bytes[0:4]))

	payload, err := DecodeWAV(out.Bytes)
	require.NoError(t, err)
	require.Len(t, payload, len(pcm))

	peak := int16(binary.LittleEndian.Uint16(payload[100:102]))
	assert.InDelta(t, normalizeTarget*32767, float64(peak), 1,
		"peak not raised to the normalization target")
}

func TestPrepareArtifact_Passthrough(t *testing.T) {
	assert.Nil(t, PrepareArtifact(nil))

	// Already framed audio is not re-wrapped.
	wav := EncodeWAV(make([]byte, 320))
	a := &capture.Artifact{Bytes: wav, MimeType: MimeTypeWAV, SizeBytes: len(wav)}
	assert.Same(t, a, PrepareArtifact(a))

	// A PCM claim with no bytes stays as delivered.
	empty := &capture.Artifact{MimeType: MimeTypePCM}
	assert.Same(t, empty, PrepareArtifact(empty))
}

func TestArtifactDuration(t *testing.T) {
	assert.Zero(t, ArtifactDuration(nil))

	pcm := make([]byte, 48000) // 1.5s
	raw := &capture.Artifact{Bytes: pcm, MimeType: MimeTypePCM, SizeBytes: len(pcm)}
	assert.InDelta(t, 1.5, ArtifactDuration(raw), 1e-9)

	// The WAV header must not count toward the duration.
	wav := EncodeWAV(pcm)
	framed := &capture.Artifact{Bytes: wav, MimeType: MimeTypeWAV, SizeBytes: len(wav)}
	assert.InDelta(t, 1.5, ArtifactDuration(framed), 1e-9)
}
