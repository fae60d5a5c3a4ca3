// Package audio post-processes captured speech: WAV framing of raw PCM,
// peak normalization, duration probing, and chunking of long responses for
// evaluators with an upload cap. The exam pipeline works in 16 kHz mono
// 16-bit PCM throughout.
package audio

import (
	"encoding/binary"
	"fmt"
)

// Format parameters shared by the capture device and the evaluator.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	MimeTypeWAV   = "audio/wav"
	MimeTypePCM   = "audio/pcm"
)

const (
	wavHeaderSize  = 44
	bytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

// EncodeWAV frames raw little-endian PCM16 samples as a WAV file.
func EncodeWAV(pcm []byte) []byte {
	out := make([]byte, wavHeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], Channels)
	binary.LittleEndian.PutUint32(out[24:28], SampleRate)
	binary.LittleEndian.PutUint32(out[28:32], bytesPerSecond)
	binary.LittleEndian.PutUint16(out[32:34], Channels*BitsPerSample/8)
	binary.LittleEndian.PutUint16(out[34:36], BitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)

	return out
}

// DecodeWAV strips a WAV header, returning the PCM payload. It accepts only
// the canonical 44-byte-header PCM16 layout this package produces.
func DecodeWAV(wav []byte) ([]byte, error) {
	if len(wav) < wavHeaderSize {
		return nil, fmt.Errorf("audio: wav too short (%d bytes)", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("audio: not a wav file")
	}
	if binary.LittleEndian.Uint16(wav[20:22]) != 1 {
		return nil, fmt.Errorf("audio: not PCM")
	}
	size := binary.LittleEndian.Uint32(wav[40:44])
	payload := wav[wavHeaderSize:]
	if int(size) < len(payload) {
		payload = payload[:size]
	}
	return payload, nil
}

// Duration returns the playback length in seconds of raw PCM16 data.
func Duration(pcm []byte) float64 {
	return float64(len(pcm)) / float64(bytesPerSecond)
}

// Normalize scales PCM16 samples so the loudest peak hits the given target
// amplitude (0 < target <= 1). Silent input is returned unchanged.
func Normalize(pcm []byte, target float64) []byte {
	if target <= 0 || target > 1 {
		target = 1
	}

	peak := int16(0)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		if s == -32768 {
			s = 32767
		} else if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return pcm
	}

	gain := target * 32767 / float64(peak)
	out := make([]byte, len(pcm))
	copy(out, pcm)
	for i := 0; i+1 < len(out); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(out[i : i+2])))
		scaled := s * gain
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		binary.LittleEndian.PutUint16(out[i:i+2], uint16(int16(scaled)))
	}
	return out
}

// Chunk splits PCM16 data into windows of at most maxSeconds, each window
// overlapping the previous by overlapMillis to keep words intact at the
// boundaries. Returns the input as a single chunk when it fits.
func Chunk(pcm []byte, maxSeconds int, overlapMillis int) [][]byte {
	if maxSeconds <= 0 {
		return [][]byte{pcm}
	}

	maxBytes := maxSeconds * bytesPerSecond
	overlapBytes := overlapMillis * bytesPerSecond / 1000
	// Keep sample alignment.
	maxBytes -= maxBytes % 2
	overlapBytes -= overlapBytes % 2

	if len(pcm) <= maxBytes {
		return [][]byte{pcm}
	}

	var chunks [][]byte
	start := 0
	for start < len(pcm) {
		end := start + maxBytes
		if end >= len(pcm) {
			chunks = append(chunks, pcm[start:])
			break
		}
		chunks = append(chunks, pcm[start:end])
		start = end - overlapBytes
	}
	return chunks
}
