package audio

import (
	"encoding/binary"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func samplesFromPCM(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func TestEncodeDecodeWAV(t *testing.T) {
	pcm := pcmFromSamples([]int16{0, 100, -100, 32767, -32768})
	wav := EncodeWAV(pcm)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}

	back, err := DecodeWAV(wav)
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != string(pcm) {
		t.Error("roundtrip lost data")
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	if _, err := DecodeWAV([]byte("short")); err == nil {
		t.Error("expected error for truncated input")
	}
	bad := EncodeWAV(nil)
	copy(bad[0:4], "JUNK")
	if _, err := DecodeWAV(bad); err == nil {
		t.Error("expected error for non-RIFF input")
	}
}

func TestDuration(t *testing.T) {
	// One second of 16kHz mono PCM16 is 32000 bytes.
	if got := Duration(make([]byte, 32000)); got != 1.0 {
		t.Errorf("Duration = %v, want 1.0", got)
	}
	if got := Duration(make([]byte, 16000)); got != 0.5 {
		t.Errorf("Duration = %v, want 0.5", got)
	}
}

func TestNormalize_ScalesPeakToTarget(t *testing.T) {
	pcm := pcmFromSamples([]int16{8192, -4096, 0})
	out := samplesFromPCM(Normalize(pcm, 1.0))

	if out[0] != 32767 {
		t.Errorf("peak = %d, want 32767", out[0])
	}
	// Relative levels preserved (half the peak).
	if out[1] > -16000 || out[1] < -16500 {
		t.Errorf("second sample = %d, want about -16384", out[1])
	}
	if out[2] != 0 {
		t.Errorf("zero sample moved to %d", out[2])
	}
}

func TestNormalize_SilenceUnchanged(t *testing.T) {
	pcm := pcmFromSamples([]int16{0, 0, 0})
	out := Normalize(pcm, 1.0)
	if string(out) != string(pcm) {
		t.Error("silence was modified")
	}
}

func TestNormalize_ClampsInvalidTarget(t *testing.T) {
	pcm := pcmFromSamples([]int16{100})
	out := samplesFromPCM(Normalize(pcm, 0))
	if out[0] != 32767 {
		t.Errorf("sample = %d, want full-scale with clamped target", out[0])
	}
}

func TestChunk_FitsInOne(t *testing.T) {
	pcm := make([]byte, bytesPerSecond) // 1s
	chunks := Chunk(pcm, 30, 500)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
}

func TestChunk_SplitsWithOverlap(t *testing.T) {
	pcm := make([]byte, 5*bytesPerSecond) // 5s
	chunks := Chunk(pcm, 2, 500)

	if len(chunks) < 3 {
		t.Fatalf("chunks = %d, want >= 3", len(chunks))
	}
	for i, c := range chunks[:len(chunks)-1] {
		if len(c) != 2*bytesPerSecond {
			t.Errorf("chunk %d length = %d, want %d", i, len(c), 2*bytesPerSecond)
		}
		if len(c)%2 != 0 {
			t.Errorf("chunk %d not sample aligned", i)
		}
	}

	// Total coverage: every byte of the input appears in some chunk.
	covered := 0
	overlap := 500 * bytesPerSecond / 1000
	for i, c := range chunks {
		if i == 0 {
			covered += len(c)
		} else {
			covered += len(c) - overlap
		}
	}
	if covered != len(pcm) {
		t.Errorf("covered %d bytes of %d", covered, len(pcm))
	}
}

func TestChunk_ZeroMaxReturnsWhole(t *testing.T) {
	pcm := make([]byte, 100)
	chunks := Chunk(pcm, 0, 0)
	if len(chunks) != 1 || len(chunks[0]) != 100 {
		t.Errorf("chunks = %v, want single whole chunk", len(chunks))
	}
}
