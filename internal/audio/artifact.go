package audio

import (
	"github.com/muhameddgoda/lingoquesto-placement/internal/capture"
)

// normalizeTarget is the peak amplitude captured speech is brought to before
// evaluation.
const normalizeTarget = 0.9

// PrepareArtifact post-processes a finalized capture before the evaluator and
// the submission log see it: raw PCM is peak-normalized and framed as WAV.
// Nil artifacts and artifacts already carrying a container pass through
// unchanged.
func PrepareArtifact(a *capture.Artifact) *capture.Artifact {
	if a == nil || a.MimeType != MimeTypePCM || len(a.Bytes) == 0 {
		return a
	}
	wav := EncodeWAV(Normalize(a.Bytes, normalizeTarget))
	return &capture.Artifact{
		Bytes:     wav,
		MimeType:  MimeTypeWAV,
		SizeBytes: len(wav),
	}
}

// ArtifactDuration returns the spoken seconds in an artifact, unwrapping the
// WAV container when present. Nil artifacts have zero duration.
func ArtifactDuration(a *capture.Artifact) float64 {
	if a == nil {
		return 0
	}
	pcm := a.Bytes
	if p, err := DecodeWAV(pcm); err == nil {
		pcm = p
	}
	return Duration(pcm)
}
