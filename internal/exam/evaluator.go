package exam

import (
	"context"

	"github.com/muhameddgoda/lingoquesto-placement/internal/audio"
	"github.com/muhameddgoda/lingoquesto-placement/internal/question"
	"github.com/muhameddgoda/lingoquesto-placement/internal/respond"
	"github.com/muhameddgoda/lingoquesto-placement/internal/scoring"
)

// Per-request audio limits of the hosted scorer; responses over the cap are
// ingested in overlapping chunks.
const (
	uploadCapSeconds   = 30
	chunkOverlapMillis = 500
)

// LocalEvaluator is a deterministic offline stand-in for the speech
// scoring service. It grades on response coverage: how much of the
// allotted window the candidate actually spoke. Useful for demos and
// tests; a silent or skipped response scores zero.
type LocalEvaluator struct {
	// BaseScore is awarded for any non-empty response; coverage fills the
	// rest of the scale. Defaults to 60.
	BaseScore float64
}

func (e *LocalEvaluator) base() float64 {
	if e.BaseScore > 0 {
		return e.BaseScore
	}
	return 60
}

// Score grades the artifact by spoken duration relative to the question's
// response window, ingesting the audio the way the hosted scorer would:
// WAV unwrapped, long responses split at the upload cap. Skills that the
// question's profile ignores still get a value; the profile zeroes their
// weight downstream.
func (e *LocalEvaluator) Score(_ context.Context, q question.Question, record *respond.SubmissionRecord) (map[string]float64, error) {
	if record == nil || record.Artifact == nil || record.Artifact.SizeBytes == 0 {
		return map[string]float64{}, nil
	}

	pcm := record.Artifact.Bytes
	if p, err := audio.DecodeWAV(pcm); err == nil {
		pcm = p
	}

	var spoken float64
	for i, chunk := range audio.Chunk(pcm, uploadCapSeconds, chunkOverlapMillis) {
		d := audio.Duration(chunk)
		if i > 0 {
			// The overlap repeats the tail of the previous chunk.
			d -= float64(chunkOverlapMillis) / 1000
		}
		spoken += d
	}

	window := question.TimingFor(q.Type).ResponseTimeSeconds
	if window <= 0 {
		window = 1
	}
	coverage := spoken / float64(window)
	if coverage > 1 {
		coverage = 1
	}

	score := e.base() + (100-e.base())*coverage
	out := make(map[string]float64, len(scoring.Skills))
	for _, skill := range scoring.Skills {
		out[skill] = score
	}
	return out, nil
}
