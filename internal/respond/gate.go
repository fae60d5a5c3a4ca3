package respond

import (
	"context"
	"sync"

	"github.com/muhameddgoda/lingoquesto-placement/internal/capture"
)

// Trigger identifies which path produced a submission.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerExpiry Trigger = "expiry"
	TriggerForced Trigger = "forced"
)

// SubmissionRecord is the single finalized response for one question.
// Artifact is nil when nothing was captured; an empty response is still a
// valid submission.
type SubmissionRecord struct {
	QuestionID  string
	Artifact    *capture.Artifact
	TriggeredBy Trigger
}

// Submitter is the external collaborator receiving finalized responses.
// Implementations deliver the artifact to a server, a local store, or a
// test double; the gate only cares whether delivery succeeded.
type Submitter interface {
	SubmitArtifact(ctx context.Context, record SubmissionRecord) error
}

// Gate wraps the terminal submission so that exactly one record reaches the
// submitter per question, no matter how many trigger paths race: manual
// submit, expiry, and forced teardown can all call Deliver concurrently.
type Gate struct {
	submitter Submitter

	mu        sync.Mutex
	delivered bool
}

// NewGate returns an undelivered gate over the given submitter.
func NewGate(submitter Submitter) *Gate {
	return &Gate{submitter: submitter}
}

// Delivered reports whether a record has already passed the gate.
func (g *Gate) Delivered() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delivered
}

// Deliver hands the record to the submitter. The delivered flag flips
// before the submitter runs, so a second trigger arriving mid-delivery is
// rejected; duplicates are silent no-ops reporting false. A submitter
// failure surfaces as the returned error but never re-opens the gate;
// retrying a finalized record is the collaborator's business.
func (g *Gate) Deliver(ctx context.Context, record SubmissionRecord) (bool, error) {
	g.mu.Lock()
	if g.delivered {
		g.mu.Unlock()
		return false, nil
	}
	g.delivered = true
	g.mu.Unlock()

	return true, g.submitter.SubmitArtifact(ctx, record)
}
