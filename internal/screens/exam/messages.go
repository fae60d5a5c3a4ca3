package exam

import (
	"time"

	examcore "github.com/muhameddgoda/lingoquesto-placement/internal/exam"
	"github.com/muhameddgoda/lingoquesto-placement/internal/respond"
	"github.com/muhameddgoda/lingoquesto-placement/internal/scoring"
)

// examInitMsg is sent when the exam session has been created and persisted.
type examInitMsg struct {
	Session *examcore.Session
	Err     error
}

// timerTickMsg is sent every second to advance the active countdown.
type timerTickMsg time.Time

// deliveredMsg carries the one submission record that passed the gate for
// the current question instance.
type deliveredMsg struct {
	Record respond.SubmissionRecord
}

// outcomeMsg is sent after the delivered record has been scored and the
// exam session advanced.
type outcomeMsg struct {
	Instance *examcore.Instance
	Outcome  *examcore.Outcome
	Err      error
}

// examEndMsg triggers the end-of-exam flow with the final report.
type examEndMsg struct {
	Report    *scoring.Report
	Abandoned bool
}
