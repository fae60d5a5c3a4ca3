// Package question defines the spoken-question bank: typed prompts grouped
// by CEFR level, each carrying the think/response timing the coordinator
// runs the countdown with.
package question

import "fmt"

// Type is a spoken question variant. Form-based variants (multiple choice,
// dictation, minimal pairs) are handled outside the capture flow and have
// no representation here.
type Type string

const (
	TypeRepeatSentence   Type = "repeat_sentence"
	TypeOpenResponse     Type = "open_response"
	TypeImageDescription Type = "image_description"
	TypeListenAnswer     Type = "listen_answer"
)

// Levels is the gated exam order.
var Levels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// Question is one bank entry. Level is derived from the ID prefix
// (e.g. "A1-RS-001" → "A1") when not set explicitly.
type Question struct {
	ID       string            `json:"id"`
	Type     Type              `json:"type"`
	Level    string            `json:"level,omitempty"`
	Prompt   string            `json:"prompt"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ExpectedText returns the reference text for scripted types, empty for
// unscripted ones.
func (q Question) ExpectedText() string {
	return q.Metadata["expectedText"]
}

// Timing is the two-phase countdown for one question.
type Timing struct {
	ThinkTimeSeconds    int
	ResponseTimeSeconds int
}

// defaultTimings mirrors the exam's per-type timing configuration. Unknown
// types fall back to fallbackTiming.
var defaultTimings = map[Type]Timing{
	TypeRepeatSentence:   {ThinkTimeSeconds: 3, ResponseTimeSeconds: 15},
	TypeOpenResponse:     {ThinkTimeSeconds: 30, ResponseTimeSeconds: 120},
	TypeImageDescription: {ThinkTimeSeconds: 10, ResponseTimeSeconds: 80},
	TypeListenAnswer:     {ThinkTimeSeconds: 5, ResponseTimeSeconds: 25},
}

var fallbackTiming = Timing{ThinkTimeSeconds: 5, ResponseTimeSeconds: 30}

// TimingFor returns the countdown configuration for a question type.
func TimingFor(t Type) Timing {
	if tm, ok := defaultTimings[t]; ok {
		return tm
	}
	return fallbackTiming
}

// KnownType reports whether t is one of the spoken variants.
func KnownType(t Type) bool {
	_, ok := defaultTimings[t]
	return ok
}

// validate checks the structural fields the schema cannot express.
func (q Question) validate() error {
	if q.ID == "" {
		return fmt.Errorf("question missing id")
	}
	if q.Prompt == "" {
		return fmt.Errorf("question %s missing prompt", q.ID)
	}
	if q.Type == TypeRepeatSentence && q.ExpectedText() == "" {
		return fmt.Errorf("question %s: repeat_sentence requires metadata.expectedText", q.ID)
	}
	return nil
}
