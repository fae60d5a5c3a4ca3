// Package exam runs the level-gated placement session: it draws questions
// from the bank level by level, scores each submitted response, and decides
// whether the candidate advances, all the way to the cumulative report.
package exam

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/muhameddgoda/lingoquesto-placement/internal/question"
	"github.com/muhameddgoda/lingoquesto-placement/internal/respond"
	"github.com/muhameddgoda/lingoquesto-placement/internal/scoring"
)

// ErrWrongQuestion reports a submission for a question that is not the
// current instance, i.e. a stale trigger that survived teardown.
var ErrWrongQuestion = errors.New("exam: submission does not match the current question instance")

// ErrExamComplete reports a submission arriving after the exam finished.
var ErrExamComplete = errors.New("exam: already complete")

// Scorer evaluates one captured response into raw 0-100 skill scores. It
// is an external collaborator (a speech-scoring API in production); the
// session only consumes its output.
type Scorer interface {
	Score(ctx context.Context, q question.Question, artifact *respond.SubmissionRecord) (map[string]float64, error)
}

// Config shapes the exam: level order and how many questions of each type
// a level asks.
type Config struct {
	Levels        []string
	PerLevel      map[string]map[question.Type]int
	GateThreshold float64
}

// DefaultConfig mirrors the production exam layout for the spoken types.
func DefaultConfig() Config {
	return Config{
		Levels: question.Levels,
		PerLevel: map[string]map[question.Type]int{
			"A1": {question.TypeRepeatSentence: 1, question.TypeOpenResponse: 1},
			"A2": {question.TypeRepeatSentence: 1},
			"B1": {question.TypeRepeatSentence: 1},
			"B2": {question.TypeOpenResponse: 1},
			"C1": {question.TypeRepeatSentence: 1, question.TypeOpenResponse: 1},
			"C2": {question.TypeOpenResponse: 1},
		},
		GateThreshold: scoring.GateThreshold,
	}
}

// Plan lists every question the full exam would ask, for the cumulative
// report denominator.
func (c Config) Plan() []scoring.PlannedQuestion {
	var plan []scoring.PlannedQuestion
	for _, level := range c.Levels {
		for t, n := range c.PerLevel[level] {
			if n > 0 {
				plan = append(plan, scoring.PlannedQuestion{QuestionType: string(t), Count: n})
			}
		}
	}
	return plan
}

// Instance is one presented question. A fresh instance (fresh InstanceID)
// exists per presentation; the previous instance's coordinator is disposed
// before the next instance is handed out.
type Instance struct {
	InstanceID string
	Question   question.Question
	Timing     question.Timing
	Number     int // 1-based within the level
	Total      int // questions in the level
	Level      string
}

// RespondQuestion adapts the instance for the response coordinator.
func (i *Instance) RespondQuestion() respond.Question {
	return respond.Question{
		ID:                  i.InstanceID,
		ThinkTimeSeconds:    i.Timing.ThinkTimeSeconds,
		ResponseTimeSeconds: i.Timing.ResponseTimeSeconds,
	}
}

// Outcome is the session's reaction to one scored submission.
type Outcome struct {
	Score       scoring.QuestionScore
	LevelResult *scoring.LevelResult // set when the submission closed a level
	Next        *Instance            // nil when the exam is over
	Complete    bool
	Report      *scoring.Report // set when Complete
}

// Session is one candidate's pass through the exam. Not safe for
// concurrent use; the owning event loop serializes access.
type Session struct {
	ID        string
	UserID    string
	StartedAt time.Time

	cfg    Config
	bank   *question.Bank
	scorer Scorer
	rng    *rand.Rand
	log    zerolog.Logger

	levelIdx int
	queue    []question.Question
	qIndex   int
	scores   []scoring.QuestionScore
	levels   []scoring.LevelResult
	current  *Instance
	complete bool
	report   *scoring.Report
}

// NewSession starts an exam at the first level and prepares its first
// question. Fails if the bank cannot populate the opening level.
func NewSession(userID string, bank *question.Bank, cfg Config, scorer Scorer, rng *rand.Rand, log zerolog.Logger) (*Session, error) {
	if len(cfg.Levels) == 0 {
		return nil, fmt.Errorf("exam: config has no levels")
	}
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		StartedAt: time.Now(),
		cfg:       cfg,
		bank:      bank,
		scorer:    scorer,
		rng:       rng,
		log:       log,
	}
	if err := s.enterLevel(0); err != nil {
		return nil, err
	}
	s.current = s.instanceFor(s.queue[0], 1)
	return s, nil
}

// Current returns the active question instance.
func (s *Session) Current() *Instance {
	return s.current
}

// Complete reports whether the exam is over.
func (s *Session) Complete() bool {
	return s.complete
}

// Report returns the final report once the exam completes, nil before.
func (s *Session) Report() *scoring.Report {
	return s.report
}

// Level returns the level currently being examined.
func (s *Session) Level() string {
	return s.cfg.Levels[s.levelIdx]
}

// SubmitResponse scores the record for the current instance and advances
// the session: next question, next level, or final report. Exactly one
// submission is accepted per instance; anything else is rejected.
func (s *Session) SubmitResponse(ctx context.Context, record respond.SubmissionRecord) (*Outcome, error) {
	if s.complete {
		return nil, ErrExamComplete
	}
	if s.current == nil || record.QuestionID != s.current.InstanceID {
		return nil, ErrWrongQuestion
	}

	q := s.current.Question
	raw, err := s.scorer.Score(ctx, q, &record)
	if err != nil {
		// A dead scorer must not strand the candidate; the response is
		// recorded as unscored.
		s.log.Error().Err(err).Str("question_id", q.ID).Msg("scoring failed; recording zero scores")
		raw = map[string]float64{}
	}

	qs := scoring.ProfileFor(string(q.Type)).Apply(q.ID, raw)
	s.scores = append(s.scores, qs)
	s.current = nil
	s.qIndex++

	out := &Outcome{Score: qs}

	if s.qIndex < len(s.queue) {
		s.current = s.instanceFor(s.queue[s.qIndex], s.qIndex+1)
		out.Next = s.current
		return out, nil
	}

	// Level complete: gate on the average.
	level := s.Level()
	avg := scoring.LevelAverage(s.scores)
	lr := scoring.LevelResult{
		Level:     level,
		Questions: s.scores,
		Average:   avg,
		Passed:    avg >= s.cfg.GateThreshold,
	}
	s.levels = append(s.levels, lr)
	s.scores = nil
	out.LevelResult = &lr

	if lr.Passed && s.levelIdx+1 < len(s.cfg.Levels) {
		if err := s.enterLevel(s.levelIdx + 1); err == nil {
			s.current = s.instanceFor(s.queue[0], 1)
			out.Next = s.current
			return out, nil
		}
		// No questions for the next level; the exam ends here.
		s.log.Warn().Str("level", s.cfg.Levels[s.levelIdx+1]).Msg("no questions for next level; completing exam")
	}

	s.finish(out)
	return out, nil
}

// Abandon ends the exam immediately, producing a report from whatever was
// completed.
func (s *Session) Abandon() *scoring.Report {
	if s.complete {
		return s.report
	}
	out := &Outcome{}
	if len(s.scores) > 0 {
		// Fold the partial level in as attempted but unfinished.
		avg := scoring.LevelAverage(s.scores)
		s.levels = append(s.levels, scoring.LevelResult{
			Level:     s.Level(),
			Questions: s.scores,
			Average:   avg,
			Passed:    false,
		})
		s.scores = nil
	}
	s.finish(out)
	return s.report
}

func (s *Session) finish(out *Outcome) {
	s.complete = true
	s.current = nil
	r := scoring.BuildReport(s.levels, s.cfg.Plan())
	s.report = &r
	out.Complete = true
	out.Report = s.report
}

// enterLevel draws the level's questions from the bank in a shuffled
// order. A level with no available questions is an error for the caller
// to translate.
func (s *Session) enterLevel(idx int) error {
	level := s.cfg.Levels[idx]
	var queue []question.Question
	for t, n := range s.cfg.PerLevel[level] {
		queue = append(queue, s.bank.Select(level, t, n, s.rng)...)
	}
	if len(queue) == 0 {
		return fmt.Errorf("exam: no questions available for level %s", level)
	}
	s.rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
	s.levelIdx = idx
	s.queue = queue
	s.qIndex = 0
	return nil
}

func (s *Session) instanceFor(q question.Question, number int) *Instance {
	return &Instance{
		InstanceID: uuid.New().String(),
		Question:   q,
		Timing:     question.TimingFor(q.Type),
		Number:     number,
		Total:      len(s.queue),
		Level:      s.Level(),
	}
}
