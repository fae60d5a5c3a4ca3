// Package exam implements the live exam screen: it presents one question
// instance at a time, drives its countdown off the Bubble Tea tick, and
// feeds delivered responses back into the exam session.
package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/rs/zerolog"

	"github.com/muhameddgoda/lingoquesto-placement/internal/audio"
	"github.com/muhameddgoda/lingoquesto-placement/internal/capture"
	examcore "github.com/muhameddgoda/lingoquesto-placement/internal/exam"
	"github.com/muhameddgoda/lingoquesto-placement/internal/logging"
	"github.com/muhameddgoda/lingoquesto-placement/internal/question"
	"github.com/muhameddgoda/lingoquesto-placement/internal/respond"
	"github.com/muhameddgoda/lingoquesto-placement/internal/router"
	"github.com/muhameddgoda/lingoquesto-placement/internal/screen"
	"github.com/muhameddgoda/lingoquesto-placement/internal/screens/summary"
	"github.com/muhameddgoda/lingoquesto-placement/internal/store"
	"github.com/muhameddgoda/lingoquesto-placement/internal/timer"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/layout"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/theme"
)

// Deps carries everything the exam screen needs injected.
type Deps struct {
	Bank        *question.Bank
	Device      capture.Device
	Scorer      examcore.Scorer
	Config      examcore.Config
	UserID      string
	Exams       store.ExamRepo
	Submissions store.SubmissionRepo
	Events      store.EventRepo
}

// ExamScreen implements screen.Screen for a running exam.
type ExamScreen struct {
	deps Deps
	log  zerolog.Logger

	session  *examcore.Session
	co       *respond.Coordinator
	instance *examcore.Instance

	// deliveries is fed by each coordinator's submission gate; the event
	// loop drains it one record per question. done unblocks the pending
	// receiver when the exam ends with a question still live.
	deliveries chan deliveredMsg
	done       chan struct{}
	ended      bool

	spin spinner.Model

	lastOutcome        *examcore.Outcome
	showingFeedback    bool
	showingQuitConfirm bool
	errMsg             string
}

var _ screen.Screen = (*ExamScreen)(nil)
var _ screen.KeyHintProvider = (*ExamScreen)(nil)

// New creates a new ExamScreen with injected dependencies.
func New(deps Deps) *ExamScreen {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(theme.Primary)
	return &ExamScreen{
		deps:       deps,
		log:        logging.WithComponent("exam-screen"),
		deliveries: make(chan deliveredMsg, 4),
		done:       make(chan struct{}),
		spin:       spin,
	}
}

// gateSubmitter is the submission side of the coordinator: the gate calls
// it at most once per question, and it hands the record to the event loop.
type gateSubmitter struct {
	ch chan<- deliveredMsg
}

func (g *gateSubmitter) SubmitArtifact(_ context.Context, record respond.SubmissionRecord) error {
	g.ch <- deliveredMsg{Record: record}
	return nil
}

func (s *ExamScreen) Init() tea.Cmd {
	return tea.Batch(s.initExam(), tickCmd(), s.spin.Tick)
}

func (s *ExamScreen) Title() string {
	return "Placement Exam"
}

// Level reports the level under examination for the header.
func (s *ExamScreen) Level() string {
	if s.session == nil || s.session.Complete() {
		return ""
	}
	return s.session.Level()
}

func (s *ExamScreen) KeyHints() []layout.KeyHint {
	if s.showingQuitConfirm {
		return []layout.KeyHint{
			{Key: "Y", Description: "End exam"},
			{Key: "N", Description: "Keep going"},
		}
	}
	if s.showingFeedback {
		return []layout.KeyHint{
			{Key: "any key", Description: "Continue"},
		}
	}
	if s.co != nil && s.co.Phase() == timer.PhaseThinking {
		return []layout.KeyHint{
			{Key: "S", Description: "Start answering"},
			{Key: "Esc", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Submit answer"},
		{Key: "Esc", Description: "Quit"},
	}
}

func (s *ExamScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case examInitMsg:
		return s.handleInit(msg)

	case timerTickMsg:
		return s.handleTimerTick()

	case deliveredMsg:
		return s.handleDelivered(msg)

	case outcomeMsg:
		return s.handleOutcome(msg)

	case examEndMsg:
		return s.handleExamEnd(msg)

	case spinner.TickMsg:
		// Only animate while there is nothing else to show.
		if s.session != nil {
			return s, nil
		}
		var cmd tea.Cmd
		s.spin, cmd = s.spin.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

// initExam creates the session and its database row.
func (s *ExamScreen) initExam() tea.Cmd {
	return func() tea.Msg {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		session, err := examcore.NewSession(s.deps.UserID, s.deps.Bank, s.deps.Config, s.deps.Scorer, rng, s.log)
		if err != nil {
			return examInitMsg{Err: err}
		}

		ctx := context.Background()
		if err := s.deps.Exams.Create(ctx, session.ID, session.UserID, session.StartedAt); err != nil {
			return examInitMsg{Err: err}
		}
		_, _ = s.deps.Events.Append(ctx, session.ID, store.EventExamStarted, session.Level())

		return examInitMsg{Session: session}
	}
}

func (s *ExamScreen) handleInit(msg examInitMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.session = msg.Session
	return s, s.startInstance(s.session.Current())
}

// startInstance retires the previous coordinator and binds a fresh one to
// the new question instance. The old coordinator is disposed before the new
// one exists, so nothing stale can reach the new question.
func (s *ExamScreen) startInstance(inst *examcore.Instance) tea.Cmd {
	if s.co != nil {
		s.co.Dispose()
	}

	co, err := respond.New(inst.RespondQuestion(), s.deps.Device, &gateSubmitter{ch: s.deliveries}, respond.Options{
		Logger: s.log,
	})
	if err != nil {
		s.errMsg = err.Error()
		return nil
	}

	s.co = co
	s.instance = inst
	s.showingFeedback = false
	s.lastOutcome = nil

	return s.waitForDelivery()
}

// waitForDelivery blocks until the active question's record passes the gate
// or the exam is over.
func (s *ExamScreen) waitForDelivery() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-s.deliveries:
			return msg
		case <-s.done:
			return nil
		}
	}
}

// retireWaiter releases the pending delivery receiver once no further
// deliveries can matter. Idempotent.
func (s *ExamScreen) retireWaiter() {
	if s.ended {
		return
	}
	s.ended = true
	close(s.done)
}

func (s *ExamScreen) handleTimerTick() (screen.Screen, tea.Cmd) {
	if s.co != nil && !s.showingFeedback && !s.showingQuitConfirm {
		s.co.Tick()
	}
	return s, tickCmd()
}

// handleDelivered post-processes the captured audio, scores the record, and
// advances the exam session.
func (s *ExamScreen) handleDelivered(msg deliveredMsg) (screen.Screen, tea.Cmd) {
	inst := s.instance
	session := s.session
	return s, func() tea.Msg {
		record := msg.Record
		record.Artifact = audio.PrepareArtifact(record.Artifact)

		out, err := session.SubmitResponse(context.Background(), record)
		if err != nil {
			return outcomeMsg{Err: err}
		}

		sub := store.Submission{
			ExamID:       session.ID,
			InstanceID:   record.QuestionID,
			QuestionID:   inst.Question.ID,
			Level:        inst.Level,
			QuestionType: string(inst.Question.Type),
			TriggeredBy:  string(record.TriggeredBy),
			OverallScore: out.Score.Overall,
		}
		if a := record.Artifact; a != nil {
			sub.MimeType = a.MimeType
			sub.SizeBytes = a.SizeBytes
			sub.DurationSecs = audio.ArtifactDuration(a)
		}
		if _, err := s.deps.Submissions.Append(context.Background(), sub); err != nil {
			s.log.Error().Err(err).Msg("persist submission failed")
		}

		if lr := out.LevelResult; lr != nil {
			kind := store.EventLevelFailed
			if lr.Passed {
				kind = store.EventLevelPassed
			}
			detail := fmt.Sprintf("%s avg %.1f", lr.Level, lr.Average)
			_, _ = s.deps.Events.Append(context.Background(), session.ID, kind, detail)
		}

		return outcomeMsg{Instance: inst, Outcome: out}
	}
}

func (s *ExamScreen) handleOutcome(msg outcomeMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		// A record for a retired instance; the session already moved on.
		s.log.Warn().Err(msg.Err).Msg("submission not accepted by exam session")
		return s, nil
	}
	s.lastOutcome = msg.Outcome
	s.showingFeedback = true
	return s, nil
}

// dismissFeedback moves from the score card to the next question or the
// final report.
func (s *ExamScreen) dismissFeedback() (screen.Screen, tea.Cmd) {
	out := s.lastOutcome
	s.showingFeedback = false
	s.lastOutcome = nil

	if out == nil {
		return s, nil
	}
	if out.Complete {
		return s, func() tea.Msg { return examEndMsg{Report: out.Report} }
	}
	return s, s.startInstance(out.Next)
}

func (s *ExamScreen) handleExamEnd(msg examEndMsg) (screen.Screen, tea.Cmd) {
	if s.co != nil {
		s.co.Dispose()
		s.co = nil
	}
	s.retireWaiter()

	session := s.session
	report := msg.Report
	ctx := context.Background()

	reportJSON, err := json.Marshal(report)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal report failed")
		reportJSON = []byte("{}")
	}
	err = s.deps.Exams.Complete(ctx, session.ID, time.Now(),
		report.HighestLevelAttempted, report.OverallScore, report.CertificateEligible, string(reportJSON))
	if err != nil {
		s.log.Error().Err(err).Msg("persist exam completion failed")
	}

	kind := store.EventExamCompleted
	if msg.Abandoned {
		kind = store.EventExamAbandoned
	}
	_, _ = s.deps.Events.Append(ctx, session.ID, kind, report.HighestLevelAttempted)

	return s, func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: summary.New(report)}
	}
}

func (s *ExamScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	// Error state: any key goes back.
	if s.errMsg != "" {
		if s.co != nil {
			s.co.Dispose()
		}
		s.retireWaiter()
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}

	if s.session == nil {
		return s, nil
	}

	// Quit confirmation dialog.
	if s.showingQuitConfirm {
		switch key {
		case "y", "Y":
			s.showingQuitConfirm = false
			return s.abandonExam()
		case "n", "N", "esc":
			s.showingQuitConfirm = false
			return s, nil
		}
		return s, nil
	}

	// Score card: any key continues.
	if s.showingFeedback {
		return s.dismissFeedback()
	}

	switch key {
	case "esc":
		s.showingQuitConfirm = true
		return s, nil
	case "s", "S":
		if s.co != nil {
			s.co.Skip()
		}
		return s, nil
	case "enter":
		if s.co != nil {
			if err := s.co.Submit(); err != nil {
				// Too early; the thinking window is still running.
				return s, nil
			}
		}
		return s, nil
	}

	return s, nil
}

// abandonExam tears down the live question and folds whatever was answered
// into a partial report.
func (s *ExamScreen) abandonExam() (screen.Screen, tea.Cmd) {
	if s.co != nil {
		s.co.Dispose()
		s.co = nil
	}
	report := s.session.Abandon()
	return s, func() tea.Msg { return examEndMsg{Report: report, Abandoned: true} }
}

// tickCmd returns a 1-second tick command.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}
