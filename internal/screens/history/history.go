// Package history lists past exams with their results.
package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/muhameddgoda/lingoquesto-placement/internal/router"
	"github.com/muhameddgoda/lingoquesto-placement/internal/screen"
	"github.com/muhameddgoda/lingoquesto-placement/internal/store"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/layout"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/theme"
)

type historyLoadedMsg struct {
	Exams       []store.Exam
	Submissions map[string][]store.Submission // examID → submissions
	Err         error
}

// HistoryScreen displays past exams and their submissions.
type HistoryScreen struct {
	exams       store.ExamRepo
	submissions store.SubmissionRepo

	rows     []store.Exam
	details  map[string][]store.Submission
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(exams store.ExamRepo, submissions store.SubmissionRepo) *HistoryScreen {
	return &HistoryScreen{
		exams:       exams,
		submissions: submissions,
		expanded:    make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		exams, err := s.exams.List(ctx, 50)
		if err != nil {
			return historyLoadedMsg{Err: err}
		}

		details := make(map[string][]store.Submission, len(exams))
		for _, e := range exams {
			subs, err := s.submissions.ListByExam(ctx, e.ID)
			if err != nil {
				continue
			}
			details[e.ID] = subs
		}

		return historyLoadedMsg{Exams: exams, Submissions: details}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.rows = msg.Exams
			s.details = msg.Submissions
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.rows)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
			return s, nil
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.rows) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No exams yet. Take your first placement exam!")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, e := range s.rows {
		dateStr := e.StartedAt.Format("Jan 02, 2006")

		status := lipgloss.NewStyle().Foreground(theme.Accent).Render("in progress")
		if e.CompletedAt != nil {
			level := e.HighestLevel
			if level == "" {
				level = "—"
			}
			status = fmt.Sprintf("level %s  %.1f%%", level, e.OverallScore)
			if e.CertificateEligible {
				status += "  ✓ certificate"
			}
		}

		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := fmt.Sprintf("%s%s  %s", prefix, dateStr, status)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(line)))
		b.WriteString("\n")

		// Expanded rows list the per-question submissions.
		if s.expanded[i] {
			subs := s.details[e.ID]
			if len(subs) == 0 {
				b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
					lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
						Render("    No responses recorded")))
				b.WriteString("\n")
			} else {
				for _, sub := range subs {
					detail := fmt.Sprintf("    %s %s  %.0f/100  (%s)",
						sub.Level, sub.QuestionType, sub.OverallScore, sub.TriggeredBy)
					b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
						lipgloss.NewStyle().Foreground(theme.TextDim).Render(detail)))
					b.WriteString("\n")
				}
			}
		}
	}

	return b.String()
}
