// Package summary renders the final placement report after an exam.
package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/muhameddgoda/lingoquesto-placement/internal/router"
	"github.com/muhameddgoda/lingoquesto-placement/internal/screen"
	"github.com/muhameddgoda/lingoquesto-placement/internal/scoring"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/layout"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/theme"
)

// SummaryScreen displays the exam report.
type SummaryScreen struct {
	report *scoring.Report
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(report *scoring.Report) *SummaryScreen {
	return &SummaryScreen{report: report}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Exam Results"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Home"},
		{Key: "Esc", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	r := s.report
	if r == nil {
		return ""
	}

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	var b strings.Builder

	b.WriteString(center.Foreground(theme.Primary).Bold(true).
		Render("Exam complete!"))
	b.WriteString("\n\n")

	level := r.HighestLevelAttempted
	if level == "" {
		level = "—"
	}
	b.WriteString(center.Foreground(theme.Text).
		Render(fmt.Sprintf("Highest level attempted: %s", level)))
	b.WriteString("\n\n")

	statsLine := fmt.Sprintf("Overall: %.1f%%        Questions: %d/%d        Points: %.0f/%.0f",
		r.OverallScore, r.QuestionsAttempted, r.TotalQuestionsPlanned, r.PointsEarned, r.PointsPossible)
	b.WriteString(center.Foreground(theme.Text).Render(statsLine))
	b.WriteString("\n\n")

	if r.CertificateEligible {
		b.WriteString(center.Render(theme.Passed.Render("Certificate earned")))
		b.WriteString("\n\n")
	}

	// Skill breakdown.
	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(
		strings.Repeat("─", minInt(width-8, 60)))
	b.WriteString(center.Foreground(theme.TextDim).Render("Skills"))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	for _, skill := range scoring.Skills {
		sp, ok := r.SkillBreakdown[skill]
		if !ok || sp.Possible == 0 {
			continue
		}
		line := fmt.Sprintf("  %-14s %6.1f%%   (%.0f/%.0f points)",
			skillLabel(skill), sp.Percentage(), sp.Earned, sp.Possible)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.Text).Render(line)))
		b.WriteString("\n")
	}

	// Per-level outcomes.
	if len(r.Levels) > 0 {
		b.WriteString("\n")
		b.WriteString(center.Foreground(theme.TextDim).Render("Levels"))
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
		b.WriteString("\n\n")

		for _, lr := range r.Levels {
			verdict := theme.Failed.Render("not passed")
			if lr.Passed {
				verdict = theme.Passed.Render("passed")
			}
			line := fmt.Sprintf("  %s    avg %.1f    %s", lr.Level, lr.Average, verdict)
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
				lipgloss.NewStyle().Foreground(theme.Text).Render(line)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func skillLabel(skill string) string {
	if skill == "" {
		return skill
	}
	return strings.ToUpper(skill[:1]) + skill[1:]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
