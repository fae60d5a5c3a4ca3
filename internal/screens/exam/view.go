package exam

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/muhameddgoda/lingoquesto-placement/internal/question"
	"github.com/muhameddgoda/lingoquesto-placement/internal/timer"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/components"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/theme"
)

func (s *ExamScreen) View(width, height int) string {
	if s.errMsg != "" {
		return renderError(width, s.errMsg)
	}
	if s.session == nil || s.instance == nil {
		return s.renderLoading(width)
	}
	if s.showingQuitConfirm {
		return renderQuitConfirm(width)
	}
	if s.showingFeedback {
		return s.renderFeedback(width)
	}
	return s.renderQuestionView(width)
}

// renderQuestionView renders the live question: prompt, phase banner, and
// the countdown for the current window.
func (s *ExamScreen) renderQuestionView(width int) string {
	inst := s.instance
	var b strings.Builder

	// Position line.
	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Level %s", inst.Level))

	infoRight := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("Question %d/%d  [%s]", inst.Number, inst.Total, typeLabel(inst.Question.Type)))

	infoLine := infoLeft
	rightPad := width - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight) - 4
	if rightPad > 0 {
		infoLine += strings.Repeat(" ", rightPad) + infoRight
	}
	b.WriteString(infoLine)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	// Prompt (centered).
	promptStyle := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true)
	b.WriteString(promptStyle.Render(inst.Question.Prompt))
	b.WriteString("\n\n")

	b.WriteString(s.renderPhase(width))
	return b.String()
}

// renderPhase shows the countdown banner for the current timer phase.
func (s *ExamScreen) renderPhase(width int) string {
	if s.co == nil {
		return ""
	}

	var b strings.Builder
	remaining := s.co.Remaining()
	phase := s.co.Phase()

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	switch phase {
	case timer.PhaseThinking:
		total := s.instance.Timing.ThinkTimeSeconds
		b.WriteString(center.Foreground(theme.Accent).Bold(true).
			Render(fmt.Sprintf("THINK  %s", formatSeconds(remaining))))
		b.WriteString("\n\n")
		b.WriteString(center.Render(countdownBar(remaining, total, width)))
		b.WriteString("\n\n")
		b.WriteString(center.Foreground(theme.TextDim).Italic(true).
			Render("Recording starts when the response window opens. Press S to start now."))

	case timer.PhaseResponding:
		total := s.instance.Timing.ResponseTimeSeconds
		banner := "RESPOND"
		style := center.Foreground(theme.Secondary).Bold(true)
		if s.co.Recording() {
			banner = "● RECORDING"
			style = center.Foreground(theme.Recording).Bold(true)
		}
		b.WriteString(style.Render(fmt.Sprintf("%s  %s", banner, formatSeconds(remaining))))
		b.WriteString("\n\n")
		b.WriteString(center.Render(countdownBar(remaining, total, width)))
		b.WriteString("\n\n")
		b.WriteString(center.Foreground(theme.TextDim).Italic(true).
			Render("Speak your answer, then press Enter to submit."))

	case timer.PhaseExpired, timer.PhaseStopped:
		b.WriteString(center.Foreground(theme.TextDim).
			Render("Submitting your response..."))
	}

	return b.String()
}

// renderFeedback shows the score card between questions.
func (s *ExamScreen) renderFeedback(width int) string {
	out := s.lastOutcome
	if out == nil {
		return ""
	}

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	var b strings.Builder
	b.WriteString("\n\n")

	b.WriteString(center.Foreground(theme.Primary).Bold(true).
		Render(fmt.Sprintf("Score: %.0f / 100", out.Score.Overall)))
	b.WriteString("\n\n")

	if lr := out.LevelResult; lr != nil {
		if lr.Passed {
			b.WriteString(center.Render(theme.Passed.
				Render(fmt.Sprintf("Level %s passed (avg %.1f)", lr.Level, lr.Average))))
		} else {
			b.WriteString(center.Render(theme.Failed.
				Render(fmt.Sprintf("Level %s not passed (avg %.1f)", lr.Level, lr.Average))))
		}
		b.WriteString("\n\n")
	}

	next := "Next question"
	if out.Complete {
		next = "See your results"
	} else if out.LevelResult != nil && out.Next != nil {
		next = fmt.Sprintf("Continue to level %s", out.Next.Level)
	}
	b.WriteString(center.Foreground(theme.TextDim).Italic(true).
		Render(fmt.Sprintf("Press any key — %s", next)))

	return b.String()
}

func renderQuitConfirm(width int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	return "\n\n" +
		center.Foreground(theme.Text).Bold(true).Render("End the exam here?") + "\n\n" +
		center.Foreground(theme.TextDim).Render("Answered questions are kept; the current one is discarded.") + "\n\n" +
		center.Foreground(theme.TextDim).Render("Y to end, N to keep going")
}

func (s *ExamScreen) renderLoading(width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("\n\n  %s Preparing your exam...", s.spin.View()))
}

func renderError(width int, msg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\nError: %s\n\nPress any key to go back.", msg))
}

// countdownBar renders remaining time as a draining progress bar.
func countdownBar(remaining, total, width int) string {
	if total <= 0 {
		total = 1
	}
	barWidth := min(width-20, 50)
	if barWidth < 10 {
		barWidth = 10
	}
	p := components.NewProgressBar("", float64(remaining)/float64(total), false, barWidth)
	return p.View()
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func typeLabel(t question.Type) string {
	switch t {
	case question.TypeRepeatSentence:
		return "Repeat the sentence"
	case question.TypeOpenResponse:
		return "Open response"
	case question.TypeImageDescription:
		return "Describe the image"
	case question.TypeListenAnswer:
		return "Listen and answer"
	}
	return string(t)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
