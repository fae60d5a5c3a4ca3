// Package home is the landing screen: start an exam, browse history, exit.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/muhameddgoda/lingoquesto-placement/internal/router"
	"github.com/muhameddgoda/lingoquesto-placement/internal/screen"
	examscreen "github.com/muhameddgoda/lingoquesto-placement/internal/screens/exam"
	"github.com/muhameddgoda/lingoquesto-placement/internal/screens/history"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/components"
	"github.com/muhameddgoda/lingoquesto-placement/internal/ui/theme"
)

// HomeScreen is the main menu of the application.
type HomeScreen struct {
	menu      components.Menu
	lastLevel string
	lastScore float64
	hasResult bool
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps examscreen.Deps) *HomeScreen {
	h := &HomeScreen{}

	// Show the most recent completed result, if any.
	if exams, err := deps.Exams.List(context.Background(), 10); err == nil {
		for _, e := range exams {
			if e.CompletedAt != nil {
				h.lastLevel = e.HighestLevel
				h.lastScore = e.OverallScore
				h.hasResult = true
				break
			}
		}
	}

	items := []components.MenuItem{
		{Label: "START EXAM", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: examscreen.New(deps)}
			}
		}},
		{Label: "HISTORY", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: history.New(deps.Exams, deps.Submissions)}
			}
		}},
		{Label: "EXIT", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}

	h.menu = components.NewMenu(items)
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	var sections []string

	sections = append(sections,
		center.Foreground(theme.Primary).Bold(true).Render("LINGOQUESTO PLACEMENT"),
		center.Foreground(theme.TextDim).Render("Spoken language placement exam — A1 to C2"))

	if h.hasResult {
		level := h.lastLevel
		if level == "" {
			level = "—"
		}
		sections = append(sections,
			center.Foreground(theme.Text).Render(
				fmt.Sprintf("Last result: level %s (%.1f%%)", level, h.lastScore)))
	}

	sections = append(sections, lipgloss.PlaceHorizontal(width, lipgloss.Center, h.menu.View()))

	content := strings.Join(sections, "\n\n")

	// Vertically center in the content area.
	contentHeight := lipgloss.Height(content)
	topPad := (height - contentHeight) / 2
	if topPad < 0 {
		topPad = 0
	}
	return strings.Repeat("\n", topPad) + content
}

func (h *HomeScreen) Title() string {
	return "Home"
}
