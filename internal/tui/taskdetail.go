package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/tempo/internal/timer"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// renderDetail shows the selected task's timer and banked sessions, newest
// first.
func (a *App) renderDetail(height int) string {
	t := a.selectedTask()
	if t == nil {
		return "\n  No task selected.\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(t.Title) + "\n")

	state := "stopped"
	if t.IsRunning {
		state = runningStyle.Render("running")
	}
	b.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Status:"), formatStatus(t.Status),
		labelStyle.Render("Timer:"), state,
		labelStyle.Render("Total:"), a.taskLabel(t)))
	if t.Description != "" {
		b.WriteString(labelStyle.Render("Description: ") + t.Description + "\n")
	}

	b.WriteString(sectionStyle.Render("Sessions") + "\n")
	if len(a.sessions) == 0 {
		b.WriteString("  none\n")
		return b.String()
	}

	room := height - 5
	if room < 1 {
		room = 1
	}
	for i := len(a.sessions) - 1; i >= 0 && room > 0; i-- {
		s := a.sessions[i]
		b.WriteString(fmt.Sprintf("  %s  %s → %s  %8s  %s\n",
			s.StartedAt.Local().Format("Jan 02"),
			s.StartedAt.Local().Format("15:04"),
			s.StoppedAt.Local().Format("15:04"),
			timer.FormatSeconds(s.Seconds),
			helpStyle.Render(string(s.Source))))
		room--
	}
	return b.String()
}
