package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/timer"
)

var (
	statusTodo       = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func formatStatus(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusTodo:
		return statusTodo.Render("todo")
	case models.TaskStatusInProgress:
		return statusInProgress.Render("doing")
	case models.TaskStatusDone:
		return statusDone.Render("done")
	default:
		return string(status)
	}
}

// taskLabel is the live elapsed label for one task at the last tick.
func (a *App) taskLabel(t *models.Task) string {
	return timer.FormatSeconds(timer.Elapsed(t, a.now))
}

func (a *App) renderProjects(height int) string {
	if a.loading {
		return "\n  Loading projects...\n"
	}
	if len(a.projects) == 0 {
		return "\n  No projects yet. Create one with: tempo project add <name>\n"
	}

	lines := make([]string, 0, len(a.projects))
	for i, p := range a.projects {
		rate := ""
		if p.HourlyRateCents > 0 {
			rate = fmt.Sprintf("  %d.%02d %s/h", p.HourlyRateCents/100, p.HourlyRateCents%100, p.Currency)
		}
		if i == a.selected {
			lines = append(lines, selectedStyle.Render("▶ "+p.Name+rate))
		} else {
			lines = append(lines, itemStyle.Render("  "+p.Name+helpStyle.Render(rate)))
		}
	}
	return window(lines, a.selected, height)
}

func (a *App) renderTasks(height int) string {
	if a.loading {
		return "\n  Loading tasks...\n"
	}
	if len(a.tasks) == 0 {
		return "\n  No tasks in this project. Press a to add one.\n"
	}

	lines := make([]string, 0, len(a.tasks))
	for i := range a.tasks {
		t := &a.tasks[i]
		marker := "○"
		if t.IsRunning {
			marker = "●"
		}
		if a.pending[t.ID] {
			marker = "…"
		}
		label := a.taskLabel(t)

		if i == a.selected {
			lines = append(lines, selectedStyle.Render(fmt.Sprintf("▶ %s %-8s %s", marker, label, t.Title)))
			continue
		}
		if t.IsRunning {
			marker = runningStyle.Render(marker)
			label = runningStyle.Render(fmt.Sprintf("%-8s", label))
		} else {
			label = fmt.Sprintf("%-8s", label)
		}
		lines = append(lines, itemStyle.Render(fmt.Sprintf("  %s %s %s  %s", marker, label, t.Title, formatStatus(t.Status))))
	}
	return window(lines, a.selected, height)
}

// window keeps the selected line visible in at most height lines.
func window(lines []string, selected, height int) string {
	if len(lines) > height {
		start := selected - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}
	return strings.Join(lines, "\n")
}
