// Package tui provides the interactive terminal dashboard for Tempo.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/timer"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)
)

const requestTimeout = DefaultClientTimeout

// Options configures the dashboard.
type Options struct {
	Clock        timer.Clock
	TickInterval time.Duration
}

// App is the main TUI application model.
//
// tasks holds the last state confirmed by the daemon. Timer toggles change it
// only through a returned TimerResult; labels are recomputed from it on every
// tick and never written back.
type App struct {
	backend  Backend
	clock    timer.Clock
	interval time.Duration

	screen   screen
	projects []models.Project
	project  *models.Project
	tasks    []models.Task
	sessions []models.TimeSession
	selected int
	pending  map[string]bool

	input  textinput.Model
	adding bool

	now     time.Time
	message string
	isError bool
	loading bool
	width   int
	height  int
}

// New creates a new TUI application.
func New(backend Backend, opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = timer.SystemClock{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = timer.DefaultTickInterval
	}

	ti := textinput.New()
	ti.Placeholder = "New task title"
	ti.CharLimit = 200
	ti.Width = 60

	return &App{
		backend:  backend,
		clock:    opts.Clock,
		interval: opts.TickInterval,
		screen:   screenProjects,
		pending:  make(map[string]bool),
		input:    ti,
		now:      opts.Clock.Now(),
		loading:  true,
		width:    80,
		height:   24,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadProjects(), a.tick())
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// --- Commands ---

func (a *App) loadProjects() tea.Cmd {
	backend := a.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		projects, err := backend.ListProjects(ctx)
		if err != nil {
			return errMsg{op: "load projects", err: err}
		}
		return projectsLoadedMsg{projects: projects}
	}
}

func (a *App) loadTasks(projectID string) tea.Cmd {
	backend := a.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tasks, err := backend.ListTasks(ctx, projectID)
		if err != nil {
			return errMsg{op: "load tasks", err: err}
		}
		return tasksLoadedMsg{projectID: projectID, tasks: tasks}
	}
}

func (a *App) loadSessions(taskID string) tea.Cmd {
	backend := a.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		sessions, err := backend.Sessions(ctx, taskID)
		if err != nil {
			return errMsg{op: "load sessions", taskID: taskID, err: err}
		}
		return sessionsLoadedMsg{taskID: taskID, sessions: sessions}
	}
}

// toggle starts or stops the selected task. A second toggle on the same task
// is ignored until the first one answers.
func (a *App) toggle() tea.Cmd {
	task := a.selectedTask()
	if task == nil || a.pending[task.ID] {
		return nil
	}
	a.pending[task.ID] = true

	backend := a.backend
	id, running := task.ID, task.IsRunning
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if running {
			res, err := backend.StopTask(ctx, id)
			if err != nil {
				return errMsg{op: "stop", taskID: id, err: err}
			}
			return timerDoneMsg{started: false, result: res}
		}
		res, err := backend.StartTask(ctx, id)
		if err != nil {
			return errMsg{op: "start", taskID: id, err: err}
		}
		return timerDoneMsg{started: true, result: res}
	}
}

func (a *App) createTask(title string) tea.Cmd {
	if a.project == nil {
		return nil
	}
	backend := a.backend
	projectID := a.project.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		task, err := backend.CreateTask(ctx, projectID, title)
		if err != nil {
			return errMsg{op: "add task", err: err}
		}
		return taskCreatedMsg{task: task}
	}
}

// --- Update ---

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6

	case tickMsg:
		a.now = a.clock.Now()
		return a, a.tick()

	case projectsLoadedMsg:
		a.loading = false
		a.projects = msg.projects
		if a.screen == screenProjects {
			a.clampSelection(len(a.projects))
		}

	case tasksLoadedMsg:
		if a.project == nil || a.project.ID != msg.projectID {
			return a, nil
		}
		a.loading = false
		a.tasks = make([]models.Task, len(msg.tasks))
		for i, v := range msg.tasks {
			a.tasks[i] = v.Task
		}
		a.now = a.clock.Now()
		if a.screen == screenTasks {
			a.clampSelection(len(a.tasks))
		}

	case timerDoneMsg:
		a.applyResult(msg)

	case taskCreatedMsg:
		if msg.task != nil && a.project != nil && msg.task.ProjectID == a.project.ID {
			a.tasks = append(a.tasks, msg.task.Task)
			a.selected = len(a.tasks) - 1
			a.setMessage(fmt.Sprintf("Added %q", msg.task.Title), false)
		}

	case sessionsLoadedMsg:
		if task := a.selectedTask(); task != nil && task.ID == msg.taskID {
			a.sessions = msg.sessions
		}

	case errMsg:
		if msg.taskID != "" {
			delete(a.pending, msg.taskID)
		}
		a.loading = false
		a.setMessage(fmt.Sprintf("%s failed: %v", msg.op, msg.err), true)
	}

	if a.adding {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.adding {
		switch msg.String() {
		case "esc":
			a.stopAdding()
			return a, nil
		case "enter":
			title := strings.TrimSpace(a.input.Value())
			a.stopAdding()
			if title == "" {
				return a, nil
			}
			return a, a.createTask(title)
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit

	case "up", "k":
		if a.selected > 0 {
			a.selected--
		}

	case "down", "j":
		if a.selected < a.listLen()-1 {
			a.selected++
		}

	case "enter":
		switch a.screen {
		case screenProjects:
			return a, a.openProject()
		case screenTasks:
			return a, a.toggle()
		}

	case "a":
		if a.screen == screenTasks && a.project != nil {
			a.adding = true
			a.input.SetValue("")
			a.input.Focus()
			return a, textinput.Blink
		}

	case "s":
		if task := a.selectedTask(); task != nil && a.screen == screenTasks {
			a.screen = screenDetail
			a.sessions = nil
			return a, a.loadSessions(task.ID)
		}

	case "r":
		a.message = ""
		switch a.screen {
		case screenProjects:
			a.loading = true
			return a, a.loadProjects()
		case screenTasks:
			a.loading = true
			return a, a.loadTasks(a.project.ID)
		case screenDetail:
			if task := a.selectedTask(); task != nil {
				return a, a.loadSessions(task.ID)
			}
		}

	case "esc":
		switch a.screen {
		case screenDetail:
			a.screen = screenTasks
			a.sessions = nil
		case screenTasks:
			a.screen = screenProjects
			a.project = nil
			a.tasks = nil
			a.selected = 0
			a.loading = true
			return a, a.loadProjects()
		}
	}
	return a, nil
}

func (a *App) openProject() tea.Cmd {
	if a.selected >= len(a.projects) {
		return nil
	}
	p := a.projects[a.selected]
	a.project = &p
	a.screen = screenTasks
	a.tasks = nil
	a.selected = 0
	a.loading = true
	a.message = ""
	return a.loadTasks(p.ID)
}

func (a *App) stopAdding() {
	a.adding = false
	a.input.Blur()
	a.input.SetValue("")
}

// applyResult folds a committed timer result into the visible tasks.
func (a *App) applyResult(msg timerDoneMsg) {
	res := msg.result
	if res == nil || res.Task == nil {
		return
	}
	delete(a.pending, res.Task.ID)
	a.replace(*res.Task)
	for _, t := range res.Stopped {
		a.replace(t)
	}
	a.now = a.clock.Now()

	switch {
	case !msg.started:
		a.setMessage(fmt.Sprintf("Stopped %q at %s", res.Task.Title, timer.FormatSeconds(res.Elapsed)), false)
	case len(res.Stopped) > 0:
		a.setMessage(fmt.Sprintf("Started %q, stopped %q", res.Task.Title, res.Stopped[0].Title), false)
	default:
		a.setMessage(fmt.Sprintf("Started %q", res.Task.Title), false)
	}
}

func (a *App) replace(t models.Task) {
	for i := range a.tasks {
		if a.tasks[i].ID == t.ID {
			a.tasks[i] = t
			return
		}
	}
}

func (a *App) setMessage(msg string, isError bool) {
	a.message = msg
	a.isError = isError
}

func (a *App) selectedTask() *models.Task {
	if a.screen == screenProjects || a.selected >= len(a.tasks) {
		return nil
	}
	return &a.tasks[a.selected]
}

func (a *App) listLen() int {
	if a.screen == screenProjects {
		return len(a.projects)
	}
	return len(a.tasks)
}

func (a *App) clampSelection(n int) {
	if a.selected >= n {
		a.selected = max(0, n-1)
	}
}

// --- View ---

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("TEMPO")
	if a.project != nil {
		header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(a.project.Name)
	}
	if n := a.runningCount(); n > 0 {
		header += "  " + runningStyle.Render(fmt.Sprintf("● %d running", n))
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 10)) + "\n")

	contentHeight := a.height - 7
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch a.screen {
	case screenProjects:
		b.WriteString(a.renderProjects(contentHeight))
	case screenTasks:
		b.WriteString(a.renderTasks(contentHeight))
	case screenDetail:
		b.WriteString(a.renderDetail(contentHeight))
	}

	// Message bar
	b.WriteString("\n")
	if a.message != "" {
		style := lipgloss.NewStyle().Foreground(successColor)
		if a.isError {
			style = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(style.Render(a.message))
	}
	b.WriteString("\n")

	if a.adding {
		b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n")
	}

	var status string
	switch {
	case a.adding:
		status = " Enter:add | Esc:cancel"
	case a.screen == screenProjects:
		status = fmt.Sprintf(" Projects: %d | ↑↓:nav | Enter:open | r:refresh | q:quit", len(a.projects))
	case a.screen == screenTasks:
		status = fmt.Sprintf(" Tasks: %d | Enter:start/stop | a:add | s:sessions | r:refresh | Esc:back | q:quit", len(a.tasks))
	default:
		status = " r:refresh | Esc:back | q:quit"
	}
	b.WriteString(statusBarStyle.Width(max(a.width, 10)).Render(status))

	return b.String()
}

func (a *App) runningCount() int {
	n := 0
	for _, t := range a.tasks {
		if t.IsRunning {
			n++
		}
	}
	return n
}
