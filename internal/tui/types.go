package tui

import (
	"context"
	"time"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/models"
)

// Backend is what the dashboard needs from the daemon. *Client implements it
// over HTTP.
type Backend interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListTasks(ctx context.Context, projectID string) ([]api.TaskView, error)
	CreateTask(ctx context.Context, projectID, title string) (*api.TaskView, error)
	StartTask(ctx context.Context, id string) (*api.TimerResult, error)
	StopTask(ctx context.Context, id string) (*api.TimerResult, error)
	Sessions(ctx context.Context, taskID string) ([]models.TimeSession, error)
}

type screen int

const (
	screenProjects screen = iota
	screenTasks
	screenDetail
)

type projectsLoadedMsg struct {
	projects []models.Project
}

type tasksLoadedMsg struct {
	projectID string
	tasks     []api.TaskView
}

// timerDoneMsg carries a committed start or stop.
type timerDoneMsg struct {
	started bool
	result  *api.TimerResult
}

type taskCreatedMsg struct {
	task *api.TaskView
}

type sessionsLoadedMsg struct {
	taskID   string
	sessions []models.TimeSession
}

type tickMsg time.Time

type errMsg struct {
	op     string
	taskID string
	err    error
}
