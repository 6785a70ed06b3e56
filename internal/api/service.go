// Package api provides the HTTP API and service layer for Tempo.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fentz26/tempo/internal/audit"
	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/report"
	"github.com/fentz26/tempo/internal/store"
	"github.com/fentz26/tempo/internal/timer"
)

// Repository is the persistence port the service runs on.
//
//go:generate mockgen -source=service.go -destination=mock_repository_test.go -package=api
type Repository interface {
	Ping(ctx context.Context) error

	CreateClient(ctx context.Context, name, email, company, notes string) (*models.Client, error)
	GetClient(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	DeleteClient(ctx context.Context, id string) error

	CreateProject(ctx context.Context, in store.NewProject) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, clientID string, includeArchived bool) ([]models.Project, error)
	ArchiveProject(ctx context.Context, id string, archived bool) error
	DeleteProject(ctx context.Context, id string) error

	CreateTask(ctx context.Context, in store.NewTask) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	ListTasksByScope(ctx context.Context, projectID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	StartTimer(ctx context.Context, taskID string, scope store.Scope, now time.Time) (*store.StartOutcome, error)
	StopTimer(ctx context.Context, taskID string, now time.Time, source models.SessionSource) (*store.StopOutcome, error)
	StopSession(ctx context.Context, taskID string, resumedAt, now time.Time, source models.SessionSource) (*store.StopOutcome, error)
	CompleteTask(ctx context.Context, taskID string, patch models.TaskPatch, now time.Time) (*store.StopOutcome, error)
	ActiveTask(ctx context.Context, scopeKey string) (*models.Task, error)
	RunningTasks(ctx context.Context) ([]models.Task, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.TimeSession, error)

	CreateProposal(ctx context.Context, in store.NewProposal) (*models.Proposal, error)
	GetProposal(ctx context.Context, id string) (*models.Proposal, error)
	ListProposals(ctx context.Context, clientID string, status models.ProposalStatus) ([]models.Proposal, error)
	AddProposalItem(ctx context.Context, id string, item models.ProposalItem) (*models.Proposal, error)
	UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus) (*models.Proposal, error)
	DeleteProposal(ctx context.Context, id string) error

	Dashboard(ctx context.Context, now time.Time) (*models.Dashboard, error)
}

var _ Repository = (*store.Store)(nil)

// ScopeMode selects the boundary of the single-running-timer rule.
type ScopeMode string

const (
	ScopeProject ScopeMode = "project"
	ScopeAccount ScopeMode = "account"
)

const accountScopeKey = "account"

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Clock    timer.Clock
	Scope    ScopeMode
	Recorder *audit.Recorder
	Logger   *slog.Logger
}

// Service provides the Tempo business logic.
type Service struct {
	repo  Repository
	clock timer.Clock
	scope ScopeMode
	rec   *audit.Recorder
	log   *slog.Logger
}

// NewService creates a new service over repo.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:  repo,
		clock: opts.Clock,
		scope: opts.Scope,
		rec:   opts.Recorder,
		log:   opts.Logger,
	}
	if s.clock == nil {
		s.clock = timer.SystemClock{}
	}
	if s.scope == "" {
		s.scope = ScopeProject
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// Ping checks the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// TimerResult is the committed outcome of a start or stop. Callers update
// their view of the task from it and only when it is returned without error.
type TimerResult struct {
	Task           *models.Task         `json:"task"`
	Stopped        []models.Task        `json:"stopped,omitempty"`
	Session        *models.TimeSession  `json:"session,omitempty"`
	Banked         []models.TimeSession `json:"banked,omitempty"`
	Elapsed        int64                `json:"elapsed_seconds"`
	AlreadyRunning bool                 `json:"already_running,omitempty"`
}

// TaskView is a task with its live elapsed seconds at read time.
type TaskView struct {
	models.Task
	Elapsed int64 `json:"elapsed_seconds"`
}

// ElapsedView reports the Accumulator output for one task.
type ElapsedView struct {
	TaskID      string    `json:"task_id"`
	Running     bool      `json:"running"`
	Accumulated int64     `json:"accumulated_seconds"`
	Elapsed     int64     `json:"elapsed_seconds"`
	Label       string    `json:"label"`
	At          time.Time `json:"at"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *Service) view(t *models.Task, now time.Time) *TaskView {
	return &TaskView{Task: *t, Elapsed: timer.Elapsed(t, now)}
}

func (s *Service) views(tasks []models.Task) []TaskView {
	now := s.clock.Now()
	out := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, *s.view(&tasks[i], now))
	}
	return out
}

// record writes a decision record. Audit failures are logged, never returned.
func (s *Service) record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) {
	if s.rec == nil {
		return
	}
	if _, err := s.rec.Record(ctx, action, inputs, outcome, taskID, details); err != nil {
		s.log.Warn("audit record failed", "action", action, "task_id", taskID, "error", err)
	}
}

// --- Scope ---

// ScopeFor returns the scope a task's timer runs in.
func (s *Service) ScopeFor(task *models.Task) store.Scope {
	if s.scope == ScopeAccount {
		return store.Scope{Key: accountScopeKey}
	}
	return store.Scope{Key: task.ProjectID, ProjectID: task.ProjectID}
}

// ScopeKey returns the active-pointer key for a project.
func (s *Service) ScopeKey(projectID string) string {
	if s.scope == ScopeAccount {
		return accountScopeKey
	}
	return projectID
}

// --- Timer Operations ---

// StartTask starts the timer of a task, stopping whichever task was running
// in the same scope. Starting a running task returns its current state.
func (s *Service) StartTask(ctx context.Context, id string) (*TimerResult, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusDone {
		return nil, fmt.Errorf("%w: task is done", ErrInvalidStatus)
	}
	if project, err := s.repo.GetProject(ctx, task.ProjectID); err == nil && project.Archived {
		return nil, ErrProjectArchived
	}

	now := s.clock.Now()
	inputs := map[string]interface{}{"task_id": id, "at": now}
	out, err := s.repo.StartTimer(ctx, id, s.ScopeFor(task), now)
	if err != nil {
		s.log.Error("start timer failed", "task_id", id, "error", err)
		s.record(ctx, "task.start", inputs, audit.OutcomeFailure, id, err.Error())
		return nil, err
	}

	if !out.AlreadyRunning {
		details := ""
		if len(out.Stopped) > 0 {
			ids := make([]string, 0, len(out.Stopped))
			for _, t := range out.Stopped {
				ids = append(ids, t.ID)
			}
			details = "stopped " + strings.Join(ids, ",")
		}
		s.record(ctx, "task.start", inputs, audit.OutcomeSuccess, id, details)
		s.log.Info("timer started", "task_id", id, "stopped", len(out.Stopped))
	}

	return &TimerResult{
		Task:           out.Task,
		Stopped:        out.Stopped,
		Banked:         out.Sessions,
		Elapsed:        timer.Elapsed(out.Task, now),
		AlreadyRunning: out.AlreadyRunning,
	}, nil
}

// StopTask stops the timer of a running task and banks the session.
func (s *Service) StopTask(ctx context.Context, id string) (*TimerResult, error) {
	return s.stop(ctx, id, nil, s.clock.Now(), models.SourceManual)
}

// stop banks the running session of id at at. A non-nil resumedAt restricts
// the stop to the session that began then.
func (s *Service) stop(ctx context.Context, id string, resumedAt *time.Time, at time.Time, source models.SessionSource) (*TimerResult, error) {
	action := "task.stop"
	if source == models.SourceAutoStop {
		action = "task.autostop"
	}
	inputs := map[string]interface{}{"task_id": id, "at": at, "source": source}

	var out *store.StopOutcome
	var err error
	if resumedAt != nil {
		out, err = s.repo.StopSession(ctx, id, *resumedAt, at, source)
	} else {
		out, err = s.repo.StopTimer(ctx, id, at, source)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotRunning) || errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		s.log.Error("stop timer failed", "task_id", id, "source", source, "error", err)
		s.record(ctx, action, inputs, audit.OutcomeFailure, id, err.Error())
		return nil, err
	}

	var banked int64
	if out.Session != nil {
		banked = out.Session.Seconds
	}
	s.record(ctx, action, inputs, audit.OutcomeSuccess, id, fmt.Sprintf("banked %ds", banked))
	s.log.Info("timer stopped", "task_id", id, "source", source, "banked_seconds", banked)

	return &TimerResult{
		Task:    out.Task,
		Session: out.Session,
		Elapsed: timer.Elapsed(out.Task, at),
	}, nil
}

// AutoStop stops every timer whose current session has run for at least
// maxSession. The banked session is capped at maxSession.
func (s *Service) AutoStop(ctx context.Context, maxSession time.Duration) ([]TimerResult, error) {
	if maxSession <= 0 {
		return nil, nil
	}
	running, err := s.repo.RunningTasks(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var results []TimerResult
	for _, t := range running {
		if t.LastResumeAt == nil || now.Sub(*t.LastResumeAt) < maxSession {
			continue
		}
		res, err := s.stop(ctx, t.ID, t.LastResumeAt, t.LastResumeAt.Add(maxSession), models.SourceAutoStop)
		if errors.Is(err, store.ErrNotRunning) || errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// Elapsed evaluates the accumulator for a task now.
func (s *Service) Elapsed(ctx context.Context, id string) (*ElapsedView, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	elapsed := timer.Elapsed(task, now)
	return &ElapsedView{
		TaskID:      task.ID,
		Running:     task.IsRunning,
		Accumulated: task.AccumulatedSeconds,
		Elapsed:     elapsed,
		Label:       timer.FormatSeconds(elapsed),
		At:          now,
	}, nil
}

// ActiveTask returns the running task of a project's scope, or nil.
func (s *Service) ActiveTask(ctx context.Context, projectID string) (*TaskView, error) {
	task, err := s.repo.ActiveTask(ctx, s.ScopeKey(projectID))
	if err != nil || task == nil {
		return nil, err
	}
	return s.view(task, s.clock.Now()), nil
}

// Sessions returns the banked sessions of a task.
func (s *Service) Sessions(ctx context.Context, taskID string) ([]models.TimeSession, error) {
	if _, err := s.repo.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListSessions(ctx, models.SessionFilter{TaskID: taskID})
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.TimeSession{}
	}
	return sessions, nil
}

// --- Task Operations ---

// TaskInput carries the fields accepted on task creation.
type TaskInput struct {
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// CreateTask creates a task in an existing, active project.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (*TaskView, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title is required")
	}
	if in.ProjectID == "" {
		return nil, invalid("project_id is required")
	}
	if in.Priority == 0 {
		in.Priority = 2
	}
	if in.Priority < 1 || in.Priority > 3 {
		return nil, invalid("priority must be between 1 and 3")
	}
	project, err := s.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Archived {
		return nil, ErrProjectArchived
	}

	task, err := s.repo.CreateTask(ctx, store.NewTask{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueAt:       in.DueAt,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "task.create", in, audit.OutcomeSuccess, task.ID, "")
	return s.view(task, s.clock.Now()), nil
}

// GetTask retrieves a task with its live elapsed time.
func (s *Service) GetTask(ctx context.Context, id string) (*TaskView, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(task, s.clock.Now()), nil
}

// ListTasks returns filtered tasks with live elapsed times.
func (s *Service) ListTasks(ctx context.Context, filter models.TaskFilter) ([]TaskView, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown status %q", filter.Status)
	}
	tasks, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.views(tasks), nil
}

// ListTasksByScope returns a project's tasks with live elapsed times.
func (s *Service) ListTasksByScope(ctx context.Context, projectID string) ([]TaskView, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasksByScope(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.views(tasks), nil
}

// UpdateTask applies a partial update. Timer fields are rejected; marking a
// running task done stops its timer first.
func (s *Service) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*TaskView, error) {
	if patch.IsRunning != nil || patch.AccumulatedSeconds != nil || patch.LastResumeAt != nil ||
		patch.LastStopAt != nil || patch.ClearLastResumeAt {
		return nil, ErrTimerField
	}
	if patch.Empty() {
		return nil, invalid("nothing to update")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, invalid("unknown status %q", *patch.Status)
	}
	if patch.Priority != nil && (*patch.Priority < 1 || *patch.Priority > 3) {
		return nil, invalid("priority must be between 1 and 3")
	}

	if patch.Status != nil && *patch.Status == models.TaskStatusDone {
		return s.complete(ctx, id, patch)
	}

	task, err := s.repo.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "task.update", patch, audit.OutcomeSuccess, id, "")
	return s.view(task, s.clock.Now()), nil
}

// complete marks a task done and banks its running session in one write.
func (s *Service) complete(ctx context.Context, id string, patch models.TaskPatch) (*TaskView, error) {
	now := s.clock.Now()
	out, err := s.repo.CompleteTask(ctx, id, patch, now)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error("complete task failed", "task_id", id, "error", err)
			s.record(ctx, "task.update", patch, audit.OutcomeFailure, id, err.Error())
		}
		return nil, err
	}

	details := ""
	if out.Session != nil {
		details = fmt.Sprintf("banked %ds", out.Session.Seconds)
		s.log.Info("timer stopped", "task_id", id, "source", models.SourceDone, "banked_seconds", out.Session.Seconds)
	}
	s.record(ctx, "task.update", patch, audit.OutcomeSuccess, id, details)
	return s.view(out.Task, now), nil
}

// DeleteTask removes a task, its sessions and any timer pointer to it.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "task.delete", map[string]string{"task_id": id}, audit.OutcomeSuccess, id, "")
	return nil
}

// --- Client Operations ---

// ClientInput carries the fields accepted on client creation.
type ClientInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Notes   string `json:"notes"`
}

// CreateClient creates a client.
func (s *Service) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("name is required")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return nil, invalid("email %q is not valid", in.Email)
	}
	c, err := s.repo.CreateClient(ctx, in.Name, in.Email, in.Company, in.Notes)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "client.create", in, audit.OutcomeSuccess, "", c.ID)
	return c, nil
}

// GetClient retrieves a client.
func (s *Service) GetClient(ctx context.Context, id string) (*models.Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients returns every client.
func (s *Service) ListClients(ctx context.Context) ([]models.Client, error) {
	clients, err := s.repo.ListClients(ctx)
	if clients == nil && err == nil {
		clients = []models.Client{}
	}
	return clients, err
}

// DeleteClient removes a client without projects or proposals.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "client.delete", map[string]string{"client_id": id}, audit.OutcomeSuccess, "", id)
	return nil
}

// --- Project Operations ---

// ProjectInput carries the fields accepted on project creation.
type ProjectInput struct {
	ClientID        string `json:"client_id"`
	Name            string `json:"name"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
	Currency        string `json:"currency"`
}

// CreateProject creates a project, optionally owned by an existing client.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("name is required")
	}
	if in.HourlyRateCents < 0 {
		return nil, invalid("hourly rate must not be negative")
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency != "" && len(in.Currency) != 3 {
		return nil, invalid("currency must be a 3-letter code")
	}
	if in.ClientID != "" {
		if _, err := s.repo.GetClient(ctx, in.ClientID); err != nil {
			return nil, err
		}
	}
	p, err := s.repo.CreateProject(ctx, store.NewProject{
		ClientID:        in.ClientID,
		Name:            in.Name,
		HourlyRateCents: in.HourlyRateCents,
		Currency:        in.Currency,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "project.create", in, audit.OutcomeSuccess, "", p.ID)
	return p, nil
}

// GetProject retrieves a project.
func (s *Service) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.repo.GetProject(ctx, id)
}

// ListProjects returns projects, optionally of one client.
func (s *Service) ListProjects(ctx context.Context, clientID string, includeArchived bool) ([]models.Project, error) {
	projects, err := s.repo.ListProjects(ctx, clientID, includeArchived)
	if projects == nil && err == nil {
		projects = []models.Project{}
	}
	return projects, err
}

// ArchiveProject archives or restores a project. Archiving stops any timer
// running in it.
func (s *Service) ArchiveProject(ctx context.Context, id string, archived bool) (*models.Project, error) {
	if _, err := s.repo.GetProject(ctx, id); err != nil {
		return nil, err
	}
	if archived {
		running := true
		tasks, err := s.repo.ListTasks(ctx, models.TaskFilter{ProjectID: id, Running: &running})
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			if _, err := s.stop(ctx, t.ID, nil, s.clock.Now(), models.SourceManual); err != nil && !errors.Is(err, store.ErrNotRunning) {
				return nil, err
			}
		}
	}
	if err := s.repo.ArchiveProject(ctx, id, archived); err != nil {
		return nil, err
	}
	s.record(ctx, "project.archive", map[string]interface{}{"project_id": id, "archived": archived}, audit.OutcomeSuccess, "", id)
	return s.repo.GetProject(ctx, id)
}

// DeleteProject removes a project and everything tracked under it.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "project.delete", map[string]string{"project_id": id}, audit.OutcomeSuccess, "", id)
	return nil
}

// --- Proposal Operations ---

// ProposalInput carries the fields accepted on proposal creation.
type ProposalInput struct {
	ClientID   string                `json:"client_id"`
	ProjectID  string                `json:"project_id"`
	Title      string                `json:"title"`
	Currency   string                `json:"currency"`
	Items      []models.ProposalItem `json:"items"`
	Notes      string                `json:"notes"`
	ValidUntil *time.Time            `json:"valid_until,omitempty"`
}

var proposalTransitions = map[models.ProposalStatus][]models.ProposalStatus{
	models.ProposalDraft:    {models.ProposalSent, models.ProposalRejected},
	models.ProposalSent:     {models.ProposalAccepted, models.ProposalRejected, models.ProposalDraft},
	models.ProposalRejected: {models.ProposalDraft},
}

func validateItem(item models.ProposalItem) error {
	if strings.TrimSpace(item.Description) == "" {
		return invalid("item description is required")
	}
	if item.Quantity <= 0 {
		return invalid("item quantity must be positive")
	}
	if item.UnitPriceCents < 0 {
		return invalid("item price must not be negative")
	}
	return nil
}

// CreateProposal drafts a proposal for an existing client.
func (s *Service) CreateProposal(ctx context.Context, in ProposalInput) (*models.Proposal, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title is required")
	}
	if in.ClientID == "" {
		return nil, invalid("client_id is required")
	}
	for _, item := range in.Items {
		if err := validateItem(item); err != nil {
			return nil, err
		}
	}
	if _, err := s.repo.GetClient(ctx, in.ClientID); err != nil {
		return nil, err
	}
	if in.ProjectID != "" {
		if _, err := s.repo.GetProject(ctx, in.ProjectID); err != nil {
			return nil, err
		}
	}
	p, err := s.repo.CreateProposal(ctx, store.NewProposal{
		ClientID:   in.ClientID,
		ProjectID:  in.ProjectID,
		Title:      in.Title,
		Currency:   strings.ToUpper(in.Currency),
		Items:      in.Items,
		Notes:      in.Notes,
		ValidUntil: in.ValidUntil,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "proposal.create", in, audit.OutcomeSuccess, "", p.ID)
	return p, nil
}

// GetProposal retrieves a proposal.
func (s *Service) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	return s.repo.GetProposal(ctx, id)
}

// ListProposals returns proposals filtered by client and status.
func (s *Service) ListProposals(ctx context.Context, clientID string, status models.ProposalStatus) ([]models.Proposal, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	proposals, err := s.repo.ListProposals(ctx, clientID, status)
	if proposals == nil && err == nil {
		proposals = []models.Proposal{}
	}
	return proposals, err
}

// AddProposalItem appends a line item to a draft.
func (s *Service) AddProposalItem(ctx context.Context, id string, item models.ProposalItem) (*models.Proposal, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	p, err := s.repo.AddProposalItem(ctx, id, item)
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: only drafts take new items", ErrInvalidStatus)
	}
	return p, err
}

// SetProposalStatus moves a proposal along its lifecycle.
func (s *Service) SetProposalStatus(ctx context.Context, id string, to models.ProposalStatus) (*models.Proposal, error) {
	if !to.Valid() {
		return nil, invalid("unknown status %q", to)
	}
	current, err := s.repo.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	allowed := false
	for _, next := range proposalTransitions[current.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatus, current.Status, to)
	}

	p, err := s.repo.UpdateProposalStatus(ctx, id, current.Status, to)
	inputs := map[string]string{"proposal_id": id, "from": string(current.Status), "to": string(to)}
	if err != nil {
		s.record(ctx, "proposal.status", inputs, audit.OutcomeFailure, "", err.Error())
		return nil, err
	}
	s.record(ctx, "proposal.status", inputs, audit.OutcomeSuccess, "", id)
	return p, nil
}

// DeleteProposal removes a proposal.
func (s *Service) DeleteProposal(ctx context.Context, id string) error {
	return s.repo.DeleteProposal(ctx, id)
}

// ProposalDocument loads a proposal with the name it is addressed to.
func (s *Service) ProposalDocument(ctx context.Context, id string) (*models.Proposal, string, error) {
	p, err := s.repo.GetProposal(ctx, id)
	if err != nil {
		return nil, "", err
	}
	name := p.ClientID
	if c, err := s.repo.GetClient(ctx, p.ClientID); err == nil {
		name = c.Name
		if c.Company != "" {
			name += " (" + c.Company + ")"
		}
	}
	return p, name, nil
}

// --- Reporting ---

// Timesheet builds a timesheet of banked sessions.
func (s *Service) Timesheet(ctx context.Context, q report.Query) (*report.Timesheet, error) {
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return nil, invalid("from must be before to")
	}
	sessions, err := s.repo.ListSessions(ctx, models.SessionFilter{ProjectID: q.ProjectID, From: q.From, To: q.To})
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, models.TaskFilter{ProjectID: q.ProjectID})
	if err != nil {
		return nil, err
	}
	projects, err := s.repo.ListProjects(ctx, "", true)
	if err != nil {
		return nil, err
	}

	taskMap := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		taskMap[t.ID] = t
	}
	projectMap := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		projectMap[p.ID] = p
	}
	return report.Build(q, sessions, taskMap, projectMap, s.clock.Now()), nil
}

// Dashboard summarizes the account now.
func (s *Service) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	return s.repo.Dashboard(ctx, s.clock.Now())
}
