package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/tempo/internal/models"
	"github.com/jmoiron/sqlx"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if s.Dialect() != DialectSQLite {
		t.Errorf("Expected sqlite dialect, got %s", s.Dialect())
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestIsPostgresDSN(t *testing.T) {
	cases := map[string]bool{
		"postgres://u:p@localhost/tempo": true,
		"postgresql://localhost/tempo":   true,
		"/home/me/.tempo/tempo.db":       false,
		"file:tempo.db":                  false,
		"":                               false,
	}
	for dsn, want := range cases {
		if got := IsPostgresDSN(dsn); got != want {
			t.Errorf("IsPostgresDSN(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestSchemaForDialects(t *testing.T) {
	lite := schemaFor(DialectSQLite)
	pg := schemaFor(DialectPostgres)
	for _, placeholder := range []string{"{{ts}}", "{{int}}", "{{false}}"} {
		if strings.Contains(lite, placeholder) || strings.Contains(pg, placeholder) {
			t.Errorf("Placeholder %s left in schema", placeholder)
		}
	}
	if !strings.Contains(pg, "TIMESTAMPTZ") || strings.Contains(lite, "TIMESTAMPTZ") {
		t.Error("Timestamp type not expanded per dialect")
	}
}

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	// Create
	task, err := s.CreateTask(ctx, NewTask{ProjectID: "p1", Title: "Write copy", Priority: 2})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID == "" {
		t.Error("Task ID should not be empty")
	}
	if task.IsRunning || task.AccumulatedSeconds != 0 || task.LastResumeAt != nil {
		t.Errorf("New task should have a zeroed stopped timer: %+v", task)
	}

	// Get
	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "Write copy" || got.Status != models.TaskStatusTodo {
		t.Errorf("Unexpected task: %+v", got)
	}

	// List by scope
	if _, err := s.CreateTask(ctx, NewTask{ProjectID: "p2", Title: "Other"}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	tasks, err := s.ListTasksByScope(ctx, "p1")
	if err != nil {
		t.Fatalf("ListTasksByScope failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("Expected 1 task in p1, got %d", len(tasks))
	}

	// Partial update leaves other fields alone
	title := "Write landing copy"
	status := models.TaskStatusInProgress
	updated, err := s.UpdateTask(ctx, task.ID, models.TaskPatch{Title: &title, Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Title != title || updated.Status != status || updated.ProjectID != "p1" {
		t.Errorf("Unexpected update result: %+v", updated)
	}

	tasks, err = s.ListTasks(ctx, models.TaskFilter{Status: models.TaskStatusInProgress})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("Expected 1 in-progress task, got %d", len(tasks))
	}

	// Delete
	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	title := "x"
	_, err := s.UpdateTask(context.Background(), "missing", models.TaskPatch{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "update" || opErr.ID != "missing" {
		t.Errorf("Expected OpError with op and id, got %v", err)
	}
}

func TestStartStopTimer(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Design")
	scope := Scope{Key: "p1", ProjectID: "p1"}

	started, err := s.StartTimer(ctx, task.ID, scope, t0)
	if err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}
	if !started.Task.IsRunning || started.Task.LastResumeAt == nil || started.AlreadyRunning {
		t.Fatalf("Unexpected start outcome: %+v", started)
	}

	active, err := s.ActiveTask(ctx, "p1")
	if err != nil {
		t.Fatalf("ActiveTask failed: %v", err)
	}
	if active == nil || active.ID != task.ID {
		t.Fatalf("Expected %s to be active, got %+v", task.ID, active)
	}

	stopped, err := s.StopTimer(ctx, task.ID, t0.Add(125*time.Second), models.SourceManual)
	if err != nil {
		t.Fatalf("StopTimer failed: %v", err)
	}
	if stopped.Task.IsRunning || stopped.Task.AccumulatedSeconds != 125 {
		t.Errorf("Expected 125 banked seconds, got %+v", stopped.Task)
	}
	if stopped.Session == nil || stopped.Session.Seconds != 125 || stopped.Session.Source != models.SourceManual {
		t.Errorf("Unexpected session: %+v", stopped.Session)
	}

	stored, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if stored.IsRunning || stored.LastResumeAt != nil || stored.LastStopAt == nil || stored.AccumulatedSeconds != 125 {
		t.Errorf("Stored state not persisted: %+v", stored)
	}

	active, err = s.ActiveTask(ctx, "p1")
	if err != nil {
		t.Fatalf("ActiveTask failed: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no active task after stop, got %s", active.ID)
	}
}

func TestStartTimer_Idempotent(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Design")
	scope := Scope{Key: "p1", ProjectID: "p1"}
	if _, err := s.StartTimer(ctx, task.ID, scope, t0); err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}

	again, err := s.StartTimer(ctx, task.ID, scope, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("Second StartTimer failed: %v", err)
	}
	if !again.AlreadyRunning {
		t.Error("Expected AlreadyRunning on second start")
	}
	if !again.Task.LastResumeAt.Equal(t0) {
		t.Errorf("Resume timestamp moved: %v", again.Task.LastResumeAt)
	}
}

func TestStartTimer_SwitchesWithinScope(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	a := mustTask(t, s, "p1", "A")
	b := mustTask(t, s, "p1", "B")
	other := mustTask(t, s, "p2", "Other project")
	scope := Scope{Key: "p1", ProjectID: "p1"}

	if _, err := s.StartTimer(ctx, a.ID, scope, t0); err != nil {
		t.Fatalf("StartTimer A failed: %v", err)
	}
	if _, err := s.StartTimer(ctx, other.ID, Scope{Key: "p2", ProjectID: "p2"}, t0); err != nil {
		t.Fatalf("StartTimer other failed: %v", err)
	}

	out, err := s.StartTimer(ctx, b.ID, scope, t0.Add(30*time.Second))
	if err != nil {
		t.Fatalf("StartTimer B failed: %v", err)
	}
	if len(out.Stopped) != 1 || out.Stopped[0].ID != a.ID {
		t.Fatalf("Expected A to be stopped, got %+v", out.Stopped)
	}
	if len(out.Sessions) != 1 || out.Sessions[0].Source != models.SourceSwitch || out.Sessions[0].Seconds != 30 {
		t.Errorf("Unexpected switch session: %+v", out.Sessions)
	}

	running, err := s.RunningTasks(ctx)
	if err != nil {
		t.Fatalf("RunningTasks failed: %v", err)
	}
	ids := map[string]bool{}
	for _, r := range running {
		ids[r.ID] = true
	}
	if len(ids) != 2 || !ids[b.ID] || !ids[other.ID] {
		t.Errorf("Expected B and the other project's task running, got %v", ids)
	}

	storedA, _ := s.GetTask(ctx, a.ID)
	if storedA.IsRunning || storedA.AccumulatedSeconds != 30 {
		t.Errorf("A not banked: %+v", storedA)
	}
}

func TestStartTimer_AccountScope(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	a := mustTask(t, s, "p1", "A")
	b := mustTask(t, s, "p2", "B")
	scope := Scope{Key: "account"}

	if _, err := s.StartTimer(ctx, a.ID, scope, t0); err != nil {
		t.Fatalf("StartTimer A failed: %v", err)
	}
	out, err := s.StartTimer(ctx, b.ID, scope, t0.Add(10*time.Second))
	if err != nil {
		t.Fatalf("StartTimer B failed: %v", err)
	}
	if len(out.Stopped) != 1 || out.Stopped[0].ID != a.ID {
		t.Errorf("Expected A stopped across projects, got %+v", out.Stopped)
	}
	active, _ := s.ActiveTask(ctx, "account")
	if active == nil || active.ID != b.ID {
		t.Errorf("Expected B active in account scope, got %+v", active)
	}
}

func TestStartTimer_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.StartTimer(context.Background(), "missing", Scope{Key: "p1", ProjectID: "p1"}, t0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStopTimer_NotRunning(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	task := mustTask(t, s, "p1", "Idle")
	_, err := s.StopTimer(context.Background(), task.ID, t0, models.SourceManual)
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
}

func TestStopTimer_MissingResumeBanksZero(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Corrupt")
	running := true
	acc := int64(40)
	if _, err := s.UpdateTask(ctx, task.ID, models.TaskPatch{IsRunning: &running, AccumulatedSeconds: &acc}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	out, err := s.StopTimer(ctx, task.ID, t0, models.SourceManual)
	if err != nil {
		t.Fatalf("StopTimer failed: %v", err)
	}
	if out.Session != nil {
		t.Errorf("Expected no session, got %+v", out.Session)
	}
	if out.Task.IsRunning || out.Task.AccumulatedSeconds != 40 {
		t.Errorf("Expected flag cleared and 40 kept, got %+v", out.Task)
	}
}

func TestAdditiveSessions(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Twice")
	scope := Scope{Key: "p1", ProjectID: "p1"}

	mustStart(t, s, task.ID, scope, t0)
	mustStop(t, s, task.ID, t0.Add(10*time.Second))
	mustStart(t, s, task.ID, scope, t0.Add(time.Minute))
	out := mustStop(t, s, task.ID, t0.Add(time.Minute+20*time.Second))

	if out.Task.AccumulatedSeconds != 30 {
		t.Errorf("Expected 30 accumulated, got %d", out.Task.AccumulatedSeconds)
	}

	sessions, err := s.ListSessions(ctx, models.SessionFilter{TaskID: task.ID})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if !sessions[0].StoppedAt.Before(sessions[1].StartedAt) {
		t.Error("Sessions overlap or are out of order")
	}

	// Time bounds apply to the start time.
	sessions, err = s.ListSessions(ctx, models.SessionFilter{From: t0.Add(30 * time.Second)})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Seconds != 20 {
		t.Errorf("Expected only the second session, got %+v", sessions)
	}
}

func TestSwapPointer_Conflict(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.db.Exec(s.q(`INSERT INTO active_timers (scope_id, task_id, started_at) VALUES (?, ?, ?)`),
		"p1", "winner", t0); err != nil {
		t.Fatalf("seed pointer: %v", err)
	}

	// A transaction that read an empty scope must not overwrite the winner.
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.swapPointer(ctx, tx, "p1", "", false, "loser", t0)
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for stale empty read, got %v", err)
	}

	// Nor may one that expected a different previous holder.
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.swapPointer(ctx, tx, "p1", "someone-else", true, "loser", t0)
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict for stale holder, got %v", err)
	}

	id, found, err := s.activePointer(ctx, s.db, "p1")
	if err != nil || !found || id != "winner" {
		t.Errorf("Pointer changed: id=%q found=%v err=%v", id, found, err)
	}

	// The expected holder swaps cleanly.
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.swapPointer(ctx, tx, "p1", "winner", true, "next", t0)
	})
	if err != nil {
		t.Errorf("Expected clean swap, got %v", err)
	}
	id, _, _ = s.activePointer(ctx, s.db, "p1")
	if id != "next" {
		t.Errorf("Expected pointer to move to next, got %q", id)
	}
}

func TestStartTimer_ConcurrentStartsLeaveOneRunning(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	scope := Scope{Key: "p1", ProjectID: "p1"}
	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, mustTask(t, s, "p1", fmt.Sprintf("task-%d", i)).ID)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := s.StartTimer(ctx, id, scope, t0.Add(time.Duration(i)*time.Second))
			if err != nil && !errors.Is(err, ErrConflict) {
				t.Errorf("StartTimer %s: %v", id, err)
			}
		}(i, id)
	}
	wg.Wait()

	running, err := s.ListTasks(ctx, models.TaskFilter{ProjectID: "p1", Running: boolPtr(true)})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(running) != 1 {
		t.Fatalf("Expected exactly one running task, got %d", len(running))
	}
	active, err := s.ActiveTask(ctx, "p1")
	if err != nil {
		t.Fatalf("ActiveTask failed: %v", err)
	}
	if active == nil || active.ID != running[0].ID {
		t.Errorf("Pointer %+v disagrees with running task %s", active, running[0].ID)
	}
}

func TestDeleteTask_ClearsPointer(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Doomed")
	mustStart(t, s, task.ID, Scope{Key: "p1", ProjectID: "p1"}, t0)

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	active, err := s.ActiveTask(ctx, "p1")
	if err != nil {
		t.Fatalf("ActiveTask failed: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no active task, got %+v", active)
	}

	// The freed scope accepts a new timer.
	next := mustTask(t, s, "p1", "Next")
	mustStart(t, s, next.ID, Scope{Key: "p1", ProjectID: "p1"}, t0)
}

func TestClientsAndProjects(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	c, err := s.CreateClient(ctx, "Acme", "ops@acme.test", "Acme Inc", "")
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if _, err := s.GetClient(ctx, c.ID); err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}

	p, err := s.CreateProject(ctx, NewProject{ClientID: c.ID, Name: "Website", HourlyRateCents: 9000})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.Currency != "USD" {
		t.Errorf("Expected default currency USD, got %s", p.Currency)
	}

	if err := s.DeleteClient(ctx, c.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict deleting client with projects, got %v", err)
	}

	if err := s.ArchiveProject(ctx, p.ID, true); err != nil {
		t.Fatalf("ArchiveProject failed: %v", err)
	}
	projects, err := s.ListProjects(ctx, c.ID, false)
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("Archived project listed: %+v", projects)
	}
	projects, _ = s.ListProjects(ctx, c.ID, true)
	if len(projects) != 1 || !projects[0].Archived {
		t.Errorf("Expected archived project with includeArchived, got %+v", projects)
	}

	task := mustTask(t, s, p.ID, "Home page")
	mustStart(t, s, task.ID, Scope{Key: p.ID, ProjectID: p.ID}, t0)
	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected project tasks removed, got %v", err)
	}
	if active, _ := s.ActiveTask(ctx, p.ID); active != nil {
		t.Errorf("Expected pointer removed with project")
	}

	if err := s.DeleteClient(ctx, c.ID); err != nil {
		t.Errorf("DeleteClient failed: %v", err)
	}
	clients, _ := s.ListClients(ctx)
	if len(clients) != 0 {
		t.Errorf("Expected no clients, got %d", len(clients))
	}
}

func TestProposals(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	p, err := s.CreateProposal(ctx, NewProposal{
		ClientID: "c1",
		Title:    "Redesign",
		Items:    []models.ProposalItem{{Description: "Discovery", Quantity: 2, UnitPriceCents: 50000}},
	})
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	if p.Status != models.ProposalDraft {
		t.Errorf("Expected draft, got %s", p.Status)
	}

	p, err = s.AddProposalItem(ctx, p.ID, models.ProposalItem{Description: "Build", Quantity: 1.5, UnitPriceCents: 10000})
	if err != nil {
		t.Fatalf("AddProposalItem failed: %v", err)
	}
	got, err := s.GetProposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if len(got.Items) != 2 || got.TotalCents() != 115000 {
		t.Errorf("Unexpected items %+v total %d", got.Items, got.TotalCents())
	}

	if _, err := s.UpdateProposalStatus(ctx, p.ID, models.ProposalDraft, models.ProposalSent); err != nil {
		t.Fatalf("UpdateProposalStatus failed: %v", err)
	}
	if _, err := s.UpdateProposalStatus(ctx, p.ID, models.ProposalDraft, models.ProposalAccepted); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict on stale status, got %v", err)
	}
	if _, err := s.AddProposalItem(ctx, p.ID, models.ProposalItem{Description: "Late"}); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict adding to sent proposal, got %v", err)
	}
	if _, err := s.UpdateProposalStatus(ctx, "missing", "", models.ProposalSent); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	list, err := s.ListProposals(ctx, "c1", models.ProposalSent)
	if err != nil {
		t.Fatalf("ListProposals failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Items) != 2 {
		t.Errorf("Unexpected proposal list: %+v", list)
	}

	if err := s.DeleteProposal(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProposal failed: %v", err)
	}
	if _, err := s.GetProposal(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAudit(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	entry, err := s.WriteAudit(ctx, "task.start", "abc123", "success", "task-1", "")
	if err != nil {
		t.Fatalf("WriteAudit failed: %v", err)
	}
	if entry.ID == "" {
		t.Error("Audit entry ID should not be empty")
	}
	if _, err := s.WriteAudit(ctx, "task.create", "def456", "success", "task-2", ""); err != nil {
		t.Fatalf("WriteAudit failed: %v", err)
	}

	entries, err := s.ListAudit(ctx, "task-1", 0)
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "task.start" {
		t.Errorf("Unexpected audit entries: %+v", entries)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	c, _ := s.CreateClient(ctx, "Acme", "", "", "")
	p, _ := s.CreateProject(ctx, NewProject{ClientID: c.ID, Name: "Site"})
	a := mustTask(t, s, p.ID, "A")
	b := mustTask(t, s, p.ID, "B")
	scope := Scope{Key: p.ID, ProjectID: p.ID}

	mustStart(t, s, a.ID, scope, t0)
	mustStop(t, s, a.ID, t0.Add(100*time.Second))
	mustStart(t, s, b.ID, scope, t0.Add(200*time.Second))

	done := models.TaskStatusDone
	if _, err := s.UpdateTask(ctx, a.ID, models.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	prop, _ := s.CreateProposal(ctx, NewProposal{ClientID: c.ID, Title: "Q",
		Items: []models.ProposalItem{{Description: "Work", Quantity: 1, UnitPriceCents: 7500}}})
	if _, err := s.UpdateProposalStatus(ctx, prop.ID, "", models.ProposalAccepted); err != nil {
		t.Fatalf("UpdateProposalStatus failed: %v", err)
	}

	d, err := s.Dashboard(ctx, t0.Add(250*time.Second))
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d.Clients != 1 || d.Projects != 1 || d.OpenTasks != 1 || d.DoneTasks != 1 {
		t.Errorf("Unexpected counts: %+v", d)
	}
	if len(d.RunningTasks) != 1 || d.RunningTasks[0].ID != b.ID {
		t.Errorf("Expected B running, got %+v", d.RunningTasks)
	}
	if d.TrackedSeconds != 150 {
		t.Errorf("Expected 150 tracked seconds, got %d", d.TrackedSeconds)
	}
	if d.TodaySeconds != 150 {
		t.Errorf("Expected 150 seconds today, got %d", d.TodaySeconds)
	}
	if d.OpenProposals != 0 || d.AcceptedCents != 7500 {
		t.Errorf("Unexpected proposal totals: %+v", d)
	}
}

func TestStopSession_LeavesRestartedTaskAlone(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Restarted")
	scope := Scope{Key: "p1", ProjectID: "p1"}
	first := mustStart(t, s, task.ID, scope, t0).Task.LastResumeAt
	mustStop(t, s, task.ID, t0.Add(10*time.Second))
	mustStart(t, s, task.ID, scope, t0.Add(time.Minute))

	_, err := s.StopSession(ctx, task.ID, *first, t0.Add(4*time.Hour), models.SourceAutoStop)
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Expected ErrNotRunning for a stale session, got %v", err)
	}
	got, _ := s.GetTask(ctx, task.ID)
	if !got.IsRunning || got.AccumulatedSeconds != 10 {
		t.Errorf("Expected the new session untouched, got %+v", got)
	}

	out, err := s.StopSession(ctx, task.ID, *got.LastResumeAt, t0.Add(2*time.Minute), models.SourceAutoStop)
	if err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if out.Task.IsRunning || out.Task.AccumulatedSeconds != 70 || out.Session.Seconds != 60 {
		t.Errorf("Unexpected outcome: %+v %+v", out.Task, out.Session)
	}
}

func TestCompleteTask_BanksAndMarksDone(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Finish me")
	mustStart(t, s, task.ID, Scope{Key: "p1", ProjectID: "p1"}, t0)

	title := "Finished"
	out, err := s.CompleteTask(ctx, task.ID, models.TaskPatch{Title: &title}, t0.Add(45*time.Second))
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if out.Task.Status != models.TaskStatusDone || out.Task.IsRunning || out.Task.Title != title {
		t.Errorf("Unexpected task: %+v", out.Task)
	}
	if out.Session == nil || out.Session.Seconds != 45 || out.Session.Source != models.SourceDone {
		t.Errorf("Unexpected session: %+v", out.Session)
	}
	if active, _ := s.ActiveTask(ctx, "p1"); active != nil {
		t.Errorf("Expected pointer released, got %+v", active)
	}

	// A stopped task is marked done without a new session.
	idle := mustTask(t, s, "p1", "Idle")
	out, err = s.CompleteTask(ctx, idle.ID, models.TaskPatch{}, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if out.Task.Status != models.TaskStatusDone || out.Session != nil {
		t.Errorf("Unexpected outcome: %+v %+v", out.Task, out.Session)
	}

	if _, err := s.CompleteTask(ctx, "missing", models.TaskPatch{}, t0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCompleteTask_RollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task := mustTask(t, s, "p1", "Half done")
	mustStart(t, s, task.ID, Scope{Key: "p1", ProjectID: "p1"}, t0)

	negative := int64(-1)
	if _, err := s.CompleteTask(ctx, task.ID, models.TaskPatch{AccumulatedSeconds: &negative}, t0.Add(time.Minute)); err == nil {
		t.Fatal("Expected the status write to fail")
	}

	got, _ := s.GetTask(ctx, task.ID)
	if !got.IsRunning || got.Status == models.TaskStatusDone || got.AccumulatedSeconds != 0 {
		t.Errorf("Expected task still running and not done, got %+v", got)
	}
	sessions, _ := s.ListSessions(ctx, models.SessionFilter{TaskID: task.ID})
	if len(sessions) != 0 {
		t.Errorf("Expected no banked session, got %+v", sessions)
	}
	if active, _ := s.ActiveTask(ctx, "p1"); active == nil || active.ID != task.ID {
		t.Errorf("Expected pointer kept, got %+v", active)
	}
}

func TestDashboard_SessionsCrossingMidnight(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	late := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	after := late.Add(2 * time.Hour)

	a := mustTask(t, s, "p1", "Banked overnight")
	b := mustTask(t, s, "p2", "Still running")
	mustStart(t, s, a.ID, Scope{Key: "p1", ProjectID: "p1"}, late)
	mustStart(t, s, b.ID, Scope{Key: "p2", ProjectID: "p2"}, late)
	mustStop(t, s, a.ID, after)

	d, err := s.Dashboard(ctx, after)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d.TodaySeconds != 7200 {
		t.Errorf("Expected 7200 seconds today, got %d", d.TodaySeconds)
	}
	if d.TrackedSeconds != 14400 {
		t.Errorf("Expected 14400 tracked seconds, got %d", d.TrackedSeconds)
	}

	// The overnight session belongs to the day it started on.
	midnight := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	sessions, err := s.ListSessions(ctx, models.SessionFilter{From: midnight})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("Expected no sessions started after midnight, got %+v", sessions)
	}
	sessions, err = s.ListSessions(ctx, models.SessionFilter{To: midnight})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Seconds != 7200 {
		t.Errorf("Expected the overnight session before midnight, got %+v", sessions)
	}
}

// Helper functions

func newTestStore(t *testing.T) *Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func mustTask(t *testing.T, s *Store, projectID, title string) *models.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), NewTask{ProjectID: projectID, Title: title})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	return task
}

func mustStart(t *testing.T, s *Store, id string, scope Scope, at time.Time) *StartOutcome {
	t.Helper()
	out, err := s.StartTimer(context.Background(), id, scope, at)
	if err != nil {
		t.Fatalf("StartTimer failed: %v", err)
	}
	return out
}

func mustStop(t *testing.T, s *Store, id string, at time.Time) *StopOutcome {
	t.Helper()
	out, err := s.StopTimer(context.Background(), id, at, models.SourceManual)
	if err != nil {
		t.Fatalf("StopTimer failed: %v", err)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
