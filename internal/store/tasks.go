package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/tempo/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const taskColumns = `id, project_id, title, description, status, priority, due_at, is_running,
	accumulated_seconds, last_resume_at, last_stop_at, created_at, updated_at`

// NewTask carries the fields accepted on task creation.
type NewTask struct {
	ProjectID   string
	Title       string
	Description string
	Priority    int
	DueAt       *time.Time
}

// CreateTask inserts a new task with a zeroed, stopped timer.
func (s *Store) CreateTask(ctx context.Context, in NewTask) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.TaskStatusTodo,
		Priority:    in.Priority,
		DueAt:       in.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO tasks (id, project_id, title, description, status, priority, due_at,
		is_running, accumulated_seconds, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`),
		task.ID, task.ProjectID, task.Title, task.Description, task.Status, task.Priority, task.DueAt,
		false, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr("insert", "task", task.ID, err)
	}
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.getTask(ctx, s.db, id)
	return task, wrapErr("get", "task", id, err)
}

func (s *Store) getTask(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Task, error) {
	var task models.Task
	err := sqlx.GetContext(ctx, q, &task, s.q(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns tasks matching filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	tasks, err := s.listTasks(ctx, s.db, filter, "")
	return tasks, wrapErr("list", "tasks", filter.ProjectID, err)
}

// ListTasksByScope returns every task of a project.
func (s *Store) ListTasksByScope(ctx context.Context, projectID string) ([]models.Task, error) {
	return s.ListTasks(ctx, models.TaskFilter{ProjectID: projectID})
}

// RunningTasks returns every task whose timer is running.
func (s *Store) RunningTasks(ctx context.Context) ([]models.Task, error) {
	running := true
	return s.ListTasks(ctx, models.TaskFilter{Running: &running})
}

func (s *Store) listTasks(ctx context.Context, q sqlx.QueryerContext, filter models.TaskFilter, excludeID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var where []string
	var args []interface{}

	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Running != nil {
		where = append(where, "is_running = ?")
		args = append(args, *filter.Running)
	}
	if excludeID != "" {
		where = append(where, "id != ?")
		args = append(args, excludeID)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	var tasks []models.Task
	if err := sqlx.SelectContext(ctx, q, &tasks, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask applies a partial update and returns the stored result.
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	var out *models.Task
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.updateTask(ctx, tx, id, patch, time.Now().UTC()); err != nil {
			return err
		}
		task, err := s.getTask(ctx, tx, id)
		out = task
		return err
	})
	return out, wrapErr("update", "task", id, err)
}

func (s *Store) updateTask(ctx context.Context, e sqlx.ExecerContext, id string, p models.TaskPatch, now time.Time) error {
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	if p.DueAt != nil {
		add("due_at", *p.DueAt)
	}
	if p.IsRunning != nil {
		add("is_running", *p.IsRunning)
	}
	if p.AccumulatedSeconds != nil {
		add("accumulated_seconds", *p.AccumulatedSeconds)
	}
	if p.ClearLastResumeAt {
		sets = append(sets, "last_resume_at = NULL")
	} else if p.LastResumeAt != nil {
		add("last_resume_at", *p.LastResumeAt)
	}
	if p.LastStopAt != nil {
		add("last_stop_at", *p.LastStopAt)
	}
	add("updated_at", now)
	args = append(args, id)

	res, err := e.ExecContext(ctx, s.q(`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask removes a task together with its timer pointer and sessions.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM tasks WHERE id = ?`), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM active_timers WHERE task_id = ?`), id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.q(`DELETE FROM time_sessions WHERE task_id = ?`), id)
		return err
	})
	return wrapErr("delete", "task", id, err)
}
