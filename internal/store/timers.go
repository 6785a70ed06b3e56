package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/timer"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Scope identifies the boundary inside which only one timer may run.
type Scope struct {
	// Key addresses the scope's row in active_timers.
	Key string
	// ProjectID restricts the sweep for stray running tasks; empty means every project.
	ProjectID string
}

// StartOutcome is the committed result of StartTimer.
type StartOutcome struct {
	Task           *models.Task
	Stopped        []models.Task
	Sessions       []models.TimeSession
	AlreadyRunning bool
}

// StopOutcome is the committed result of StopTimer.
type StopOutcome struct {
	Task    *models.Task
	Session *models.TimeSession
}

// StartTimer starts taskID and stops every other running task in scope, all
// in one transaction. The scope's active pointer is moved with a
// compare-and-swap; losing the race returns ErrConflict and commits nothing.
func (s *Store) StartTimer(ctx context.Context, taskID string, scope Scope, now time.Time) (*StartOutcome, error) {
	out := &StartOutcome{}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		task, err := s.lockTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task.IsRunning && task.LastResumeAt != nil {
			out.Task = task
			out.AlreadyRunning = true
			return nil
		}

		prev, found, err := s.activePointer(ctx, tx, scope.Key)
		if err != nil {
			return err
		}

		running := true
		others, err := s.listTasks(ctx, tx, models.TaskFilter{ProjectID: scope.ProjectID, Running: &running}, taskID)
		if err != nil {
			return err
		}
		for _, other := range others {
			stopped, session, err := s.bankTask(ctx, tx, other, now, models.SourceSwitch)
			if err != nil {
				return err
			}
			out.Stopped = append(out.Stopped, stopped)
			if session != nil {
				out.Sessions = append(out.Sessions, *session)
			}
		}

		if err := s.swapPointer(ctx, tx, scope.Key, prev, found, taskID, now); err != nil {
			return err
		}

		started := timer.Begin(*task, now)
		if err := s.updateTask(ctx, tx, taskID, timer.StartPatch(started), now); err != nil {
			return err
		}
		out.Task = &started
		return nil
	})
	if err != nil {
		return nil, wrapErr("start timer", "task", taskID, err)
	}
	return out, nil
}

// StopTimer banks the running session of taskID and releases its scope pointer.
func (s *Store) StopTimer(ctx context.Context, taskID string, now time.Time, source models.SessionSource) (*StopOutcome, error) {
	out := &StopOutcome{}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		task, err := s.lockTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !task.IsRunning {
			return ErrNotRunning
		}
		return s.stopLocked(ctx, tx, *task, now, source, out)
	})
	if err != nil {
		return nil, wrapErr("stop timer", "task", taskID, err)
	}
	return out, nil
}

// StopSession is StopTimer for one particular session: it only stops taskID
// while the task is still on the run that resumed at resumedAt. A task that
// was stopped or restarted since returns ErrNotRunning and is left alone.
func (s *Store) StopSession(ctx context.Context, taskID string, resumedAt, now time.Time, source models.SessionSource) (*StopOutcome, error) {
	out := &StopOutcome{}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		task, err := s.lockTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !task.IsRunning || task.LastResumeAt == nil || !task.LastResumeAt.Equal(resumedAt) {
			return ErrNotRunning
		}
		return s.stopLocked(ctx, tx, *task, now, source, out)
	})
	if err != nil {
		return nil, wrapErr("stop session", "task", taskID, err)
	}
	return out, nil
}

// CompleteTask marks taskID done with patch applied, banking its running
// session first. Both writes commit together or not at all.
func (s *Store) CompleteTask(ctx context.Context, taskID string, patch models.TaskPatch, now time.Time) (*StopOutcome, error) {
	done := models.TaskStatusDone
	patch.Status = &done

	out := &StopOutcome{}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		task, err := s.lockTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task.IsRunning {
			if err := s.stopLocked(ctx, tx, *task, now, models.SourceDone, out); err != nil {
				return err
			}
		}
		if err := s.updateTask(ctx, tx, taskID, patch, now); err != nil {
			return err
		}
		out.Task, err = s.getTask(ctx, tx, taskID)
		return err
	})
	if err != nil {
		return nil, wrapErr("complete", "task", taskID, err)
	}
	return out, nil
}

func (s *Store) stopLocked(ctx context.Context, tx *sqlx.Tx, task models.Task, now time.Time, source models.SessionSource, out *StopOutcome) error {
	stopped, session, err := s.bankTask(ctx, tx, task, now, source)
	if err != nil {
		return err
	}
	out.Task = &stopped
	out.Session = session
	return nil
}

// ActiveTask returns the task the scope pointer refers to, or nil when idle.
func (s *Store) ActiveTask(ctx context.Context, scopeKey string) (*models.Task, error) {
	taskID, found, err := s.activePointer(ctx, s.db, scopeKey)
	if err != nil {
		return nil, wrapErr("get", "active timer", scopeKey, err)
	}
	if !found {
		return nil, nil
	}
	task, err := s.getTask(ctx, s.db, taskID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return task, wrapErr("get", "active timer", scopeKey, err)
}

// bankTask stops a running task inside tx, records its session and drops any
// pointer that still refers to it.
func (s *Store) bankTask(ctx context.Context, tx *sqlx.Tx, task models.Task, now time.Time, source models.SessionSource) (models.Task, *models.TimeSession, error) {
	stopped, session := timer.End(task, now, source)
	if err := s.updateTask(ctx, tx, task.ID, timer.StopPatch(stopped), now); err != nil {
		return models.Task{}, nil, err
	}
	if session != nil {
		session.ID = uuid.New().String()
		if err := s.insertSession(ctx, tx, session); err != nil {
			return models.Task{}, nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM active_timers WHERE task_id = ?`), task.ID); err != nil {
		return models.Task{}, nil, fmt.Errorf("release pointer: %w", err)
	}
	return stopped, session, nil
}

// lockTask reads a task for update. Postgres takes a row lock; sqlite runs
// on a single connection, so the transaction already excludes other writers.
func (s *Store) lockTask(ctx context.Context, tx *sqlx.Tx, id string) (*models.Task, error) {
	if s.dialect != DialectPostgres {
		return s.getTask(ctx, tx, id)
	}
	var task models.Task
	err := tx.GetContext(ctx, &task, s.q(`SELECT `+taskColumns+` FROM tasks WHERE id = ? FOR UPDATE`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Store) activePointer(ctx context.Context, q sqlx.QueryerContext, scopeKey string) (string, bool, error) {
	var taskID string
	err := sqlx.GetContext(ctx, q, &taskID, s.q(`SELECT task_id FROM active_timers WHERE scope_id = ?`), scopeKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query pointer: %w", err)
	}
	return taskID, true, nil
}

// swapPointer moves the scope pointer from prev to next. The row observed at
// the start of the transaction may have been released by bankTask; in every
// case the write only succeeds against the state this transaction expects.
func (s *Store) swapPointer(ctx context.Context, tx *sqlx.Tx, scopeKey, prev string, found bool, next string, now time.Time) error {
	if found {
		res, err := tx.ExecContext(ctx, s.q(`UPDATE active_timers SET task_id = ?, started_at = ? WHERE scope_id = ? AND task_id = ?`),
			next, now, scopeKey, prev)
		if err != nil {
			return fmt.Errorf("swap pointer: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}
		// bankTask already removed prev's row; fall through to insert.
	}

	_, err := tx.ExecContext(ctx, s.q(`INSERT INTO active_timers (scope_id, task_id, started_at) VALUES (?, ?, ?)`),
		scopeKey, next, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert pointer: %w", err)
	}
	return nil
}
