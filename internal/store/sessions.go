package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/tempo/internal/models"
	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, task_id, project_id, started_at, stopped_at, seconds, source, note`

func (s *Store) insertSession(ctx context.Context, e sqlx.ExecerContext, ts *models.TimeSession) error {
	_, err := e.ExecContext(ctx, s.q(`INSERT INTO time_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		ts.ID, ts.TaskID, ts.ProjectID, ts.StartedAt.UTC(), ts.StoppedAt.UTC(), ts.Seconds, ts.Source, ts.Note,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ListSessions returns banked sessions matching filter, oldest first.
// From and To bound the start time of a session, the same instant a
// timesheet buckets it by.
func (s *Store) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.TimeSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM time_sessions`
	var where []string
	var args []interface{}

	if filter.TaskID != "" {
		where = append(where, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if !filter.From.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "started_at < ?")
		args = append(args, filter.To.UTC())
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at, id`

	var sessions []models.TimeSession
	if err := s.db.SelectContext(ctx, &sessions, s.q(query), args...); err != nil {
		return nil, wrapErr("list", "sessions", filter.TaskID, err)
	}
	return sessions, nil
}
