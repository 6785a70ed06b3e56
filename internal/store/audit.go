package store

import (
	"context"
	"time"

	"github.com/fentz26/tempo/internal/models"
	"github.com/google/uuid"
)

// --- Audit Operations ---

// WriteAudit persists a decision record.
func (s *Store) WriteAudit(ctx context.Context, action, inputsHash, outcome, taskID, details string) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		TaskID:     taskID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO audit_log (id, action, inputs_hash, outcome, task_id, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, entry.TaskID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return nil, wrapErr("insert", "audit entry", entry.ID, err)
	}
	return entry, nil
}

// ListAudit returns the most recent decision records, optionally for one task.
func (s *Store) ListAudit(ctx context.Context, taskID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, action, inputs_hash, outcome, task_id, details, timestamp FROM audit_log`
	var args []interface{}
	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY timestamp DESC, id LIMIT ?`
	args = append(args, limit)

	var entries []models.AuditEntry
	if err := s.db.SelectContext(ctx, &entries, s.q(query), args...); err != nil {
		return nil, wrapErr("list", "audit entries", taskID, err)
	}
	return entries, nil
}
