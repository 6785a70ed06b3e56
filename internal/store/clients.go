package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fentz26/tempo/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateClient inserts a new client.
func (s *Store) CreateClient(ctx context.Context, name, email, company, notes string) (*models.Client, error) {
	now := time.Now().UTC()
	c := &models.Client{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Company:   company,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO clients (id, name, email, company, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.Email, c.Company, c.Notes, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr("insert", "client", c.ID, err)
	}
	return c, nil
}

// GetClient retrieves a client by ID.
func (s *Store) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := s.db.GetContext(ctx, &c, s.q(`SELECT id, name, email, company, notes, created_at, updated_at
		FROM clients WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapErr("get", "client", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get", "client", id, err)
	}
	return &c, nil
}

// ListClients returns every client ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.SelectContext(ctx, &clients, `SELECT id, name, email, company, notes, created_at, updated_at
		FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, wrapErr("list", "clients", "", err)
	}
	return clients, nil
}

// NewProject carries the fields accepted on project creation.
type NewProject struct {
	ClientID        string
	Name            string
	HourlyRateCents int64
	Currency        string
}

// CreateProject inserts a new project. An empty currency defaults to USD.
func (s *Store) CreateProject(ctx context.Context, in NewProject) (*models.Project, error) {
	now := time.Now().UTC()
	p := &models.Project{
		ID:              uuid.New().String(),
		ClientID:        in.ClientID,
		Name:            in.Name,
		HourlyRateCents: in.HourlyRateCents,
		Currency:        in.Currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO projects (id, client_id, name, hourly_rate_cents, currency, archived,
		created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.ClientID, p.Name, p.HourlyRateCents, p.Currency, false, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr("insert", "project", p.ID, err)
	}
	return p, nil
}

const projectColumns = `id, client_id, name, hourly_rate_cents, currency, archived, created_at, updated_at`

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p, err := s.getProject(ctx, s.db, id)
	return p, wrapErr("get", "project", id, err)
}

func (s *Store) getProject(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Project, error) {
	var p models.Project
	err := sqlx.GetContext(ctx, q, &p, s.q(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns projects, optionally restricted to one client.
// Archived projects are skipped unless includeArchived is set.
func (s *Store) ListProjects(ctx context.Context, clientID string, includeArchived bool) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1 = 1`
	var args []interface{}
	if clientID != "" {
		query += ` AND client_id = ?`
		args = append(args, clientID)
	}
	if !includeArchived {
		query += ` AND archived = ?`
		args = append(args, false)
	}
	query += ` ORDER BY name, id`

	var projects []models.Project
	if err := s.db.SelectContext(ctx, &projects, s.q(query), args...); err != nil {
		return nil, wrapErr("list", "projects", clientID, err)
	}
	return projects, nil
}

// ArchiveProject flags a project as archived or restores it.
func (s *Store) ArchiveProject(ctx context.Context, id string, archived bool) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE projects SET archived = ?, updated_at = ? WHERE id = ?`),
		archived, time.Now().UTC(), id)
	if err != nil {
		return wrapErr("archive", "project", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrapErr("archive", "project", id, ErrNotFound)
	}
	return nil
}

// DeleteClient removes a client. Clients still owning projects or proposals
// are refused with ErrConflict.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var refs int
		err := tx.GetContext(ctx, &refs, s.q(`SELECT
			(SELECT COUNT(*) FROM projects WHERE client_id = ?) +
			(SELECT COUNT(*) FROM proposals WHERE client_id = ?)`), id, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return ErrConflict
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM clients WHERE id = ?`), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	return wrapErr("delete", "client", id, err)
}

// DeleteProject removes a project with its tasks, sessions and timer pointers.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM projects WHERE id = ?`), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		stmts := []string{
			`DELETE FROM active_timers WHERE task_id IN (SELECT id FROM tasks WHERE project_id = ?)`,
			`DELETE FROM time_sessions WHERE project_id = ?`,
			`DELETE FROM tasks WHERE project_id = ?`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapErr("delete", "project", id, err)
}
