package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fentz26/tempo/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// proposalRow is the stored form of a proposal; items travel as JSON text.
type proposalRow struct {
	models.Proposal
	ItemsJSON string `db:"items"`
}

func (r proposalRow) decode() (*models.Proposal, error) {
	p := r.Proposal
	p.Items = []models.ProposalItem{}
	if r.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(r.ItemsJSON), &p.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	return &p, nil
}

const proposalColumns = `id, client_id, project_id, title, status, currency, items, notes, valid_until, created_at, updated_at`

// NewProposal carries the fields accepted on proposal creation.
type NewProposal struct {
	ClientID   string
	ProjectID  string
	Title      string
	Currency   string
	Items      []models.ProposalItem
	Notes      string
	ValidUntil *time.Time
}

// CreateProposal inserts a draft proposal.
func (s *Store) CreateProposal(ctx context.Context, in NewProposal) (*models.Proposal, error) {
	now := time.Now().UTC()
	p := &models.Proposal{
		ID:         uuid.New().String(),
		ClientID:   in.ClientID,
		ProjectID:  in.ProjectID,
		Title:      in.Title,
		Status:     models.ProposalDraft,
		Currency:   in.Currency,
		Items:      in.Items,
		Notes:      in.Notes,
		ValidUntil: in.ValidUntil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.Items == nil {
		p.Items = []models.ProposalItem{}
	}
	items, err := json.Marshal(p.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO proposals (`+proposalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.ClientID, p.ProjectID, p.Title, p.Status, p.Currency, string(items), p.Notes, p.ValidUntil,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr("insert", "proposal", p.ID, err)
	}
	return p, nil
}

// GetProposal retrieves a proposal with its line items.
func (s *Store) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	p, err := s.getProposal(ctx, s.db, id)
	return p, wrapErr("get", "proposal", id, err)
}

func (s *Store) getProposal(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Proposal, error) {
	var row proposalRow
	err := sqlx.GetContext(ctx, q, &row, s.q(`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.decode()
}

// ListProposals returns proposals, optionally filtered by client and status.
func (s *Store) ListProposals(ctx context.Context, clientID string, status models.ProposalStatus) ([]models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE 1 = 1`
	var args []interface{}
	if clientID != "" {
		query += ` AND client_id = ?`
		args = append(args, clientID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id`

	var rows []proposalRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, wrapErr("list", "proposals", clientID, err)
	}
	out := make([]models.Proposal, 0, len(rows))
	for _, row := range rows {
		p, err := row.decode()
		if err != nil {
			return nil, wrapErr("list", "proposals", row.ID, err)
		}
		out = append(out, *p)
	}
	return out, nil
}

// AddProposalItem appends a line item to a draft proposal.
func (s *Store) AddProposalItem(ctx context.Context, id string, item models.ProposalItem) (*models.Proposal, error) {
	var out *models.Proposal
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.getProposal(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.ProposalDraft {
			return ErrConflict
		}
		p.Items = append(p.Items, item)
		items, err := json.Marshal(p.Items)
		if err != nil {
			return fmt.Errorf("encode items: %w", err)
		}
		p.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE proposals SET items = ?, updated_at = ? WHERE id = ?`),
			string(items), p.UpdatedAt, id); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, wrapErr("add item", "proposal", id, err)
}

// UpdateProposalStatus moves a proposal to status, provided it is still in
// the state the caller expects. An empty from skips the check.
func (s *Store) UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus) (*models.Proposal, error) {
	var out *models.Proposal
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `UPDATE proposals SET status = ?, updated_at = ? WHERE id = ?`
		args := []interface{}{to, time.Now().UTC(), id}
		if from != "" {
			query += ` AND status = ?`
			args = append(args, from)
		}
		res, err := tx.ExecContext(ctx, s.q(query), args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := s.getProposal(ctx, tx, id); err != nil {
				return err
			}
			return ErrConflict
		}
		p, err := s.getProposal(ctx, tx, id)
		out = p
		return err
	})
	return out, wrapErr("update status", "proposal", id, err)
}

// DeleteProposal removes a proposal.
func (s *Store) DeleteProposal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM proposals WHERE id = ?`), id)
	if err != nil {
		return wrapErr("delete", "proposal", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrapErr("delete", "proposal", id, ErrNotFound)
	}
	return nil
}
