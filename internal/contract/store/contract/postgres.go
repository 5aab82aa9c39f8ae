package contract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"havenlink/internal/contract/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
	"havenlink/pkg/platform/tx"
)

// Postgres persists contracts in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const columns = `id, seeker_id, host_id, status, terms, duration,
	start_date, end_date, seeker_signed_at, host_signed_at,
	admin_approved_at, admin_approved_by, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.SeekerID), uuid.UUID(c.HostID),
		string(c.Status), c.Terms, string(c.Duration),
		c.StartDate, c.EndDate, c.SeekerSignedAt, c.HostSignedAt,
		c.AdminApprovedAt, approvedBy(c), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+columns+` FROM contracts WHERE id = $1`,
		uuid.UUID(contractID))
	return scanRow(row)
}

func (s *Postgres) ListByParticipant(ctx context.Context, identityID id.IdentityID) ([]*models.Contract, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM contracts
		 WHERE seeker_id = $1 OR host_id = $1
		 ORDER BY created_at DESC`,
		uuid.UUID(identityID))
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *Postgres) ListAwaitingRatification(ctx context.Context) ([]*models.Contract, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM contracts
		 WHERE status = $1
		   AND seeker_signed_at IS NOT NULL
		   AND host_signed_at IS NOT NULL
		 ORDER BY GREATEST(seeker_signed_at, host_signed_at)`,
		string(models.StatusProposed))
	if err != nil {
		return nil, fmt.Errorf("list contracts awaiting ratification: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Execute locks the row FOR UPDATE, validates, mutates, writes back.
// Joins an ambient transaction when one is present.
func (s *Postgres) Execute(ctx context.Context, contractID id.ContractID,
	validate func(*models.Contract) error,
	mutate func(*models.Contract)) (*models.Contract, error) {

	sqlTx, owned := (*sql.Tx)(nil), false
	if ambient, ok := tx.From(ctx); ok {
		sqlTx = ambient
	} else {
		var err error
		sqlTx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin contract execute: %w", err)
		}
		owned = true
		defer func() { _ = sqlTx.Rollback() }()
	}

	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+columns+` FROM contracts WHERE id = $1 FOR UPDATE`,
		uuid.UUID(contractID))
	c, err := scanRow(row)
	if err != nil {
		return nil, err
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE contracts
		SET status = $2, seeker_signed_at = $3, host_signed_at = $4,
		    admin_approved_at = $5, admin_approved_by = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(c.ID), string(c.Status), c.SeekerSignedAt, c.HostSignedAt,
		c.AdminApprovedAt, approvedBy(c), c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update contract: %w", err)
	}

	if owned {
		if err := sqlTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit contract execute: %w", err)
		}
	}
	return c, nil
}

func approvedBy(c *models.Contract) any {
	if c.AdminApprovedBy == nil {
		return nil
	}
	return uuid.UUID(*c.AdminApprovedBy)
}

func scanRow(row *sql.Row) (*models.Contract, error) {
	c, err := scanContract(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanAll(rows *sql.Rows) ([]*models.Contract, error) {
	var out []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return out, nil
}

func scanContract(scan func(dest ...any) error) (*models.Contract, error) {
	var c models.Contract
	var contractID, seekerID, hostID uuid.UUID
	var status, duration string
	var adminApprovedBy *uuid.UUID
	err := scan(&contractID, &seekerID, &hostID, &status, &c.Terms, &duration,
		&c.StartDate, &c.EndDate, &c.SeekerSignedAt, &c.HostSignedAt,
		&c.AdminApprovedAt, &adminApprovedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan contract: %w", err)
	}
	c.ID = id.ContractID(contractID)
	c.SeekerID = id.IdentityID(seekerID)
	c.HostID = id.IdentityID(hostID)
	c.Status = models.Status(status)
	c.Duration = models.Duration(duration)
	if adminApprovedBy != nil {
		approvedByID := id.IdentityID(*adminApprovedBy)
		c.AdminApprovedBy = &approvedByID
	}
	return &c, nil
}
